// Package socketserver binds a per-user Unix domain socket and dispatches
// every framed request it receives to a Dispatcher, the local transport the
// daemon's CLI client and any other collaborators on the same host talk
// over.
package socketserver

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/aurora-devkit/devbridged/pkg/dlog"
	"github.com/aurora-devkit/devbridged/pkg/wire"
)

// Dispatcher runs one decoded Command and returns its Result. *router.Router
// satisfies this.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd wire.Command) wire.Result
}

// SocketPath returns this user's daemon socket path, namespaced by uid so
// multiple users on the same host never collide.
func SocketPath() string {
	return fmt.Sprintf("/tmp/devbridge-server-%d.sock", os.Getuid())
}

// Server owns the listening socket and every accepted connection's
// handling goroutine.
type Server struct {
	path       string
	dispatcher Dispatcher

	listener net.Listener
	wg       sync.WaitGroup

	shutdownCh chan struct{}
}

// New constructs a Server bound to path, dispatching requests to d. Closing
// shutdownCh (or cancelling the context given to ListenAndServe) stops the
// accept loop.
func New(path string, d Dispatcher, shutdownCh chan struct{}) *Server {
	return &Server{path: path, dispatcher: d, shutdownCh: shutdownCh}
}

// ListenAndServe binds the socket and serves connections until ctx is
// cancelled or the server's shutdown channel closes. It always returns
// after cleaning up the socket file.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("removing stale socket %s: %w", s.path, err)
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("binding socket %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("setting socket permissions: %w", err)
	}
	s.listener = listener
	defer os.RemoveAll(s.path)

	dlog.Logger.WithField("socket", s.path).Info("listening")

	acceptErrCh := make(chan error, 1)
	go s.acceptLoop(ctx, acceptErrCh)

	select {
	case <-ctx.Done():
	case <-s.shutdownCh:
	case err := <-acceptErrCh:
		if err != nil {
			s.listener.Close()
			s.wg.Wait()
			return err
		}
	}

	s.listener.Close()
	s.wg.Wait()
	dlog.Logger.Info("shut down")
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, errCh chan<- error) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				errCh <- nil
			case <-s.shutdownCh:
				errCh <- nil
			default:
				errCh <- err
			}
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleClient(ctx, conn)
		}()
	}
}

func (s *Server) handleClient(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	log := dlog.Logger.WithField("remote", conn.RemoteAddr())

	// On shutdown, unblock a read waiting for the next request; a request
	// already being dispatched still gets its response written.
	handlerDone := make(chan struct{})
	defer close(handlerDone)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.shutdownCh:
		case <-handlerDone:
			return
		}
		conn.SetReadDeadline(time.Now())
	}()

	for {
		var req wire.Request
		if err := wire.ReadMessage(conn, &req); err != nil {
			log.WithField("error", err).Debug("client disconnected")
			return
		}

		result := s.dispatcher.Dispatch(ctx, req.Command)
		resp := wire.Response{ID: req.ID, Result: result}
		if err := wire.WriteMessage(conn, resp); err != nil {
			log.WithField("error", err).Debug("failed to write response")
			return
		}
	}
}
