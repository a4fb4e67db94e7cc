package socketserver

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/aurora-devkit/devbridged/pkg/wire"
)

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(ctx context.Context, cmd wire.Command) wire.Result {
	return wire.Result{Success: &wire.SuccessResult{Output: wire.LinesOutput([]string{string(cmd.Type)})}}
}

func TestServerRoundTripsRequests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devbridge.sock")
	shutdown := make(chan struct{})
	srv := New(path, echoDispatcher{}, shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe(ctx) }()

	waitForSocket(t, path)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := wire.Request{ID: 7, Command: wire.Command{Type: wire.CmdPing}}
	if err := wire.WriteMessage(conn, req); err != nil {
		t.Fatalf("write request: %v", err)
	}
	var resp wire.Response
	if err := wire.ReadMessage(conn, &resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.ID != 7 || resp.Result.Success == nil || resp.Result.Success.Output.Lines[0] != "Ping" {
		t.Fatalf("response = %+v, want echoed Ping success", resp)
	}

	close(shutdown)
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("ListenAndServe returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return after shutdown")
	}
}

func TestServerHandlesMultipleRequestsOnOneConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devbridge.sock")
	shutdown := make(chan struct{})
	srv := New(path, echoDispatcher{}, shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.ListenAndServe(ctx)
	defer close(shutdown)

	waitForSocket(t, path)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for i := uint64(0); i < 3; i++ {
		req := wire.Request{ID: i, Command: wire.Command{Type: wire.CmdPing}}
		if err := wire.WriteMessage(conn, req); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		var resp wire.Response
		if err := wire.ReadMessage(conn, &resp); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if resp.ID != i {
			t.Errorf("response %d has ID %d", i, resp.ID)
		}
	}
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("unix", path)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("socket %s never became available", path)
}
