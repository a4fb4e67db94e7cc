package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync/atomic"

	"github.com/aurora-devkit/devbridged/pkg/socketserver"
	"github.com/aurora-devkit/devbridged/pkg/wire"
)

var requestID uint64

// client is a thin synchronous wrapper over one connection to the daemon's
// socket: every command this CLI issues is a single request/response round
// trip, so there's no need for the daemon's per-connection concurrency.
type client struct {
	conn net.Conn
}

func dialDaemon(socketPath string) (*client, error) {
	if socketPath == "" {
		socketPath = socketserver.SocketPath()
	}
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to devbridged at %s (is it running?): %w", socketPath, err)
	}
	return &client{conn: conn}, nil
}

func (c *client) send(cmd wire.Command) (wire.Result, error) {
	req := wire.Request{ID: atomic.AddUint64(&requestID, 1), Command: cmd}
	if err := wire.WriteMessage(c.conn, req); err != nil {
		return wire.Result{}, fmt.Errorf("sending request: %w", err)
	}
	var resp wire.Response
	if err := wire.ReadMessage(c.conn, &resp); err != nil {
		return wire.Result{}, fmt.Errorf("reading response: %w", err)
	}
	return resp.Result, nil
}

func (c *client) Close() error {
	return c.conn.Close()
}

// resultToError converts a failed Result into a Go error, or nil on success.
func resultToError(result wire.Result) error {
	if result.Error == nil {
		return nil
	}
	return fmt.Errorf("%s: %s", result.Error.Kind, result.Error.Message)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runCommand dials the daemon, sends cmd, and returns its Result (or a
// dial/transport error). Callers render Result on success.
func runCommand(cmd wire.Command) (wire.Result, error) {
	c, err := dialDaemon(app.socketPath)
	if err != nil {
		return wire.Result{}, err
	}
	defer c.Close()
	return c.send(cmd)
}
