// Package transport abstracts the secure-shell capability the pool needs:
// open a session, run a command, move files. The concrete implementation
// (SSHTransport) and its cryptographic details are deliberately the only
// thing this repo treats as swappable — spec.md scopes key loading and
// wire-level SSH/SFTP details out of the core.
package transport

import (
	"context"
	"strings"
)

// ExecResult is the decoded outcome of running a command on a Session.
type ExecResult struct {
	StdoutLines []string
	StderrLines []string
	ExitCode    int
}

// Session is a live, authenticated connection to exactly one device. A
// Session is owned exclusively by the DeviceWorker that created it and is
// never shared or cloned.
type Session interface {
	// Exec runs cmd and returns its decoded output. A nonzero exit code is
	// reported via ExecResult.ExitCode, not as an error; the caller decides
	// how to surface it.
	Exec(ctx context.Context, cmd string) (ExecResult, error)
	// ExecAsRoot runs cmd with the device's root credential. Returns
	// buerrors.ErrRootPasswordUnset if no root credential was configured
	// for this session.
	ExecAsRoot(ctx context.Context, cmd string) (ExecResult, error)
	// Upload truncates (or creates) remotePath and writes data to it.
	Upload(ctx context.Context, data []byte, remotePath string) error
	// Download reads remotePath in full.
	Download(ctx context.Context, remotePath string) ([]byte, error)
	// Close releases the underlying connection.
	Close() error
}

// Credentials names what's needed to authenticate to a device.
type Credentials struct {
	User         string
	KeyPath      string
	RootPassword string // empty means "no root credential configured"
}

// Transport opens Sessions. Implementations must not retain Sessions they
// hand out; ownership passes entirely to the caller.
type Transport interface {
	OpenSession(ctx context.Context, host string, port uint16, creds Credentials) (Session, error)
}

// connectivityPatterns is the exact phrase set from spec.md §4.1/§8: any
// error whose lowercased message contains one of these indicates the
// session itself is unusable and must be torn down.
var connectivityPatterns = []string{
	"connection",
	"disconnect",
	"timeout",
	"broken pipe",
	"reset by peer",
	"channel",
	"session",
	"eof",
	"closed",
}

// IsConnectivityError reports whether err indicates the transport session
// is no longer usable, as opposed to the remote command simply failing.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range connectivityPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
