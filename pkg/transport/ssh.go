package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/aurora-devkit/devbridged/pkg/buerrors"
	"github.com/aurora-devkit/devbridged/pkg/dlog"
	"github.com/aurora-devkit/devbridged/pkg/shellescape"
)

// rootShellCommand is the device's su-equivalent privilege-elevation
// wrapper. It mirrors the single well-known wrapper the original tooling
// assumes; nothing in this repo depends on it being configurable.
const rootShellCommand = "devel-su"

const (
	connectTimeout    = 5 * time.Second
	inactivityTimeout = 30 * time.Second
)

// SSHTransport opens authenticated SSH sessions using a public-key
// identity loaded from disk, the same pattern the daemon's reference
// implementation uses for device access (see pkg/transport in this repo's
// DESIGN.md grounding: the teacher's SSH tunnel in its device package).
type SSHTransport struct{}

// NewSSHTransport returns a ready-to-use SSH transport. There's no state to
// construct; it exists as a type for interface satisfaction and to leave
// room for future connection-level options (ciphers, known_hosts policy).
func NewSSHTransport() *SSHTransport {
	return &SSHTransport{}
}

// OpenSession dials host:port, authenticates with the key at
// creds.KeyPath, and returns a live Session. Host key verification is
// intentionally left to the caller's environment (lab devices rotate keys
// across reflashes); production deployments should supply a real
// HostKeyCallback here.
func (t *SSHTransport) OpenSession(ctx context.Context, host string, port uint16, creds Credentials) (Session, error) {
	keyBytes, err := os.ReadFile(creds.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading SSH key %s: %w", creds.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing SSH key %s: %w", creds.KeyPath, err)
	}

	config := &ssh.ClientConfig{
		User:            creds.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         connectTimeout,
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	dialer := net.Dialer{Timeout: connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake with %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	sess := &sshSession{client: client, rootPassword: creds.RootPassword}
	sess.armIdleTimer()
	return sess, nil
}

// sshSession wraps a live ssh.Client with an inactivity timer: any use
// resets the timer, and an idle session is closed after inactivityTimeout,
// surfacing as a connectivity error on the next operation.
type sshSession struct {
	client       *ssh.Client
	rootPassword string

	mu        sync.Mutex
	idleTimer *time.Timer
	closed    bool
}

func (s *sshSession) armIdleTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idleTimer = time.AfterFunc(inactivityTimeout, func() {
		dlog.Logger.Debug("SSH session idle timeout, closing")
		s.Close()
	})
}

func (s *sshSession) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Reset(inactivityTimeout)
	}
}

func (s *sshSession) Exec(ctx context.Context, cmd string) (ExecResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ExecResult{}, fmt.Errorf("session closed")
	}
	s.mu.Unlock()
	s.touch()

	session, err := s.client.NewSession()
	if err != nil {
		return ExecResult{}, fmt.Errorf("opening SSH channel: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	type runResult struct {
		err error
	}
	done := make(chan runResult, 1)
	go func() {
		done <- runResult{err: session.Run(cmd)}
	}()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return ExecResult{}, ctx.Err()
	case res := <-done:
		exitCode := 0
		if res.err != nil {
			if exitErr, ok := res.err.(*ssh.ExitError); ok {
				exitCode = exitErr.ExitStatus()
			} else {
				return ExecResult{}, fmt.Errorf("exec %q: %w", cmd, res.err)
			}
		}
		return ExecResult{
			StdoutLines: splitTrimmedLines(stdout.String()),
			StderrLines: splitTrimmedLines(stderr.String()),
			ExitCode:    exitCode,
		}, nil
	}
}

// ExecAsRoot pipes the device's root credential into the privilege-elevation
// wrapper, escaping both the credential and the command for the single-quote
// shell context so neither can break out of its quoting.
func (s *sshSession) ExecAsRoot(ctx context.Context, cmd string) (ExecResult, error) {
	if s.rootPassword == "" {
		return ExecResult{}, buerrors.ErrRootPasswordUnset
	}
	wrapped := fmt.Sprintf("echo %s | %s sh -c %s",
		shellescape.Quoted(s.rootPassword), rootShellCommand, shellescape.Quoted(cmd))
	return s.Exec(ctx, wrapped)
}

// Upload truncates remotePath and writes data to it via `cat >`, the
// approach the daemon's predecessor used in the absence of an SFTP
// subsystem on constrained devices (see DESIGN.md for why this repo
// doesn't pull in a dedicated SFTP dependency).
func (s *sshSession) Upload(ctx context.Context, data []byte, remotePath string) error {
	s.touch()
	session, err := s.client.NewSession()
	if err != nil {
		return fmt.Errorf("opening SSH channel: %w", err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening stdin pipe: %w", err)
	}

	cmd := fmt.Sprintf("cat > %s", shellescape.Quoted(remotePath))
	if err := session.Start(cmd); err != nil {
		return fmt.Errorf("starting upload: %w", err)
	}

	if _, err := stdin.Write(data); err != nil {
		return fmt.Errorf("writing upload payload: %w", err)
	}
	stdin.Close()

	if err := session.Wait(); err != nil {
		return fmt.Errorf("upload to %s: %w", remotePath, err)
	}
	return nil
}

// Download reads remotePath in full via `cat`.
func (s *sshSession) Download(ctx context.Context, remotePath string) ([]byte, error) {
	s.touch()
	session, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening SSH channel: %w", err)
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout

	cmd := fmt.Sprintf("cat %s", shellescape.Quoted(remotePath))
	if err := session.Run(cmd); err != nil {
		return nil, fmt.Errorf("download from %s: %w", remotePath, err)
	}
	return stdout.Bytes(), nil
}

func (s *sshSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.mu.Unlock()
	return s.client.Close()
}

// splitTrimmedLines splits command output into lines the way the router
// expects: trailing newline dropped, no empty final element, \r stripped.
func splitTrimmedLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	raw := strings.Split(s, "\n")
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
