package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aurora-devkit/devbridged/pkg/deviceconfig"
	"github.com/aurora-devkit/devbridged/pkg/transport"
)

// fakeSession records every call it receives so tests can assert ordering
// and content without a real device.
type fakeSession struct {
	mu      sync.Mutex
	closed  bool
	execLog []string
	files   map[string][]byte
	failNext error
}

func newFakeSession() *fakeSession {
	return &fakeSession{files: make(map[string][]byte)}
}

func (s *fakeSession) Exec(ctx context.Context, cmd string) (transport.ExecResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execLog = append(s.execLog, cmd)
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return transport.ExecResult{}, err
	}
	if cmd == "echo 1" {
		return transport.ExecResult{StdoutLines: []string{"1"}}, nil
	}
	return transport.ExecResult{StdoutLines: []string{"0"}}, nil
}

func (s *fakeSession) ExecAsRoot(ctx context.Context, cmd string) (transport.ExecResult, error) {
	return s.Exec(ctx, "ROOT: "+cmd)
}

func (s *fakeSession) Upload(ctx context.Context, data []byte, remotePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execLog = append(s.execLog, "upload:"+remotePath)
	s.files[remotePath] = data
	return nil
}

func (s *fakeSession) Download(ctx context.Context, remotePath string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[remotePath], nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeTransport struct {
	mu        sync.Mutex
	openCount int
	failOpen  error
	sessions  []*fakeSession
}

func (t *fakeTransport) OpenSession(ctx context.Context, host string, port uint16, creds transport.Credentials) (transport.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openCount++
	if t.failOpen != nil {
		return nil, t.failOpen
	}
	s := newFakeSession()
	t.sessions = append(t.sessions, s)
	return s, nil
}

func testDevice(host string) deviceconfig.Device {
	return deviceconfig.Device{Host: host, Port: 22, KeyPath: "/k", User: "u", Enabled: true}
}

func TestWorkerConnectsLazilyAndReusesSession(t *testing.T) {
	tr := &fakeTransport{}
	w := NewDeviceWorker(testDevice("d1"), tr)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	if state, _ := w.Snapshot(); state.Kind != StateDisconnected {
		t.Fatalf("expected initial state disconnected, got %v", state.Kind)
	}

	if _, err := w.Submit(ctx, Operation{Kind: OpCommand, Command: "ls"}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := w.Submit(ctx, Operation{Kind: OpCommand, Command: "pwd"}); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	tr.mu.Lock()
	opens := tr.openCount
	tr.mu.Unlock()
	if opens != 1 {
		t.Errorf("expected exactly one OpenSession call, got %d", opens)
	}

	state, _ := w.Snapshot()
	if state.Kind != StateConnected {
		t.Errorf("expected Connected after success, got %v", state.Kind)
	}
}

func TestWorkerSerializesOperations(t *testing.T) {
	tr := &fakeTransport{}
	w := NewDeviceWorker(testDevice("d1"), tr)
	ctx := context.Background()
	w.Start(ctx)
	defer w.Stop()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Submit(ctx, Operation{Kind: OpCommand, Command: "noop"})
		}()
	}
	wg.Wait()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.sessions) != 1 {
		t.Fatalf("expected one session across concurrent submits, got %d", len(tr.sessions))
	}
	// every exec call landed on the single session, proving no interleaving
	// created a second connection out from under the worker.
	if len(tr.sessions[0].execLog) != n {
		t.Errorf("expected %d exec calls, got %d", n, len(tr.sessions[0].execLog))
	}
}

func TestWorkerBackoffDoublesAndCaps(t *testing.T) {
	tr := &fakeTransport{failOpen: errors.New("dial refused")}
	w := NewDeviceWorker(testDevice("d1"), tr)
	ctx := context.Background()
	w.Start(ctx)
	defer w.Stop()

	wantBackoffs := []time.Duration{
		initialBackoff,
		2 * initialBackoff,
		4 * initialBackoff,
	}
	for _, want := range wantBackoffs {
		w.mu.RLock()
		got := w.backoff
		w.mu.RUnlock()
		if got != want {
			t.Errorf("backoff = %v, want %v", got, want)
		}
		if _, err := w.Submit(ctx, Operation{Kind: OpCommand, Command: "x"}); err == nil {
			t.Fatal("expected error while OpenSession fails")
		}
	}

	// drive backoff to its ceiling.
	for i := 0; i < 10; i++ {
		w.Submit(ctx, Operation{Kind: OpCommand, Command: "x"})
	}
	w.mu.RLock()
	got := w.backoff
	w.mu.RUnlock()
	if got != maxBackoff {
		t.Errorf("backoff after many failures = %v, want cap %v", got, maxBackoff)
	}
}

func TestWorkerClearsSessionOnConnectivityError(t *testing.T) {
	tr := &fakeTransport{}
	w := NewDeviceWorker(testDevice("d1"), tr)
	ctx := context.Background()
	w.Start(ctx)
	defer w.Stop()

	if _, err := w.Submit(ctx, Operation{Kind: OpCommand, Command: "ok"}); err != nil {
		t.Fatalf("warm-up submit: %v", err)
	}

	tr.mu.Lock()
	tr.sessions[0].failNext = errors.New("broken pipe")
	tr.mu.Unlock()

	if _, err := w.Submit(ctx, Operation{Kind: OpCommand, Command: "boom"}); err == nil {
		t.Fatal("expected the broken pipe error to surface")
	}

	state, _ := w.Snapshot()
	if state.Kind != StateDisconnected {
		t.Errorf("expected Disconnected after connectivity error, got %v", state.Kind)
	}

	if _, err := w.Submit(ctx, Operation{Kind: OpCommand, Command: "again"}); err != nil {
		t.Fatalf("submit after reconnect: %v", err)
	}
	tr.mu.Lock()
	opens := tr.openCount
	tr.mu.Unlock()
	if opens != 2 {
		t.Errorf("expected a second OpenSession after the session was dropped, got %d opens", opens)
	}
}

func TestEnsureScriptSkipsReuploadOnMatchingContent(t *testing.T) {
	tr := &fakeTransport{}
	w := NewDeviceWorker(testDevice("d1"), tr)
	ctx := context.Background()
	w.Start(ctx)
	defer w.Stop()

	op := Operation{Kind: OpEnsureScript, ScriptName: "tap", RemotePath: "/tmp/tap.py", ScriptContent: "print(1)"}
	if _, err := w.Submit(ctx, op); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if _, err := w.Submit(ctx, op); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	tr.mu.Lock()
	uploads := 0
	for _, c := range tr.sessions[0].execLog {
		if len(c) >= 7 && c[:7] == "upload:" {
			uploads++
		}
	}
	tr.mu.Unlock()
	if uploads != 1 {
		t.Errorf("expected exactly one upload across two identical EnsureScript calls, got %d", uploads)
	}
}

func TestDropSessionResetsState(t *testing.T) {
	tr := &fakeTransport{}
	w := NewDeviceWorker(testDevice("d1"), tr)
	ctx := context.Background()
	w.Start(ctx)
	defer w.Stop()

	if _, err := w.Submit(ctx, Operation{Kind: OpCommand, Command: "ok"}); err != nil {
		t.Fatalf("warm-up: %v", err)
	}
	if err := w.DropSession(ctx); err != nil {
		t.Fatalf("DropSession: %v", err)
	}

	state, _ := w.Snapshot()
	if state.Kind != StateDisconnected {
		t.Errorf("expected Disconnected after DropSession, got %v", state.Kind)
	}

	if _, err := w.Submit(ctx, Operation{Kind: OpCommand, Command: "again"}); err != nil {
		t.Fatalf("submit after drop: %v", err)
	}
	tr.mu.Lock()
	opens := tr.openCount
	tr.mu.Unlock()
	if opens != 2 {
		t.Errorf("expected reconnect after DropSession, got %d opens", opens)
	}
}
