package router

import (
	"context"
	"errors"
	"testing"

	"github.com/aurora-devkit/devbridged/pkg/buerrors"
	"github.com/aurora-devkit/devbridged/pkg/history"
	"github.com/aurora-devkit/devbridged/pkg/pool"
	"github.com/aurora-devkit/devbridged/pkg/scripts"
	"github.com/aurora-devkit/devbridged/pkg/wire"
)

// fakePool is an in-memory stand-in for *pool.ConnectionPool that records
// every call so tests can assert on exact sequencing.
type fakePool struct {
	devices map[string]bool
	calls   []string

	execFunc func(host, cmd string, asRoot bool) ([]string, error)
	uploads  map[string][]byte
	ensured  map[string]string // scriptName -> content last written
	dropped  []string
}

func newFakePool(devices ...string) *fakePool {
	m := make(map[string]bool, len(devices))
	for _, d := range devices {
		m[d] = true
	}
	return &fakePool{devices: m, uploads: make(map[string][]byte), ensured: make(map[string]string)}
}

func (p *fakePool) Exec(ctx context.Context, host, cmd string, asRoot bool) ([]string, error) {
	if !p.devices[host] {
		return nil, buerrors.ErrDeviceNotFound
	}
	p.calls = append(p.calls, "exec:"+cmd)
	if p.execFunc != nil {
		return p.execFunc(host, cmd, asRoot)
	}
	return []string{"ok"}, nil
}

func (p *fakePool) Upload(ctx context.Context, host string, data []byte, remotePath string) error {
	if !p.devices[host] {
		return buerrors.ErrDeviceNotFound
	}
	p.calls = append(p.calls, "upload:"+remotePath)
	p.uploads[remotePath] = data
	return nil
}

func (p *fakePool) Download(ctx context.Context, host, remotePath string) ([]byte, error) {
	if !p.devices[host] {
		return nil, buerrors.ErrDeviceNotFound
	}
	return p.uploads[remotePath], nil
}

func (p *fakePool) EnsureScript(ctx context.Context, host, scriptName, remotePath, content string) error {
	if !p.devices[host] {
		return buerrors.ErrDeviceNotFound
	}
	if p.ensured[scriptName] == content {
		p.calls = append(p.calls, "ensure-cached:"+scriptName)
		return nil
	}
	p.calls = append(p.calls, "ensure-upload:"+scriptName)
	p.ensured[scriptName] = content
	return nil
}

func (p *fakePool) DropSession(ctx context.Context, host string) error {
	p.dropped = append(p.dropped, host)
	return nil
}

func (p *fakePool) List() []pool.DeviceInfo { return nil }

func (p *fakePool) Info(host string) (pool.DeviceInfo, error) {
	return pool.DeviceInfo{}, nil
}

func (p *fakePool) UptimeSeconds() uint64 { return 42 }

func newTestRouter(p Pool) *Router {
	return New(p, "/tmp/devbridge-server-0.sock", make(chan struct{}))
}

func TestDispatchPing(t *testing.T) {
	r := newTestRouter(newFakePool())
	result := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdPing})
	if result.Success == nil || len(result.Success.Output.Lines) != 1 || result.Success.Output.Lines[0] != "pong" {
		t.Fatalf("Ping result = %+v, want Success{Lines:[pong]}", result)
	}
}

func TestDispatchUnknownDeviceReturnsDeviceNotFound(t *testing.T) {
	r := newTestRouter(newFakePool())
	result := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdShell, Device: "ghost", Command: "ls"})
	if result.Error == nil || result.Error.Kind != wire.ErrDeviceNotFound {
		t.Fatalf("Shell on unknown device = %+v, want Error{Kind:DeviceNotFound}", result)
	}
}

func TestDispatchTapOutOfBoundsIsInvalidRequest(t *testing.T) {
	r := newTestRouter(newFakePool("d1"))
	result := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdTap, Device: "d1", X: 5000, Y: 10})
	if result.Error == nil || result.Error.Kind != wire.ErrInvalidRequest {
		t.Fatalf("out-of-bounds Tap = %+v, want Error{Kind:InvalidRequest}", result)
	}
}

func TestDispatchInstallUploadsThenInstallsThenCleansUp(t *testing.T) {
	p := newFakePool("d1")
	r := newTestRouter(p)

	cmd := wire.Command{Type: wire.CmdInstall, Device: "d1", RPMPath: "/local/app.rpm", RPMData: []byte("rpm-bytes")}
	result := r.Dispatch(context.Background(), cmd)
	if result.Success == nil {
		t.Fatalf("Install result = %+v, want Success", result)
	}

	wantRemote := downloadsDir + "/app.rpm"
	if string(p.uploads[wantRemote]) != "rpm-bytes" {
		t.Fatalf("uploaded data = %q, want rpm-bytes at %s", p.uploads[wantRemote], wantRemote)
	}
	if len(p.calls) != 3 {
		t.Fatalf("expected upload, install exec, cleanup exec; got calls=%v", p.calls)
	}
	if p.calls[0] != "upload:"+wantRemote {
		t.Errorf("calls[0] = %q, want upload to %s", p.calls[0], wantRemote)
	}
}

func TestDispatchSwipeDirectionSkipsReuploadOnSecondCall(t *testing.T) {
	p := newFakePool("d1")
	r := newTestRouter(p)

	right := wire.SwipeRight
	cmd := wire.Command{
		Type:   wire.CmdSwipe,
		Device: "d1",
		SwipeMode: &wire.SwipeMode{Direction: &right},
	}

	if res := r.Dispatch(context.Background(), cmd); res.Error != nil {
		t.Fatalf("first swipe: %+v", res.Error)
	}
	if res := r.Dispatch(context.Background(), cmd); res.Error != nil {
		t.Fatalf("second swipe: %+v", res.Error)
	}

	uploadCount, cachedCount := 0, 0
	for _, c := range p.calls {
		switch c {
		case "ensure-upload:swipe":
			uploadCount++
		case "ensure-cached:swipe":
			cachedCount++
		}
	}
	if uploadCount != 1 || cachedCount != 1 {
		t.Errorf("expected exactly one upload and one cache hit across two swipes, got upload=%d cached=%d", uploadCount, cachedCount)
	}
	if p.ensured["swipe"] != scripts.SwipeScript() {
		t.Errorf("ensured script content mismatch")
	}
}

func TestDispatchReconnectOnBrokenPipeClearsSession(t *testing.T) {
	p := newFakePool("d1")
	p.execFunc = func(host, cmd string, asRoot bool) ([]string, error) {
		return nil, errors.New("broken pipe")
	}
	r := newTestRouter(p)

	shellResult := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdShell, Device: "d1", Command: "ls"})
	if shellResult.Error == nil {
		t.Fatal("expected shell command to fail on broken pipe")
	}

	reconnectResult := r.Dispatch(context.Background(), wire.Command{
		Type: wire.CmdReconnect, Device: "d1", DeviceSet: true,
	})
	if reconnectResult.Error != nil {
		t.Fatalf("Reconnect result = %+v, want Success", reconnectResult)
	}
	if len(p.dropped) != 1 || p.dropped[0] != "d1" {
		t.Errorf("DropSession calls = %v, want [d1]", p.dropped)
	}
}

func TestDispatchReconnectAllDevicesWhenDeviceNotSet(t *testing.T) {
	p := newFakePool("d1", "d2")
	r := newTestRouter(p)

	result := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdReconnect, DeviceSet: false})
	if result.Error != nil {
		t.Fatalf("Reconnect(all) = %+v, want Success", result)
	}
	if len(p.dropped) != 1 || p.dropped[0] != "" {
		t.Errorf("DropSession calls = %v, want a single call with empty host", p.dropped)
	}
}

func TestDispatchKillServerClosesShutdownChannel(t *testing.T) {
	p := newFakePool()
	shutdownCh := make(chan struct{})
	r := New(p, "/tmp/devbridge-server-0.sock", shutdownCh)

	result := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdKillServer})
	if result.Error != nil {
		t.Fatalf("KillServer = %+v, want Success", result)
	}

	select {
	case <-shutdownCh:
	default:
		t.Fatal("expected shutdown channel to be closed")
	}
}

func TestDispatchLogsRejectsClearWithoutForce(t *testing.T) {
	r := newTestRouter(newFakePool("d1"))
	result := r.Dispatch(context.Background(), wire.Command{
		Type: wire.CmdLogs, Device: "d1",
		LogsArgs: &wire.LogsArgs{Lines: 10, Clear: true},
	})
	if result.Error == nil || result.Error.Kind != wire.ErrInvalidRequest {
		t.Fatalf("Logs{Clear:true,Force:false} = %+v, want InvalidRequest", result)
	}
}

func TestDispatchLogsRejectsKernelAndUnitTogether(t *testing.T) {
	unit := "some.service"
	r := newTestRouter(newFakePool("d1"))
	result := r.Dispatch(context.Background(), wire.Command{
		Type: wire.CmdLogs, Device: "d1",
		LogsArgs: &wire.LogsArgs{Lines: 10, Kernel: true, Unit: &unit},
	})
	if result.Error == nil || result.Error.Kind != wire.ErrInvalidRequest {
		t.Fatalf("Logs{Kernel,Unit} = %+v, want InvalidRequest", result)
	}
}

func TestDispatchHistoryWithNoStoreReturnsEmptyList(t *testing.T) {
	r := newTestRouter(newFakePool("d1"))
	result := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdHistory, Device: "d1"})
	if result.Success == nil || result.Success.Output.History == nil {
		t.Fatalf("History with no store = %+v, want Success{History:[]}", result)
	}
	if len(result.Success.Output.History) != 0 {
		t.Fatalf("History with no store returned %d entries, want 0", len(result.Success.Output.History))
	}
}

func TestDispatchRecordsHistoryAndHistoryCommandReturnsIt(t *testing.T) {
	r := newTestRouter(newFakePool("d1")).WithHistory(history.NewMemoryStore(10))

	if res := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdShell, Device: "d1", Command: "ls"}); res.Error != nil {
		t.Fatalf("shell: %+v", res.Error)
	}
	if res := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdShell, Device: "ghost", Command: "ls"}); res.Error == nil {
		t.Fatal("expected shell on unknown device to fail")
	}

	result := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdHistory, Device: "d1", Limit: 10})
	if result.Success == nil {
		t.Fatalf("History = %+v, want Success", result)
	}
	entries := result.Success.Output.History
	if len(entries) != 1 {
		t.Fatalf("got %d history entries, want 1 (the failed lookup on ghost is not recorded under d1)", len(entries))
	}
	if entries[0].Command != string(wire.CmdShell) || !entries[0].Succeeded {
		t.Errorf("entry = %+v, want a succeeded Shell entry", entries[0])
	}
}

func TestDispatchReconnectIsNotRecordedInHistory(t *testing.T) {
	r := newTestRouter(newFakePool("d1")).WithHistory(history.NewMemoryStore(10))

	r.Dispatch(context.Background(), wire.Command{Type: wire.CmdReconnect, Device: "d1", DeviceSet: true})

	result := r.Dispatch(context.Background(), wire.Command{Type: wire.CmdHistory, Device: "d1"})
	if len(result.Success.Output.History) != 0 {
		t.Errorf("expected Reconnect to be excluded from history, got %+v", result.Success.Output.History)
	}
}
