package pool

import (
	"context"
	"testing"

	"github.com/aurora-devkit/devbridged/pkg/buerrors"
)

func TestPoolExecUnknownDeviceReturnsNotFound(t *testing.T) {
	p := NewConnectionPool(&fakeTransport{})
	_, err := p.Exec(context.Background(), "nope", "ls", false)
	if err != buerrors.ErrDeviceNotFound {
		t.Fatalf("Exec on unknown device = %v, want ErrDeviceNotFound", err)
	}
}

func TestPoolExecRoutesToCorrectDevice(t *testing.T) {
	tr := &fakeTransport{}
	p := NewConnectionPool(tr)
	ctx := context.Background()
	p.AddDevice(ctx, testDevice("d1"))
	p.AddDevice(ctx, testDevice("d2"))

	if _, err := p.Exec(ctx, "d1", "echo a", false); err != nil {
		t.Fatalf("exec d1: %v", err)
	}
	if _, err := p.Exec(ctx, "d2", "echo b", false); err != nil {
		t.Fatalf("exec d2: %v", err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.sessions) != 2 {
		t.Fatalf("expected a session per device, got %d", len(tr.sessions))
	}
}

func TestPoolListIsSortedByHost(t *testing.T) {
	tr := &fakeTransport{}
	p := NewConnectionPool(tr)
	ctx := context.Background()
	p.AddDevice(ctx, testDevice("zeta"))
	p.AddDevice(ctx, testDevice("alpha"))
	p.AddDevice(ctx, testDevice("mid"))

	infos := p.List()
	if len(infos) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(infos))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, w := range want {
		if infos[i].Device.Host != w {
			t.Errorf("List()[%d].Host = %q, want %q", i, infos[i].Device.Host, w)
		}
	}
}

func TestPoolDropSessionAllDevices(t *testing.T) {
	tr := &fakeTransport{}
	p := NewConnectionPool(tr)
	ctx := context.Background()
	p.AddDevice(ctx, testDevice("d1"))
	p.AddDevice(ctx, testDevice("d2"))

	if _, err := p.Exec(ctx, "d1", "warm", false); err != nil {
		t.Fatalf("warm d1: %v", err)
	}
	if _, err := p.Exec(ctx, "d2", "warm", false); err != nil {
		t.Fatalf("warm d2: %v", err)
	}

	if err := p.DropSession(ctx, ""); err != nil {
		t.Fatalf("DropSession(all): %v", err)
	}

	for _, host := range []string{"d1", "d2"} {
		info, err := p.Info(host)
		if err != nil {
			t.Fatalf("Info(%s): %v", host, err)
		}
		if info.State.Kind != StateDisconnected {
			t.Errorf("device %s state = %v after DropSession(all), want Disconnected", host, info.State.Kind)
		}
	}
}
