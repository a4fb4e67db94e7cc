// Package pool implements the per-device worker pool: one goroutine and one
// bounded queue per device, serializing every command, file transfer and
// script upload that device receives.
package pool

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aurora-devkit/devbridged/pkg/buerrors"
	"github.com/aurora-devkit/devbridged/pkg/deviceconfig"
	"github.com/aurora-devkit/devbridged/pkg/transport"
)

// DeviceInfo is a read-only snapshot of one device's pool-level bookkeeping,
// used to build ServerStatus.
type DeviceInfo struct {
	Device deviceconfig.Device
	State  ConnectionState
	Stats  ConnectionStats
}

// ConnectionPool owns every device's worker and is the only thing the
// router talks to when it needs a device to do something.
type ConnectionPool struct {
	tr transport.Transport

	mu      sync.RWMutex
	workers map[string]*DeviceWorker
	devices map[string]deviceconfig.Device

	startedAt time.Time
}

// NewConnectionPool constructs an empty pool. AddDevice registers devices
// before the socket server starts accepting requests.
func NewConnectionPool(tr transport.Transport) *ConnectionPool {
	return &ConnectionPool{
		tr:        tr,
		workers:   make(map[string]*DeviceWorker),
		devices:   make(map[string]deviceconfig.Device),
		startedAt: time.Now(),
	}
}

// UptimeSeconds reports how long this pool (and by extension the daemon)
// has been running.
func (p *ConnectionPool) UptimeSeconds() uint64 {
	return uint64(time.Since(p.startedAt).Seconds())
}

// AddDevice registers a device and starts its worker goroutine.
func (p *ConnectionPool) AddDevice(ctx context.Context, device deviceconfig.Device) {
	w := NewDeviceWorker(device, p.tr)
	w.Start(ctx)

	p.mu.Lock()
	p.workers[device.Host] = w
	p.devices[device.Host] = device
	p.mu.Unlock()
}

func (p *ConnectionPool) worker(host string) (*DeviceWorker, error) {
	p.mu.RLock()
	w, ok := p.workers[host]
	p.mu.RUnlock()
	if !ok {
		return nil, buerrors.ErrDeviceNotFound
	}
	return w, nil
}

// Exec runs cmd on host, as root if asRoot is set.
func (p *ConnectionPool) Exec(ctx context.Context, host, cmd string, asRoot bool) ([]string, error) {
	w, err := p.worker(host)
	if err != nil {
		return nil, err
	}
	result, err := w.Submit(ctx, Operation{Kind: OpCommand, Command: cmd, AsRoot: asRoot})
	if err != nil {
		return nil, err
	}
	return result.Lines, nil
}

// Upload writes data to remotePath on host.
func (p *ConnectionPool) Upload(ctx context.Context, host string, data []byte, remotePath string) error {
	w, err := p.worker(host)
	if err != nil {
		return err
	}
	_, err = w.Submit(ctx, Operation{Kind: OpUpload, UploadData: data, RemotePath: remotePath})
	return err
}

// Download reads remotePath from host.
func (p *ConnectionPool) Download(ctx context.Context, host, remotePath string) ([]byte, error) {
	w, err := p.worker(host)
	if err != nil {
		return nil, err
	}
	result, err := w.Submit(ctx, Operation{Kind: OpDownload, RemotePath: remotePath})
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// EnsureScript uploads content to remotePath under scriptName unless a
// previous call on the same live session already recorded content of the
// same length, or the file already on the device has that length. Only
// lengths are compared, not the bytes themselves.
func (p *ConnectionPool) EnsureScript(ctx context.Context, host, scriptName, remotePath, content string) error {
	w, err := p.worker(host)
	if err != nil {
		return err
	}
	_, err = w.Submit(ctx, Operation{
		Kind:          OpEnsureScript,
		ScriptName:    scriptName,
		RemotePath:    remotePath,
		ScriptContent: content,
	})
	return err
}

// DropSession drops host's live session, if one exists. When host is the
// empty string every registered device's session is dropped.
func (p *ConnectionPool) DropSession(ctx context.Context, host string) error {
	if host != "" {
		w, err := p.worker(host)
		if err != nil {
			return err
		}
		return w.DropSession(ctx)
	}

	p.mu.RLock()
	workers := make([]*DeviceWorker, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.RUnlock()

	var firstErr error
	for _, w := range workers {
		if err := w.DropSession(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// List returns every registered device's info, ordered by host for
// deterministic status output.
func (p *ConnectionPool) List() []DeviceInfo {
	p.mu.RLock()
	hosts := make([]string, 0, len(p.workers))
	workers := make(map[string]*DeviceWorker, len(p.workers))
	devices := make(map[string]deviceconfig.Device, len(p.devices))
	for h, w := range p.workers {
		hosts = append(hosts, h)
		workers[h] = w
		devices[h] = p.devices[h]
	}
	p.mu.RUnlock()

	sort.Strings(hosts)

	out := make([]DeviceInfo, 0, len(hosts))
	for _, h := range hosts {
		state, stats := workers[h].Snapshot()
		out = append(out, DeviceInfo{Device: devices[h], State: state, Stats: stats})
	}
	return out
}

// Info returns a single device's info.
func (p *ConnectionPool) Info(host string) (DeviceInfo, error) {
	w, err := p.worker(host)
	if err != nil {
		return DeviceInfo{}, err
	}
	p.mu.RLock()
	device := p.devices[host]
	p.mu.RUnlock()
	state, stats := w.Snapshot()
	return DeviceInfo{Device: device, State: state, Stats: stats}, nil
}

