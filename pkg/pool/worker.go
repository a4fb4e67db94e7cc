package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aurora-devkit/devbridged/pkg/buerrors"
	"github.com/aurora-devkit/devbridged/pkg/deviceconfig"
	"github.com/aurora-devkit/devbridged/pkg/dlog"
	"github.com/aurora-devkit/devbridged/pkg/transport"
)

const (
	queueCapacity       = 100
	initialBackoff      = time.Second
	maxBackoff          = 60 * time.Second
	backoffMultiplier   = 2
	healthCheckInterval = 60 * time.Second
)

// OperationKind discriminates the work a DeviceWorker can be asked to do.
type OperationKind int

const (
	OpCommand OperationKind = iota
	OpUpload
	OpDownload
	OpEnsureScript
	opDropSession
)

// Operation is one unit of work enqueued on a device's worker. Exactly one
// of the kind-specific fields is meaningful, matching OperationKind.
type Operation struct {
	Kind OperationKind

	// OpCommand
	Command string
	AsRoot  bool

	// OpUpload
	UploadData []byte
	RemotePath string // shared with OpDownload/OpUpload

	// OpDownload uses RemotePath above.

	// OpEnsureScript
	ScriptName    string
	ScriptContent string
}

// OperationResult is what a completed Operation hands back to its caller.
type OperationResult struct {
	Lines []string
	Data  []byte
}

type request struct {
	op    Operation
	reply chan response
}

type response struct {
	result OperationResult
	err    error
}

// DeviceWorker owns exactly one device's session and processes its queue
// strictly serially: one operation's connect/execute/reply cycle always
// finishes before the next begins.
type DeviceWorker struct {
	host   string
	port   uint16
	creds  transport.Credentials
	tr     transport.Transport
	device deviceconfig.Device

	queue chan request

	mu              sync.RWMutex
	state           ConnectionState
	stats           ConnectionStats
	connectedSince  time.Time
	session         transport.Session
	uploadedScripts map[string]int
	backoff         time.Duration
	lastHealthCheck time.Time

	startOnce sync.Once
	done      chan struct{}
}

// NewDeviceWorker constructs a worker for device, not yet running.
func NewDeviceWorker(device deviceconfig.Device, tr transport.Transport) *DeviceWorker {
	return &DeviceWorker{
		host: device.Host,
		port: device.Port,
		creds: transport.Credentials{
			User:         device.User,
			KeyPath:      device.KeyPath,
			RootPassword: device.RootPassword,
		},
		tr:              tr,
		device:          device,
		queue:           make(chan request, queueCapacity),
		state:           Disconnected(),
		uploadedScripts: make(map[string]int),
		backoff:         initialBackoff,
		done:            make(chan struct{}),
	}
}

// Start launches the worker's processing goroutine. Safe to call once;
// subsequent calls are no-ops.
func (w *DeviceWorker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.run(ctx)
	})
}

// Stop closes the worker's queue so run() exits once the requests already
// queued have been processed.
func (w *DeviceWorker) Stop() {
	close(w.queue)
}

// Snapshot returns the worker's current state and stats without touching
// its queue, for status reporting.
func (w *DeviceWorker) Snapshot() (ConnectionState, ConnectionStats) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state, w.stats
}

// Submit enqueues op and blocks until it completes or ctx is cancelled.
// It returns the operation's transport/execution error, ctx.Err() on
// cancellation, or buerrors.ErrQueueClosed if the reply channel closes
// without an answer. Unknown devices are reported by the pool layer.
func (w *DeviceWorker) Submit(ctx context.Context, op Operation) (OperationResult, error) {
	reply := make(chan response, 1)
	select {
	case w.queue <- request{op: op, reply: reply}:
	case <-ctx.Done():
		return OperationResult{}, ctx.Err()
	}

	select {
	case resp, ok := <-reply:
		if !ok {
			return OperationResult{}, fmt.Errorf("device %s: %w", w.host, buerrors.ErrQueueClosed)
		}
		return resp.result, resp.err
	case <-ctx.Done():
		return OperationResult{}, ctx.Err()
	}
}

// DropSession asks the worker to tear down its live session, if any. It is
// queued like any other operation so it respects the worker's ordering.
func (w *DeviceWorker) DropSession(ctx context.Context) error {
	_, err := w.Submit(ctx, Operation{Kind: opDropSession})
	return err
}

func (w *DeviceWorker) run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		w.mu.Lock()
		if w.session != nil {
			w.session.Close()
			w.session = nil
		}
		w.mu.Unlock()
	}()

	for req := range w.queue {
		if req.op.Kind == opDropSession {
			w.dropSession()
			req.reply <- response{}
			close(req.reply)
			continue
		}

		w.runHealthCheck(ctx)

		if err := w.ensureConnected(ctx); err != nil {
			w.advanceBackoff()
			req.reply <- response{err: err}
			close(req.reply)
			continue
		}

		result, err := w.executeOperation(ctx, req.op)
		w.recordOutcome(err)
		req.reply <- response{result: result, err: err}
		close(req.reply)
	}
}

func (w *DeviceWorker) dropSession() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session != nil {
		w.session.Close()
		w.session = nil
	}
	w.uploadedScripts = make(map[string]int)
	w.state = Disconnected()
}

func (w *DeviceWorker) runHealthCheck(ctx context.Context) {
	w.mu.Lock()
	session := w.session
	due := session != nil && time.Since(w.lastHealthCheck) > healthCheckInterval
	w.mu.Unlock()
	if !due {
		return
	}

	_, err := session.Exec(ctx, "echo 1")
	w.mu.Lock()
	w.lastHealthCheck = time.Now()
	if err != nil {
		dlog.WithDevice(w.host).WithField("error", err).Debug("health check failed, dropping session")
		if w.session != nil {
			w.session.Close()
		}
		w.session = nil
		w.uploadedScripts = make(map[string]int)
		w.state = Disconnected()
	}
	w.mu.Unlock()
}

func (w *DeviceWorker) ensureConnected(ctx context.Context) error {
	w.mu.RLock()
	haveSession := w.session != nil
	w.mu.RUnlock()
	if haveSession {
		return nil
	}

	w.mu.Lock()
	attempt := w.stats.ConnectAttempts + 1
	w.state = Connecting(uint32(attempt))
	w.stats.ConnectAttempts = attempt
	w.mu.Unlock()

	session, err := w.tr.OpenSession(ctx, w.host, w.port, w.creds)
	if err != nil {
		w.mu.Lock()
		nextRetry := time.Now().Add(w.backoff)
		w.state = Errored(err.Error(), nextRetry)
		w.stats.LastError = err.Error()
		w.mu.Unlock()
		dlog.WithDevice(w.host).WithField("attempt", attempt).WithField("error", err).
			Warn("connect attempt failed")
		return err
	}

	w.mu.Lock()
	w.session = session
	w.connectedSince = time.Now()
	w.state = Connected(w.connectedSince)
	w.uploadedScripts = make(map[string]int)
	w.backoff = initialBackoff
	w.lastHealthCheck = w.connectedSince
	w.mu.Unlock()
	dlog.WithDevice(w.host).Info("connected")
	return nil
}

func (w *DeviceWorker) advanceBackoff() {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.backoff * backoffMultiplier
	if next > maxBackoff {
		next = maxBackoff
	}
	w.backoff = next
}

func (w *DeviceWorker) recordOutcome(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err == nil {
		w.stats.SuccessfulCommands++
		w.state = Connected(w.connectedSince)
		return
	}

	w.stats.FailedCommands++
	w.stats.LastError = err.Error()
	if transport.IsConnectivityError(err) {
		if w.session != nil {
			w.session.Close()
		}
		w.session = nil
		w.uploadedScripts = make(map[string]int)
		w.state = Disconnected()
		return
	}
	w.state = Connected(w.connectedSince)
}

func (w *DeviceWorker) executeOperation(ctx context.Context, op Operation) (OperationResult, error) {
	w.mu.RLock()
	session := w.session
	w.mu.RUnlock()
	if session == nil {
		return OperationResult{}, fmt.Errorf("device %s has no active session", w.host)
	}

	switch op.Kind {
	case OpCommand:
		var (
			res transport.ExecResult
			err error
		)
		if op.AsRoot {
			res, err = session.ExecAsRoot(ctx, op.Command)
		} else {
			res, err = session.Exec(ctx, op.Command)
		}
		if err != nil {
			return OperationResult{}, err
		}
		if res.ExitCode != 0 {
			return OperationResult{}, commandFailedError(res)
		}
		return OperationResult{Lines: res.StdoutLines}, nil

	case OpUpload:
		if err := session.Upload(ctx, op.UploadData, op.RemotePath); err != nil {
			return OperationResult{}, err
		}
		return OperationResult{}, nil

	case OpDownload:
		data, err := session.Download(ctx, op.RemotePath)
		if err != nil {
			return OperationResult{}, err
		}
		return OperationResult{Data: data}, nil

	case OpEnsureScript:
		if err := w.ensureScript(ctx, session, op); err != nil {
			return OperationResult{}, err
		}
		return OperationResult{}, nil

	default:
		return OperationResult{}, fmt.Errorf("unknown operation kind %d", op.Kind)
	}
}

func (w *DeviceWorker) ensureScript(ctx context.Context, session transport.Session, op Operation) error {
	want := len(op.ScriptContent)

	w.mu.RLock()
	have, ok := w.uploadedScripts[op.ScriptName]
	w.mu.RUnlock()
	if ok && have == want {
		return nil
	}

	checkCmd := fmt.Sprintf("test -f %s && stat -c %%s %s || echo 0", op.RemotePath, op.RemotePath)
	res, err := session.Exec(ctx, checkCmd)
	if err == nil && len(res.StdoutLines) > 0 {
		var remoteLen int
		fmt.Sscanf(res.StdoutLines[0], "%d", &remoteLen)
		if remoteLen == want {
			w.mu.Lock()
			w.uploadedScripts[op.ScriptName] = want
			w.mu.Unlock()
			return nil
		}
	}

	if err := session.Upload(ctx, []byte(op.ScriptContent), op.RemotePath); err != nil {
		return err
	}
	chmodRes, err := session.Exec(ctx, fmt.Sprintf("chmod +x %s", op.RemotePath))
	if err != nil {
		return err
	}
	if chmodRes.ExitCode != 0 {
		return commandFailedError(chmodRes)
	}

	w.mu.Lock()
	w.uploadedScripts[op.ScriptName] = want
	w.mu.Unlock()
	return nil
}

func commandFailedError(res transport.ExecResult) error {
	if len(res.StderrLines) > 0 {
		return fmt.Errorf("%s", joinLines(res.StderrLines))
	}
	if len(res.StdoutLines) > 0 {
		return fmt.Errorf("%s", joinLines(res.StdoutLines))
	}
	return fmt.Errorf("command failed with exit code %d", res.ExitCode)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
