// Package router turns wire.Command requests into pool operations and
// wire.Result responses. It owns every device-facing "recipe" — the D-Bus
// calls, shell one-liners and script installs a command actually needs —
// so the wire protocol stays a closed, stable set of verbs.
package router

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aurora-devkit/devbridged/pkg/buerrors"
	"github.com/aurora-devkit/devbridged/pkg/dlog"
	"github.com/aurora-devkit/devbridged/pkg/history"
	"github.com/aurora-devkit/devbridged/pkg/pool"
	"github.com/aurora-devkit/devbridged/pkg/scripts"
	"github.com/aurora-devkit/devbridged/pkg/shellescape"
	"github.com/aurora-devkit/devbridged/pkg/wire"
)

// Pool is the subset of *pool.ConnectionPool the router needs, narrowed so
// tests can substitute a fake.
type Pool interface {
	Exec(ctx context.Context, host, cmd string, asRoot bool) ([]string, error)
	Upload(ctx context.Context, host string, data []byte, remotePath string) error
	Download(ctx context.Context, host, remotePath string) ([]byte, error)
	EnsureScript(ctx context.Context, host, scriptName, remotePath, content string) error
	DropSession(ctx context.Context, host string) error
	List() []pool.DeviceInfo
	Info(host string) (pool.DeviceInfo, error)
	UptimeSeconds() uint64
}

// Router dispatches wire.Command values against a Pool.
type Router struct {
	pool       Pool
	socketPath string
	history    history.Store

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New constructs a Router. shutdownCh is closed exactly once, when a
// KillServer command is dispatched; the daemon's main loop selects on it to
// trigger a graceful exit.
func New(p Pool, socketPath string, shutdownCh chan struct{}) *Router {
	return &Router{pool: p, socketPath: socketPath, shutdownCh: shutdownCh}
}

// WithHistory attaches a command-history store. Every device command's
// outcome except Reconnect and History is recorded there; without one, the
// History command always returns an empty list. Returns r for chaining at
// construction time.
func (r *Router) WithHistory(h history.Store) *Router {
	r.history = h
	return r
}

// recordHistory is a best-effort fire-and-forget: history is an inspection
// aid, never a reason to fail or delay the command it's recording.
func (r *Router) recordHistory(ctx context.Context, device, command string, succeeded bool) {
	if r.history == nil || device == "" {
		return
	}
	r.history.Record(ctx, device, history.Entry{Command: command, At: time.Now(), Succeeded: succeeded})
}

// Dispatch runs cmd and returns its wire-level result. It never returns a
// Go error: every failure is encoded into the Result per spec.
func (r *Router) Dispatch(ctx context.Context, cmd wire.Command) (result wire.Result) {
	log := dlog.WithOperation(string(cmd.Type))
	if cmd.Device != "" {
		log = log.WithField("device", cmd.Device)
	}

	if cmd.Type != wire.CmdHistory && cmd.Type != wire.CmdReconnect {
		defer func() { r.recordHistory(ctx, cmd.Device, string(cmd.Type), result.Error == nil) }()
	}

	switch cmd.Type {
	case wire.CmdPing:
		return successLines([]string{"pong"})

	case wire.CmdShell:
		lines, err := r.pool.Exec(ctx, cmd.Device, cmd.Command, cmd.Root)
		if err != nil {
			return errorResult(err)
		}
		return successLines(lines)

	case wire.CmdInstall:
		lines, err := r.executeInstall(ctx, cmd.Device, cmd.RPMPath, cmd.RPMData)
		if err != nil {
			return errorResult(err)
		}
		return successLines(lines)

	case wire.CmdUninstall:
		if err := validatePackageName(cmd.AppName); err != nil {
			return invalidRequest(err)
		}
		lines, err := r.pool.Exec(ctx, cmd.Device, uninstallCommand(cmd.AppName), false)
		if err != nil {
			return errorResult(err)
		}
		return successLines(lines)

	case wire.CmdPackages:
		lines, err := r.executePackages(ctx, cmd.Device, cmd.Filter)
		if err != nil {
			return errorResult(err)
		}
		return successLines(lines)

	case wire.CmdPush:
		n := len(cmd.Data)
		if err := r.pool.Upload(ctx, cmd.Device, cmd.Data, cmd.RemotePath); err != nil {
			return errorResult(err)
		}
		return successLines([]string{fmt.Sprintf("%s: %d bytes", cmd.RemotePath, n)})

	case wire.CmdPull:
		data, err := r.pool.Download(ctx, cmd.Device, cmd.RemotePath)
		if err != nil {
			return errorResult(err)
		}
		return successBinary(data)

	case wire.CmdInfo:
		info, err := r.executeInfo(ctx, cmd.Device)
		if err != nil {
			return errorResult(err)
		}
		return successDeviceInfo(info)

	case wire.CmdTap:
		if err := validateTap(cmd); err != nil {
			return invalidRequest(err)
		}
		lines, err := r.executeTap(ctx, cmd)
		if err != nil {
			return errorResult(err)
		}
		return successLines(lines)

	case wire.CmdSwipe:
		if err := validateSwipe(cmd.SwipeMode); err != nil {
			return invalidRequest(err)
		}
		lines, err := r.executeSwipe(ctx, cmd)
		if err != nil {
			return errorResult(err)
		}
		return successLines(lines)

	case wire.CmdKey:
		lines, err := r.executeKey(ctx, cmd.Device, cmd.KeyName)
		if err != nil {
			return errorResult(err)
		}
		return successLines(lines)

	case wire.CmdScreenshot:
		data, err := r.executeScreenshot(ctx, cmd.Device)
		if err != nil {
			return errorResult(err)
		}
		return successBinary(data)

	case wire.CmdLaunch:
		if err := validateAppName(cmd.AppName); err != nil {
			return invalidRequest(err)
		}
		lines, err := r.pool.Exec(ctx, cmd.Device, launchCommand(cmd.AppName), false)
		if err != nil {
			return errorResult(err)
		}
		return successLines(lines)

	case wire.CmdStop:
		if err := validateAppName(cmd.AppName); err != nil {
			return invalidRequest(err)
		}
		lines, err := r.pool.Exec(ctx, cmd.Device, stopCommand(cmd.AppName), false)
		if err != nil {
			return errorResult(err)
		}
		return successLines(lines)

	case wire.CmdLogs:
		if err := validateLogsArgs(cmd.LogsArgs); err != nil {
			return invalidRequest(err)
		}
		lines, err := r.executeLogs(ctx, cmd.Device, cmd.LogsArgs)
		if err != nil {
			return errorResult(err)
		}
		return successLines(lines)

	case wire.CmdReconnect:
		device := ""
		if cmd.DeviceSet {
			device = cmd.Device
		}
		if err := r.pool.DropSession(ctx, device); err != nil {
			return errorResult(err)
		}
		if device == "" {
			return successLines([]string{"Reconnect requested for all devices"})
		}
		return successLines([]string{fmt.Sprintf("Reconnect requested for %s", device)})

	case wire.CmdOpen:
		if cmd.URL == "" {
			return invalidRequest(fmt.Errorf("url cannot be empty"))
		}
		_, err := r.pool.Exec(ctx, cmd.Device, openURLCommand(cmd.URL), false)
		if err != nil {
			return errorResult(err)
		}
		return successLines([]string{fmt.Sprintf("Opened: %s", cmd.URL)})

	case wire.CmdServerStat:
		status, err := r.buildServerStatus()
		if err != nil {
			return wire.Result{Error: &wire.ErrorResult{Message: err.Error(), Kind: wire.ErrServerError}}
		}
		return successStatus(status)

	case wire.CmdKillServer:
		log.Info("kill server requested")
		r.shutdownOnce.Do(func() { close(r.shutdownCh) })
		return successLines([]string{"Server shutdown initiated"})

	case wire.CmdHistory:
		return r.executeHistory(ctx, cmd.Device, cmd.Limit)

	default:
		return invalidRequest(fmt.Errorf("unknown command type %q", cmd.Type))
	}
}

func successLines(lines []string) wire.Result {
	return wire.Result{Success: &wire.SuccessResult{Output: wire.LinesOutput(lines)}}
}

func successBinary(data []byte) wire.Result {
	return wire.Result{Success: &wire.SuccessResult{Output: wire.BinaryOutput(data)}}
}

func successStatus(status wire.ServerStatus) wire.Result {
	return wire.Result{Success: &wire.SuccessResult{Output: wire.Output{Status: &status}}}
}

func successDeviceInfo(info wire.DeviceInfo) wire.Result {
	return wire.Result{Success: &wire.SuccessResult{Output: wire.Output{DeviceInfo: &info}}}
}

func successHistory(entries []wire.HistoryEntry) wire.Result {
	return wire.Result{Success: &wire.SuccessResult{Output: wire.Output{History: entries}}}
}

func invalidRequest(err error) wire.Result {
	return wire.Result{Error: &wire.ErrorResult{Message: err.Error(), Kind: wire.ErrInvalidRequest}}
}

func errorResult(err error) wire.Result {
	return wire.Result{Error: &wire.ErrorResult{Message: err.Error(), Kind: errKindFor(err)}}
}

func errKindFor(err error) wire.ErrorKind {
	if errors.Is(err, buerrors.ErrDeviceNotFound) {
		return wire.ErrDeviceNotFound
	}
	if errors.Is(err, buerrors.ErrQueueClosed) {
		return wire.ErrServerError
	}
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return wire.ErrDeviceNotFound
	}
	return wire.ErrCommandFailed
}

func (r *Router) executeHistory(ctx context.Context, device string, limit uint) wire.Result {
	if r.history == nil {
		return successHistory([]wire.HistoryEntry{})
	}
	entries, err := r.history.Recent(ctx, device, int(limit))
	if err != nil {
		return errorResult(err)
	}
	out := make([]wire.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = wire.HistoryEntry{Command: e.Command, AtUnix: e.At.Unix(), Succeeded: e.Succeeded}
	}
	return successHistory(out)
}

func (r *Router) executeInstall(ctx context.Context, device, rpmPath string, rpmData []byte) ([]string, error) {
	filename := path.Base(rpmPath)
	remotePath := downloadsDir + "/" + filename

	if err := r.pool.Upload(ctx, device, rpmData, remotePath); err != nil {
		return nil, err
	}
	lines, err := r.pool.Exec(ctx, device, installCommand(remotePath), false)
	r.pool.Exec(ctx, device, removeFileCommand(remotePath), false) // best-effort cleanup
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *Router) executePackages(ctx context.Context, device string, filter *string) ([]string, error) {
	lines, err := r.pool.Exec(ctx, device, packageListCommand(), false)
	if err != nil {
		return nil, err
	}
	ids := extractPackageIDs(lines)
	if filter != nil && *filter != "" {
		needle := strings.ToLower(*filter)
		filtered := ids[:0]
		for _, id := range ids {
			if strings.Contains(strings.ToLower(id), needle) {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Router) getScreenDimensions(ctx context.Context, device string) (int, int) {
	lines, err := r.pool.Exec(ctx, device, screenResolutionCommand(), false)
	if err != nil {
		return 720, 1440
	}
	return parseScreenDimensions(lines)
}

func (r *Router) executeTap(ctx context.Context, cmd wire.Command) ([]string, error) {
	if err := r.pool.EnsureScript(ctx, cmd.Device, "tap", scripts.RemoteTapPath, scripts.TapScript()); err != nil {
		return nil, err
	}
	args := fmt.Sprintf("%d %d", cmd.X, cmd.Y)
	if cmd.EventDevice != nil {
		args += " --event " + shellescape.Quoted(*cmd.EventDevice)
	}
	if cmd.DurationMS != nil {
		args += fmt.Sprintf(" --duration %d", *cmd.DurationMS)
	}
	shellCmd := fmt.Sprintf("python3 %s %s", scripts.RemoteTapPath, args)
	return r.pool.Exec(ctx, cmd.Device, shellCmd, true)
}

var directionTokens = map[wire.SwipeDirection]string{
	wire.SwipeLeft:  "rl",
	wire.SwipeRight: "lr",
	wire.SwipeUp:    "du",
	wire.SwipeDown:  "ud",
}

func (r *Router) executeSwipe(ctx context.Context, cmd wire.Command) ([]string, error) {
	if err := r.pool.EnsureScript(ctx, cmd.Device, "swipe", scripts.RemoteSwipePath, scripts.SwipeScript()); err != nil {
		return nil, err
	}

	var shellCmd string
	if cmd.SwipeMode.Coords != nil {
		c := cmd.SwipeMode.Coords
		shellCmd = fmt.Sprintf("python3 %s %d %d %d %d", scripts.RemoteSwipePath, c.X1, c.Y1, c.X2, c.Y2)
	} else {
		token := directionTokens[*cmd.SwipeMode.Direction]
		shellCmd = fmt.Sprintf("python3 %s %s", scripts.RemoteSwipePath, token)
	}
	if cmd.EventDevice != nil {
		shellCmd += " --event " + shellescape.Quoted(*cmd.EventDevice)
	}
	return r.pool.Exec(ctx, cmd.Device, shellCmd, true)
}

func (r *Router) executeKey(ctx context.Context, device, keyName string) ([]string, error) {
	key := strings.ToLower(keyName)
	switch key {
	case "power":
		if _, err := r.pool.Exec(ctx, device, mceCommand("req_trigger_powerkey_event", "0"), false); err != nil {
			return nil, err
		}
		return []string{"Power key sent"}, nil

	case "home":
		return r.swipeHalfScreen(ctx, device, "Home gesture sent (swipe up)")

	case "back":
		return r.swipeGesture(ctx, device, gestureLeftToRight, "Back gesture sent (swipe from left)")

	case "menu":
		return r.swipeGesture(ctx, device, gestureTopToCenter, "Menu gesture sent (swipe down)")

	case "close":
		return r.swipeHalfScreen(ctx, device, "Close gesture sent (swipe up)")

	case "volumeup", "vol+":
		return r.volumeKey(ctx, device, "115", "Volume increased")

	case "volumedown", "vol-":
		return r.volumeKey(ctx, device, "114", "Volume decreased")

	case "lock":
		if _, err := r.pool.Exec(ctx, device, mceCommand("req_tklock_mode_change", "'locked'"), false); err != nil {
			return nil, err
		}
		return []string{"Screen locked"}, nil

	case "unlock", "wakeup":
		if _, err := r.pool.Exec(ctx, device, mceCommand("req_tklock_mode_change", "'unlocked'"), false); err != nil {
			return nil, err
		}
		if _, err := r.pool.Exec(ctx, device, mceCommand("req_display_state_on", ""), false); err != nil {
			return nil, err
		}
		return []string{"Screen unlocked"}, nil

	default:
		return nil, fmt.Errorf(
			"unknown key: %q. Valid keys: power, home, back, volumeup/vol+, volumedown/vol-, menu, close, lock, unlock/wakeup",
			keyName)
	}
}

type gestureShape int

const (
	gestureTopToCenter gestureShape = iota
	gestureLeftToRight
)

func (r *Router) swipeGesture(ctx context.Context, device string, shape gestureShape, successMsg string) ([]string, error) {
	if err := r.pool.EnsureScript(ctx, device, "swipe", scripts.RemoteSwipePath, scripts.SwipeScript()); err != nil {
		return nil, err
	}
	w, h := r.getScreenDimensions(ctx, device)

	var token string
	switch shape {
	case gestureTopToCenter:
		token = "ud"
	case gestureLeftToRight:
		token = "lr"
	}

	shellCmd := fmt.Sprintf("XMAX=%d YMAX=%d python3 %s %s", w, h, scripts.RemoteSwipePath, token)
	if _, err := r.pool.Exec(ctx, device, shellCmd, true); err != nil {
		return nil, err
	}
	return []string{successMsg}, nil
}

// swipeHalfScreen drives home/close's half-screen swipe: from the bottom
// edge's horizontal center up to the screen's center, passed as explicit
// coordinates rather than a direction token.
func (r *Router) swipeHalfScreen(ctx context.Context, device, successMsg string) ([]string, error) {
	if err := r.pool.EnsureScript(ctx, device, "swipe", scripts.RemoteSwipePath, scripts.SwipeScript()); err != nil {
		return nil, err
	}
	w, h := r.getScreenDimensions(ctx, device)
	centerX, centerY := w/2, h/2

	shellCmd := fmt.Sprintf("XMAX=%d YMAX=%d python3 %s %d %d %d %d", w, h, scripts.RemoteSwipePath, centerX, h, centerX, centerY)
	if _, err := r.pool.Exec(ctx, device, shellCmd, true); err != nil {
		return nil, err
	}
	return []string{successMsg}, nil
}

func (r *Router) volumeKey(ctx context.Context, device, keyCode, successMsg string) ([]string, error) {
	script := fmt.Sprintf(volumeKeyPyTemplate, keyCode, keyCode)
	shellCmd := fmt.Sprintf("python3 -c %s", shellescape.Quoted(script))
	if _, err := r.pool.Exec(ctx, device, shellCmd, true); err != nil {
		return nil, err
	}
	return []string{successMsg}, nil
}

const volumeKeyPyTemplate = `
import struct, time
EVENT_FORMAT = "llHHi"
def w(fh, t, c, v):
    now = time.time()
    fh.write(struct.pack(EVENT_FORMAT, int(now), int((now%%1)*1e6), t, c, v))
with open("/dev/input/event1", "wb") as fh:
    for _ in range(2):
        w(fh, 1, %s, 1)
        w(fh, 0, 0, 0)
        fh.flush()
        time.sleep(0.05)
        w(fh, 1, %s, 0)
        w(fh, 0, 0, 0)
        fh.flush()
        time.sleep(0.1)
`

func (r *Router) executeScreenshot(ctx context.Context, device string) ([]byte, error) {
	ts := time.Now().UTC().Format("20060102_150405")
	remotePath := fmt.Sprintf("%s/devbridge_screenshot_%s.png", screenshotsDir, ts)
	defer r.pool.Exec(ctx, device, removeFileCommand(remotePath), true)

	if _, err := r.pool.Exec(ctx, device, screenshotCommand(remotePath), true); err != nil {
		return nil, err
	}
	lines, err := r.pool.Exec(ctx, device, base64ReadCommand(remotePath), true)
	if err != nil {
		return nil, err
	}
	encoded := strings.Join(lines, "")
	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 screenshot: %w", err)
	}
	return data, nil
}

func (r *Router) executeLogs(ctx context.Context, device string, args *wire.LogsArgs) ([]string, error) {
	if args.Clear {
		if _, err := r.pool.Exec(ctx, device, "journalctl --rotate && journalctl --vacuum-time=1s", true); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return r.pool.Exec(ctx, device, buildJournalctlCommand(args), true)
}

func buildJournalctlCommand(args *wire.LogsArgs) string {
	var b strings.Builder
	b.WriteString("journalctl")
	if args.Kernel {
		b.WriteString(" -k")
	}
	b.WriteString(" -n ")
	b.WriteString(strconv.FormatUint(uint64(args.Lines), 10))
	if args.Priority != nil {
		if p, err := ParseLogPriority(*args.Priority); err == nil {
			b.WriteString(fmt.Sprintf(" -p %d", p.journalctlValue()))
		}
	}
	if args.Unit != nil {
		b.WriteString(" -u " + shellescape.Quoted(*args.Unit))
	}
	if args.Since != nil {
		b.WriteString(" --since " + shellescape.Quoted(*args.Since))
	}
	b.WriteString(" --no-pager --no-hostname")
	if args.Grep != nil {
		b.WriteString(" | grep " + shellescape.Quoted(*args.Grep))
	}
	return b.String()
}

func (r *Router) executeInfo(ctx context.Context, device string) (wire.DeviceInfo, error) {
	exec := func(cmd string) []string {
		lines, _ := r.pool.Exec(ctx, device, cmd, false)
		return lines
	}

	model := extractStringOr(exec(deviceInfoCommand("getDeviceModel")), "Unknown")
	osVersion := extractStringOr(exec(deviceInfoCommand("getOsVersion")), "Unknown")
	screenLines := exec(screenResolutionCommand())
	screen := extractStringOr(screenLines, "Unknown")
	cpuModel := extractStringOr(exec(deviceInfoCommand("getCpuModel")), "Unknown")
	cpuCores := extractUint32(exec(deviceInfoCommand("getNumberCpuCores")))
	cpuMaxClock := extractUint32(exec(deviceInfoCommand("getMaxCpuClockSpeed")))
	ramTotalKB := extractUint64(exec(deviceInfoCommand("getRamTotalSize")))
	ramTotalMB := ramTotalKB / 1024

	available, free, buffers, cached := parseMemInfoLine(exec(memInfoCommand()))

	batteryLevel := extractUint32(exec(mceCommand("get_battery_level", "")))
	chargerState := extractString(exec(mceCommand("get_charger_state", "")))

	batteryState := "discharging"
	switch {
	case batteryLevel == 100:
		batteryState = "full"
	case chargerState == "on":
		batteryState = "charging"
	}

	hasNFC := extractBool(exec(deviceInfoCommand("hasNFC")))
	hasBluetooth := extractBool(exec(deviceInfoCommand("hasBluetooth")))
	hasWLAN := extractBool(exec(deviceInfoCommand("hasWlan")))
	hasGNSS := extractBool(exec(deviceInfoCommand("hasGNSS")))

	mainCameraMP := extractFloat64(exec(deviceInfoCommand("getMainCameraResolution")))
	frontalCameraMP := extractFloat64(exec(deviceInfoCommand("getFrontalCameraResolution")))

	totalMB, freeStorageMB := parseHomeStorage(exec(homeStorageCommand()))

	return wire.DeviceInfo{
		DeviceModel:            model,
		OSVersion:              osVersion,
		ScreenResolution:       screen,
		CPUModel:               cpuModel,
		CPUCores:               cpuCores,
		CPUMaxClock:            cpuMaxClock,
		RAMTotalMB:             ramTotalMB,
		RAMAvailableMB:         available,
		RAMFreeMB:              free,
		RAMCachedMB:            cached,
		RAMBuffersMB:           buffers,
		BatteryLevel:           batteryLevel,
		BatteryState:           batteryState,
		HasNFC:                 hasNFC,
		HasBluetooth:           hasBluetooth,
		HasWLAN:                hasWLAN,
		HasGNSS:                hasGNSS,
		MainCameraMP:           mainCameraMP,
		FrontalCameraMP:        frontalCameraMP,
		InternalStorageTotalMB: totalMB,
		InternalStorageFreeMB:  freeStorageMB,
	}, nil
}

func (r *Router) buildServerStatus() (wire.ServerStatus, error) {
	infos := r.pool.List()
	devices := make([]wire.DeviceStatus, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, toDeviceStatus(info))
	}
	return wire.ServerStatus{
		PID:        uint32(os.Getpid()),
		UptimeSecs: r.pool.UptimeSeconds(),
		SocketPath: r.socketPath,
		Devices:    devices,
	}, nil
}

func toDeviceStatus(info pool.DeviceInfo) wire.DeviceStatus {
	var name *string
	if info.Device.Name != nil {
		name = info.Device.Name
	}

	var lastError *string
	if info.Stats.LastError != "" {
		le := info.Stats.LastError
		lastError = &le
	}

	state := wire.ConnectionStateInfo{Kind: info.State.Kind.String()}
	switch info.State.Kind {
	case pool.StateConnecting:
		state.Attempt = info.State.Attempt
	case pool.StateConnected:
		state.DurationSecs = uint64(info.State.ConnectionDuration().Seconds())
	case pool.StateErrored:
		state.Error = info.State.Message
	}

	return wire.DeviceStatus{
		Name: name,
		Host: info.Device.Host,
		Port: info.Device.Port,
		State: state,
		Stats: wire.ConnectionStats{
			ConnectAttempts:    info.Stats.ConnectAttempts,
			SuccessfulCommands: info.Stats.SuccessfulCommands,
			FailedCommands:     info.Stats.FailedCommands,
			LastError:          lastError,
		},
	}
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
