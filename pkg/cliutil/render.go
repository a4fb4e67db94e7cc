package cliutil

import (
	"fmt"
	"time"

	"github.com/aurora-devkit/devbridged/pkg/wire"
)

// RenderServerStatus prints the daemon's PID, uptime and socket path
// followed by a table of every registered device's connection state.
func RenderServerStatus(status wire.ServerStatus) {
	fmt.Printf("pid: %d\n", status.PID)
	fmt.Printf("uptime: %s\n", time.Duration(status.UptimeSecs)*time.Second)
	fmt.Printf("socket: %s\n\n", status.SocketPath)

	t := NewTable("HOST", "NAME", "STATE", "COMMANDS OK", "COMMANDS FAILED")
	for _, d := range status.Devices {
		name := d.Host
		if d.Name != nil && *d.Name != "" {
			name = *d.Name
		}
		t.Row(d.Host, name, describeState(d.State), fmt.Sprint(d.Stats.SuccessfulCommands), fmt.Sprint(d.Stats.FailedCommands))
	}
	t.Flush()
}

func describeState(s wire.ConnectionStateInfo) string {
	switch s.Kind {
	case "connecting":
		return fmt.Sprintf("connecting (attempt %d)", s.Attempt)
	case "connected":
		return fmt.Sprintf("connected (%s)", time.Duration(s.DurationSecs)*time.Second)
	case "errored":
		return fmt.Sprintf("error: %s", s.Error)
	case "disabled":
		return "disabled"
	default:
		return "disconnected"
	}
}

// RenderDeviceInfo prints a device's hardware/software inventory as a
// two-column table.
func RenderDeviceInfo(info wire.DeviceInfo) {
	t := NewTable("FIELD", "VALUE")
	t.Row("Device model", info.DeviceModel)
	t.Row("OS version", info.OSVersion)
	t.Row("Screen resolution", info.ScreenResolution)
	t.Row("CPU", fmt.Sprintf("%s (%d cores, %d MHz max)", info.CPUModel, info.CPUCores, info.CPUMaxClock))
	t.Row("RAM total", fmt.Sprintf("%d MB", info.RAMTotalMB))
	t.Row("RAM available", fmt.Sprintf("%d MB", info.RAMAvailableMB))
	t.Row("Battery", fmt.Sprintf("%d%% (%s)", info.BatteryLevel, info.BatteryState))
	t.Row("NFC", fmt.Sprint(info.HasNFC))
	t.Row("Bluetooth", fmt.Sprint(info.HasBluetooth))
	t.Row("WLAN", fmt.Sprint(info.HasWLAN))
	t.Row("GNSS", fmt.Sprint(info.HasGNSS))
	t.Row("Main camera", fmt.Sprintf("%.1f MP", info.MainCameraMP))
	t.Row("Frontal camera", fmt.Sprintf("%.1f MP", info.FrontalCameraMP))
	t.Row("Internal storage", fmt.Sprintf("%d / %d MB free", info.InternalStorageFreeMB, info.InternalStorageTotalMB))
	t.Flush()
}

// RenderHistory prints a device's recent command history, oldest first.
func RenderHistory(entries []wire.HistoryEntry) {
	t := NewTable("TIME", "RESULT", "COMMAND")
	for _, e := range entries {
		result := "ok"
		if !e.Succeeded {
			result = "failed"
		}
		t.Row(time.Unix(e.AtUnix, 0).Format("15:04:05"), result, e.Command)
	}
	t.Flush()
}
