// Package wire defines the JSON request/response contract exchanged over
// the daemon's local Unix socket, and the length-prefixed framing used to
// carry it.
package wire

// Request is sent from a client to the daemon. Id is opaque to the server
// and exists purely for client-side correlation.
type Request struct {
	ID      uint64  `json:"id"`
	Command Command `json:"command"`
}

// Response echoes the request id with the outcome of running its command.
type Response struct {
	ID     uint64 `json:"id"`
	Result Result `json:"result"`
}

// Command is a tagged union over every command the router accepts. Type
// selects which of the remaining fields are meaningful; unused fields are
// omitted from the wire encoding.
type Command struct {
	Type CommandType `json:"type"`

	// Shell, Install, Uninstall, Packages, Push, Pull, Info, Tap, Swipe,
	// Key, Screenshot, Launch, Stop, Logs, Reconnect, Open all address a
	// device by host string.
	Device string `json:"device,omitempty"`

	// Shell
	Root    bool   `json:"root,omitempty"`
	Command string `json:"command,omitempty"`

	// Install
	RPMPath string `json:"rpm_path,omitempty"`
	RPMData []byte `json:"rpm_data,omitempty"`

	// Uninstall, Launch, Stop
	AppName string `json:"app_name,omitempty"`

	// Packages
	Filter *string `json:"filter,omitempty"`

	// Push / Pull
	LocalPath  string `json:"local_path,omitempty"`
	RemotePath string `json:"remote_path,omitempty"`
	Data       []byte `json:"data,omitempty"`

	// Info
	Category *string `json:"category,omitempty"`

	// Tap
	X            uint16  `json:"x,omitempty"`
	Y            uint16  `json:"y,omitempty"`
	EventDevice  *string `json:"event_device,omitempty"`
	DurationMS   *uint32 `json:"duration_ms,omitempty"`

	// Swipe
	SwipeMode *SwipeMode `json:"mode,omitempty"`

	// Key
	KeyName string `json:"key_name,omitempty"`

	// Logs
	LogsArgs *LogsArgs `json:"args,omitempty"`

	// Reconnect — Device above is reused, but it's optional for this one:
	// DeviceSet false means "all devices." DeviceSet distinguishes "absent"
	// from "".
	DeviceSet bool `json:"device_set,omitempty"`

	// Open
	URL string `json:"url,omitempty"`

	// History
	Limit uint `json:"limit,omitempty"`
}

// CommandType names every command accepted by the router. Values match
// spec.md's Command variants verbatim.
type CommandType string

const (
	CmdPing        CommandType = "Ping"
	CmdShell       CommandType = "Shell"
	CmdInstall     CommandType = "Install"
	CmdUninstall   CommandType = "Uninstall"
	CmdPackages    CommandType = "Packages"
	CmdPush        CommandType = "Push"
	CmdPull        CommandType = "Pull"
	CmdInfo        CommandType = "Info"
	CmdTap         CommandType = "Tap"
	CmdSwipe       CommandType = "Swipe"
	CmdKey         CommandType = "Key"
	CmdScreenshot  CommandType = "Screenshot"
	CmdLaunch      CommandType = "Launch"
	CmdStop        CommandType = "Stop"
	CmdLogs        CommandType = "Logs"
	CmdReconnect   CommandType = "Reconnect"
	CmdOpen        CommandType = "Open"
	CmdServerStat  CommandType = "ServerStatus"
	CmdKillServer  CommandType = "KillServer"
	CmdHistory     CommandType = "History"
)

// SwipeMode is either absolute coordinates or a named direction.
type SwipeMode struct {
	Coords    *SwipeCoords    `json:"coords,omitempty"`
	Direction *SwipeDirection `json:"direction,omitempty"`
}

// SwipeCoords names a start and end point for a coordinate-mode swipe.
type SwipeCoords struct {
	X1 uint16 `json:"x1"`
	Y1 uint16 `json:"y1"`
	X2 uint16 `json:"x2"`
	Y2 uint16 `json:"y2"`
}

// SwipeDirection names a cardinal swipe direction.
type SwipeDirection string

const (
	SwipeLeft  SwipeDirection = "Left"
	SwipeRight SwipeDirection = "Right"
	SwipeUp    SwipeDirection = "Up"
	SwipeDown  SwipeDirection = "Down"
)

// LogsArgs carries the Logs command's filter/retrieval arguments.
type LogsArgs struct {
	Lines    uint     `json:"lines"`
	Priority *string  `json:"priority,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
	Grep     *string  `json:"grep,omitempty"`
	Since    *string  `json:"since,omitempty"`
	Clear    bool     `json:"clear,omitempty"`
	Force    bool     `json:"force,omitempty"`
	Kernel   bool     `json:"kernel,omitempty"`
}

// Result is the outcome of running one Command: exactly one of Success or
// Error is populated.
type Result struct {
	Success *SuccessResult `json:"Success,omitempty"`
	Error   *ErrorResult   `json:"Error,omitempty"`
}

// SuccessResult carries the command's output.
type SuccessResult struct {
	Output Output `json:"output"`
}

// ErrorResult carries a human-readable message and a closed-set kind.
type ErrorResult struct {
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// ErrorKind is the closed set of wire error classifications.
type ErrorKind string

const (
	ErrDeviceNotFound      ErrorKind = "DeviceNotFound"
	ErrDeviceDisconnected  ErrorKind = "DeviceDisconnected"
	ErrCommandFailed       ErrorKind = "CommandFailed"
	ErrServerError         ErrorKind = "ServerError"
	ErrInvalidRequest      ErrorKind = "InvalidRequest"
)

// Output is a tagged union over the command output shapes. Exactly one
// field is populated per response, selected by the command kind.
type Output struct {
	Lines      []string       `json:"Lines,omitempty"`
	Binary     []byte         `json:"Binary,omitempty"`
	Status     *ServerStatus  `json:"Status,omitempty"`
	DeviceInfo *DeviceInfo    `json:"DeviceInfo,omitempty"`
	History    []HistoryEntry `json:"History,omitempty"`
	Unit       bool           `json:"Unit,omitempty"`
}

// HistoryEntry is one recorded command invocation, per pkg/history.Entry.
type HistoryEntry struct {
	Command   string `json:"command"`
	AtUnix    int64  `json:"at_unix"`
	Succeeded bool   `json:"succeeded"`
}

// LinesOutput builds an Output carrying lines of text.
func LinesOutput(lines []string) Output { return Output{Lines: lines} }

// BinaryOutput builds an Output carrying a binary blob.
func BinaryOutput(data []byte) Output { return Output{Binary: data} }

// UnitOutput builds an Output carrying no payload.
func UnitOutput() Output { return Output{Unit: true} }

// DeviceInfo is the assembled result of the Info command.
type DeviceInfo struct {
	DeviceModel             string  `json:"device_model"`
	OSVersion               string  `json:"os_version"`
	ScreenResolution        string  `json:"screen_resolution"`
	CPUModel                string  `json:"cpu_model"`
	CPUCores                uint32  `json:"cpu_cores"`
	CPUMaxClock             uint32  `json:"cpu_max_clock"`
	RAMTotalMB              uint64  `json:"ram_total_mb"`
	RAMAvailableMB          uint64  `json:"ram_available_mb"`
	RAMFreeMB               uint64  `json:"ram_free_mb"`
	RAMCachedMB             uint64  `json:"ram_cached_mb"`
	RAMBuffersMB            uint64  `json:"ram_buffers_mb"`
	BatteryLevel            uint32  `json:"battery_level"`
	BatteryState            string  `json:"battery_state"`
	HasNFC                  bool    `json:"has_nfc"`
	HasBluetooth            bool    `json:"has_bluetooth"`
	HasWLAN                 bool    `json:"has_wlan"`
	HasGNSS                 bool    `json:"has_gnss"`
	MainCameraMP            float64 `json:"main_camera_mp"`
	FrontalCameraMP         float64 `json:"frontal_camera_mp"`
	InternalStorageTotalMB  uint64  `json:"internal_storage_total_mb"`
	InternalStorageFreeMB   uint64  `json:"internal_storage_free_mb"`
}

// ServerStatus answers the ServerStatus command.
type ServerStatus struct {
	PID        uint32         `json:"pid"`
	UptimeSecs uint64         `json:"uptime_secs"`
	SocketPath string         `json:"socket_path"`
	Devices    []DeviceStatus `json:"devices"`
}

// DeviceStatus is one device's entry in ServerStatus.
type DeviceStatus struct {
	Name  *string          `json:"name,omitempty"`
	Host  string           `json:"host"`
	Port  uint16           `json:"port"`
	State ConnectionStateInfo `json:"state"`
	Stats ConnectionStats  `json:"stats"`
}

// ConnectionStateInfo is the wire projection of pool.ConnectionState.
type ConnectionStateInfo struct {
	Kind         string  `json:"kind"`
	Attempt      uint32  `json:"attempt,omitempty"`
	DurationSecs uint64  `json:"duration_secs,omitempty"`
	Error        string  `json:"error,omitempty"`
	RetryInSecs  *uint64 `json:"retry_in_secs,omitempty"`
}

// ConnectionStats is the wire projection of pool.ConnectionStats.
type ConnectionStats struct {
	ConnectAttempts     uint64  `json:"connect_attempts"`
	SuccessfulCommands  uint64  `json:"successful_commands"`
	FailedCommands      uint64  `json:"failed_commands"`
	LastError           *string `json:"last_error,omitempty"`
}
