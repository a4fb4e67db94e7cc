// Package scripts embeds the gesture helper scripts the router pushes to
// devices on demand, giving tap and swipe a single source of truth instead
// of duplicating their content inline in the router.
package scripts

import _ "embed"

//go:embed tap.py
var tapScript string

//go:embed swipe.py
var swipeScript string

const (
	// RemoteTapPath is where TapScript() is installed on the device.
	RemoteTapPath = "/tmp/devbridge_tap.py"
	// RemoteSwipePath is where SwipeScript() is installed on the device.
	RemoteSwipePath = "/tmp/devbridge_swipe.py"
)

// TapScript returns the content of the tap gesture helper.
func TapScript() string { return tapScript }

// SwipeScript returns the content of the swipe gesture helper.
func SwipeScript() string { return swipeScript }
