package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aurora-devkit/devbridged/pkg/wire"
)

var (
	tapEventDevice string
	tapDurationMS  uint32
)

var tapCmd = &cobra.Command{
	Use:   "tap <x> <y>",
	Short: "Tap the touchscreen at the given coordinates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		x, y, err := parseCoords(args[0], args[1])
		if err != nil {
			return err
		}
		c := wire.Command{Type: wire.CmdTap, Device: device, X: x, Y: y}
		if tapEventDevice != "" {
			c.EventDevice = &tapEventDevice
		}
		if cmd.Flags().Changed("duration") {
			c.DurationMS = &tapDurationMS
		}
		result, err := runCommand(c)
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		printLines(result.Success.Output.Lines)
		return nil
	},
}

func init() {
	tapCmd.Flags().StringVar(&tapEventDevice, "event", "", "override the evdev touch device (e.g. /dev/input/event0)")
	tapCmd.Flags().Uint32Var(&tapDurationMS, "duration", 60, "tap duration in milliseconds")
}

var swipeEventDevice string

var swipeCmd = &cobra.Command{
	Use:   "swipe <x1 y1 x2 y2 | left|right|up|down>",
	Short: "Swipe the touchscreen, either between two points or in a named direction",
	Args:  cobra.RangeArgs(1, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		mode, err := parseSwipeArgs(args)
		if err != nil {
			return err
		}
		c := wire.Command{Type: wire.CmdSwipe, Device: device, SwipeMode: mode}
		if swipeEventDevice != "" {
			c.EventDevice = &swipeEventDevice
		}
		result, err := runCommand(c)
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		printLines(result.Success.Output.Lines)
		return nil
	},
}

func init() {
	swipeCmd.Flags().StringVar(&swipeEventDevice, "event", "", "override the evdev touch device")
}

func parseSwipeArgs(args []string) (*wire.SwipeMode, error) {
	if len(args) == 1 {
		var dir wire.SwipeDirection
		switch args[0] {
		case "left":
			dir = wire.SwipeLeft
		case "right":
			dir = wire.SwipeRight
		case "up":
			dir = wire.SwipeUp
		case "down":
			dir = wire.SwipeDown
		default:
			return nil, fmt.Errorf("unknown swipe direction %q: want left, right, up or down", args[0])
		}
		return &wire.SwipeMode{Direction: &dir}, nil
	}
	if len(args) != 4 {
		return nil, fmt.Errorf("swipe needs either a direction or 4 coordinates: x1 y1 x2 y2")
	}
	x1, y1, err := parseCoords(args[0], args[1])
	if err != nil {
		return nil, err
	}
	x2, y2, err := parseCoords(args[2], args[3])
	if err != nil {
		return nil, err
	}
	return &wire.SwipeMode{Coords: &wire.SwipeCoords{X1: x1, Y1: y1, X2: x2, Y2: y2}}, nil
}

func parseCoords(xs, ys string) (uint16, uint16, error) {
	x, err := strconv.ParseUint(xs, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x coordinate %q: %w", xs, err)
	}
	y, err := strconv.ParseUint(ys, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y coordinate %q: %w", ys, err)
	}
	return uint16(x), uint16(y), nil
}

var keyCmd = &cobra.Command{
	Use:   "key <name>",
	Short: "Send a named key or gesture (power, home, back, menu, close, volumeup, volumedown, lock, unlock)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		result, err := runCommand(wire.Command{Type: wire.CmdKey, Device: device, KeyName: args[0]})
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		printLines(result.Success.Output.Lines)
		return nil
	},
}
