package router

import (
	"fmt"
	"strings"

	"github.com/aurora-devkit/devbridged/pkg/wire"
)

const maxCoordinate = 4096

const maxNameLength = 255

func validateCoordinate(name string, v uint16) error {
	if v > maxCoordinate {
		return fmt.Errorf("%s out of range: %d. Max: %d", name, v, maxCoordinate)
	}
	return nil
}

func validateTap(cmd wire.Command) error {
	if err := validateCoordinate("x", cmd.X); err != nil {
		return err
	}
	return validateCoordinate("y", cmd.Y)
}

func validateSwipe(mode *wire.SwipeMode) error {
	if mode == nil {
		return fmt.Errorf("swipe requires a mode")
	}
	if mode.Coords != nil {
		c := mode.Coords
		for name, v := range map[string]uint16{"x1": c.X1, "y1": c.Y1, "x2": c.X2, "y2": c.Y2} {
			if v > maxCoordinate {
				return fmt.Errorf("coordinate out of range: %s=%d. Max: %d", name, v, maxCoordinate)
			}
		}
		return nil
	}
	if mode.Direction == nil {
		return fmt.Errorf("swipe requires coords or a direction")
	}
	switch *mode.Direction {
	case wire.SwipeLeft, wire.SwipeRight, wire.SwipeUp, wire.SwipeDown:
		return nil
	default:
		return fmt.Errorf("unknown swipe direction: %q", *mode.Direction)
	}
}

func validateAppName(name string) error {
	if name == "" {
		return fmt.Errorf("app name cannot be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("app name too long: %d characters. Max: %d", len(name), maxNameLength)
	}
	if !strings.Contains(name, ".") {
		return fmt.Errorf("invalid app name: %q. Expected D-Bus format: ru.domain.AppName", name)
	}
	return nil
}

func validatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name cannot be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("package name too long: %d characters. Max: %d", len(name), maxNameLength)
	}
	if !strings.Contains(name, ".") {
		return fmt.Errorf("invalid package name: %q. Expected D-Bus format: ru.domain.AppName", name)
	}
	return nil
}

func validateLogsArgs(args *wire.LogsArgs) error {
	if args == nil {
		return fmt.Errorf("logs requires args")
	}
	if args.Lines == 0 {
		return fmt.Errorf("lines must be greater than 0")
	}
	if args.Kernel && args.Unit != nil {
		return fmt.Errorf("cannot specify both kernel and unit")
	}
	if args.Clear && !args.Force {
		return fmt.Errorf("clearing logs requires the force flag")
	}
	if args.Priority != nil {
		if _, err := ParseLogPriority(*args.Priority); err != nil {
			return err
		}
	}
	return nil
}
