package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aurora-devkit/devbridged/pkg/wire"
)

var shellRoot bool

var shellCmd = &cobra.Command{
	Use:   "shell <command>",
	Short: "Run a shell command on the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		result, err := runCommand(wire.Command{Type: wire.CmdShell, Device: device, Command: args[0], Root: shellRoot})
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
	shellCmd.Flags().BoolVarP(&shellRoot, "root", "r", false, "run as root via devel-su")
}

var installCmd = &cobra.Command{
	Use:   "install <rpm-path>",
	Short: "Upload and install an RPM package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		result, err := runCommand(wire.Command{Type: wire.CmdInstall, Device: device, RPMPath: args[0], RPMData: data})
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

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package-name>",
	Short: "Uninstall a package by D-Bus app name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		result, err := runCommand(wire.Command{Type: wire.CmdUninstall, Device: device, AppName: args[0]})
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

var packagesFilter string

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List installed packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		c := wire.Command{Type: wire.CmdPackages, Device: device}
		if packagesFilter != "" {
			c.Filter = &packagesFilter
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
	packagesCmd.Flags().StringVar(&packagesFilter, "filter", "", "case-insensitive substring filter on package id")
}

var launchCmd = &cobra.Command{
	Use:   "launch <app-name>",
	Short: "Launch an application by D-Bus app name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		result, err := runCommand(wire.Command{Type: wire.CmdLaunch, Device: device, AppName: args[0]})
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

var stopCmd = &cobra.Command{
	Use:   "stop <app-name>",
	Short: "Stop a running application by D-Bus app name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		result, err := runCommand(wire.Command{Type: wire.CmdStop, Device: device, AppName: args[0]})
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

var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Open a URL on the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		result, err := runCommand(wire.Command{Type: wire.CmdOpen, Device: device, URL: args[0]})
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
