package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aurora-devkit/devbridged/pkg/cliutil"
	"github.com/aurora-devkit/devbridged/pkg/wire"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device hardware and software inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		result, err := runCommand(wire.Command{Type: wire.CmdInfo, Device: device})
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		if result.Success.Output.DeviceInfo == nil {
			return fmt.Errorf("server returned no device info payload")
		}
		if app.jsonOutput {
			return printJSON(result.Success.Output.DeviceInfo)
		}
		cliutil.RenderDeviceInfo(*result.Success.Output.DeviceInfo)
		return nil
	},
}

var screenshotOutPath string

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture the device screen to a local PNG file",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		result, err := runCommand(wire.Command{Type: wire.CmdScreenshot, Device: device})
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		if err := os.WriteFile(screenshotOutPath, result.Success.Output.Binary, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", screenshotOutPath, err)
		}
		fmt.Printf("screenshot saved to %s\n", screenshotOutPath)
		return nil
	},
}

func init() {
	screenshotCmd.Flags().StringVarP(&screenshotOutPath, "out", "o", "screenshot.png", "local output path")
}

var (
	logsLines    uint
	logsPriority string
	logsUnit     string
	logsGrep     string
	logsSince    string
	logsKernel   bool
	logsClear    bool
	logsForce    bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Fetch or clear device journal logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		logsArgs := &wire.LogsArgs{
			Lines:  logsLines,
			Kernel: logsKernel,
			Clear:  logsClear,
			Force:  logsForce,
		}
		if logsPriority != "" {
			logsArgs.Priority = &logsPriority
		}
		if logsUnit != "" {
			logsArgs.Unit = &logsUnit
		}
		if logsGrep != "" {
			logsArgs.Grep = &logsGrep
		}
		if logsSince != "" {
			logsArgs.Since = &logsSince
		}

		result, err := runCommand(wire.Command{Type: wire.CmdLogs, Device: device, LogsArgs: logsArgs})
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
	logsCmd.Flags().UintVarP(&logsLines, "lines", "n", 100, "number of log lines to fetch")
	logsCmd.Flags().StringVar(&logsPriority, "priority", "", "minimum journalctl priority (e.g. err, warning, info)")
	logsCmd.Flags().StringVarP(&logsUnit, "unit", "u", "", "restrict to a systemd unit")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "filter lines by substring")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "only show entries since this time")
	logsCmd.Flags().BoolVarP(&logsKernel, "kernel", "k", false, "show kernel log only")
	logsCmd.Flags().BoolVar(&logsClear, "clear", false, "rotate and vacuum the journal instead of reading it")
	logsCmd.Flags().BoolVar(&logsForce, "force", false, "required alongside --clear")
}
