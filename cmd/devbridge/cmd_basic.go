package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aurora-devkit/devbridged/pkg/cliutil"
	"github.com/aurora-devkit/devbridged/pkg/wire"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that devbridged is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runCommand(wire.Command{Type: wire.CmdPing})
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

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and device connection status",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runCommand(wire.Command{Type: wire.CmdServerStat})
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		if result.Success.Output.Status == nil {
			return fmt.Errorf("server returned no status payload")
		}
		if app.jsonOutput {
			return printJSON(result.Success.Output.Status)
		}
		cliutil.RenderServerStatus(*result.Success.Output.Status)
		return nil
	},
}

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Ask devbridged to shut down",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runCommand(wire.Command{Type: wire.CmdKillServer})
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		fmt.Println("devbridged shutting down")
		return nil
	},
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Drop a device's session so the next command reconnects (all devices if -d is omitted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := wire.Command{Type: wire.CmdReconnect}
		if app.device != "" {
			c.Device = app.device
			c.DeviceSet = true
		}
		result, err := runCommand(c)
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		fmt.Println("reconnect requested")
		return nil
	},
}
