package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aurora-devkit/devbridged/pkg/wire"
)

var pushCmd = &cobra.Command{
	Use:   "push <local-path> <remote-path>",
	Short: "Copy a local file to the device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		result, err := runCommand(wire.Command{
			Type: wire.CmdPush, Device: device,
			LocalPath: args[0], RemotePath: args[1], Data: data,
		})
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		fmt.Printf("pushed %s -> %s:%s\n", args[0], device, args[1])
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull <remote-path> <local-path>",
	Short: "Copy a file from the device to the local filesystem",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		result, err := runCommand(wire.Command{Type: wire.CmdPull, Device: device, RemotePath: args[0], LocalPath: args[1]})
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		if err := os.WriteFile(args[1], result.Success.Output.Binary, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", args[1], err)
		}
		fmt.Printf("pulled %s:%s -> %s\n", device, args[0], args[1])
		return nil
	},
}
