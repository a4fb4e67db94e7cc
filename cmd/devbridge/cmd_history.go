package main

import (
	"github.com/spf13/cobra"

	"github.com/aurora-devkit/devbridged/pkg/cliutil"
	"github.com/aurora-devkit/devbridged/pkg/wire"
)

var historyLimit uint

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a device's recent command history",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := requireDevice()
		if err != nil {
			return err
		}
		result, err := runCommand(wire.Command{Type: wire.CmdHistory, Device: device, Limit: historyLimit})
		if err != nil {
			return err
		}
		if err := resultToError(result); err != nil {
			return err
		}
		if app.jsonOutput {
			return printJSON(result.Success.Output.History)
		}
		cliutil.RenderHistory(result.Success.Output.History)
		return nil
	},
}

func init() {
	historyCmd.Flags().UintVarP(&historyLimit, "limit", "n", 50, "maximum number of entries to show")
}
