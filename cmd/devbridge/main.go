// devbridge is the reference CLI client for devbridged: it frames one
// wire.Command per invocation over the daemon's Unix socket and renders the
// result.
//
//	devbridge -d <host> shell 'ls /home'
//	devbridge -d <host> tap 100 200
//	devbridge status
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aurora-devkit/devbridged/pkg/version"
)

// App holds CLI state shared across all commands.
type App struct {
	device     string
	socketPath string
	jsonOutput bool
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "devbridge",
	Short:         "Debug bridge client",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `devbridge talks to a running devbridged daemon over its local Unix socket.

Most commands operate on one device, selected with -d/--device:

  devbridge -d phone1 shell 'ls /home'
  devbridge -d phone1 tap 100 200
  devbridge -d phone1 info

Commands that address the daemon itself need no device:

  devbridge status
  devbridge kill`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.device, "device", "d", "", "target device host")
	rootCmd.PersistentFlags().StringVar(&app.socketPath, "socket", "", "override the daemon socket path")
	rootCmd.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "print raw JSON results")

	rootCmd.AddCommand(
		pingCmd,
		statusCmd,
		shellCmd,
		installCmd,
		uninstallCmd,
		packagesCmd,
		pushCmd,
		pullCmd,
		infoCmd,
		tapCmd,
		swipeCmd,
		keyCmd,
		screenshotCmd,
		launchCmd,
		stopCmd,
		logsCmd,
		reconnectCmd,
		openCmd,
		killCmd,
		historyCmd,
		versionCmd,
	)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}

// requireDevice returns app.device or an error if it wasn't set.
func requireDevice() (string, error) {
	if app.device == "" {
		return "", fmt.Errorf("device required: use -d <host>")
	}
	return app.device, nil
}

// printLines prints a successful command's text output, one line per entry.
func printLines(lines []string) {
	for _, l := range lines {
		fmt.Println(l)
	}
}
