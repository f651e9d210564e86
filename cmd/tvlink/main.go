// Tvlink is a remote control for smart TVs on the local network.
//
// It discovers TVs over SSDP and mDNS, handles each vendor's pairing
// handshake (Samsung token grants, Android TV certificate pairing, Fire TV
// PIN exchange) and sends remote-control commands over the vendor protocol.
//
// Usage:
//
//	tvlink [command] [flags]
//
// Running without arguments launches the interactive remote.
// See 'tvlink --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tvlink/tvlink/internal/logging"
	"github.com/tvlink/tvlink/internal/version"
)

func main() {
	logging.InitializeFromEnv()
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tvlink",
	Short: "Smart TV Remote Control",
	Long: `A network remote control for smart TVs.

Discovers Roku, Samsung, Android TV, Fire TV, Sony, LG, Philips, TCL,
Toshiba, Vizio and Panasonic sets on the local network, pairs with the
ones that require it, and sends remote-control commands.

If no command is specified, the interactive remote will launch automatically.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return cmd.Help()
		}
		return runRemote(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tvlink %s (commit: %s)\n", version.Version, version.Commit)
	},
}
