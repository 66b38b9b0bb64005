package commands

import (
	"github.com/spf13/cobra"
)

var (
	// siloID is this process's silo identity within the placement ring.
	siloID string

	// peerSilos are the other silo IDs known to this process, used to
	// seed the placement ring for the demo (a real deployment would learn
	// these from a membership provider instead of a flag).
	peerSilos []string

	// healthScanSpec is the cron spec driving the health-trend scan.
	healthScanSpec string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "vactorsilo",
	Short: "vactorsilo runs a single silo of the virtual-actor runtime",
	Long: `vactorsilo hosts actor activations, dispatch, placement, and the
stream broker for one silo in a vactor cluster.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&siloID, "silo-id", "silo-1",
		"This silo's identity in the placement ring",
	)
	rootCmd.PersistentFlags().StringSliceVar(
		&peerSilos, "peers", []string{"silo-1", "silo-2", "silo-3"},
		"Known silo IDs to seed the placement ring with",
	)
	rootCmd.PersistentFlags().StringVar(
		&healthScanSpec, "health-scan-spec", "",
		"Cron spec for the health-trend scan (default: every 5 minutes)",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
