package cmd

import (
	"os"

	"github.com/encodeous/dvr/state"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dvr",
	Short: "Distance-vector router",
	Long: `dvr runs a router of a distance-vector routing protocol.
Routers learn their link costs from a relay server, exchange distance vectors with their neighbours through it, and print their forwarding table once the relay tells them to stop.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "dvr",
		Title: "Routing Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "util",
		Title: "Utilities",
	})
	rootCmd.PersistentFlags().BoolVarP(&state.DBG_debug, "debug", "d", false, "Serve pprof and metrics on "+state.DBG_debug_addr)
}
