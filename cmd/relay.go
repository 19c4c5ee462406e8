package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/encodeous/dvr/core"
	"github.com/encodeous/dvr/relay"
	"github.com/encodeous/dvr/state"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the relay server",
	Long: `Runs the relay server that hands routers their link costs and forwards distance vectors between neighbours.
Once every router in the topology has joined it applies the scheduled topology changes, then tells all routers to quit.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := state.ReadRelayConfig(cmd.Flag("config").Value.String())
		if err != nil {
			panic(err)
		}
		if bind, _ := cmd.Flags().GetString("bind"); bind != "" {
			cfg.Bind = bind
		}
		if logPath, _ := cmd.Flags().GetString("log"); logPath != "" {
			cfg.LogPath = logPath
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}
		// exit only once the log file is closed
		if runRelay(context.Background(), *cfg, level) != nil {
			os.Exit(1)
		}
	},
	GroupID: "dvr",
}

func runRelay(ctx context.Context, cfg state.RelayCfg, level slog.Level) error {
	logger, closer, err := core.NewLogger("relay", level, cfg.LogPath)
	if err != nil {
		panic(err)
	}
	defer closer.Close()
	core.SetupDebugging()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := relay.New(cfg, logger)
	if err == nil {
		err = r.Serve(ctx)
	}
	if err != nil {
		logger.Error("relay stopped", "err", err)
	}
	return err
}

func init() {
	rootCmd.AddCommand(relayCmd)
	relayCmd.Flags().StringP("config", "c", "relay.yaml", "Path to the relay config file")
	relayCmd.Flags().StringP("bind", "b", "", "Override the listen address of the config")
	relayCmd.Flags().StringP("log", "l", "", "Also write logs to this file")
	relayCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
