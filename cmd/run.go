package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/encodeous/dvr/core"
	"github.com/encodeous/dvr/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [id [host port interval]]",
	Short: "Run a router",
	Long: `Runs a single router against the relay server until the relay tells it to quit, then prints its forwarding table.
Without arguments the router uses id 0 and the relay at localhost:2227, broadcasting every 1000ms.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := state.DefaultRouterCfg()
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			read, err := state.ReadRouterConfig(path)
			if err != nil {
				panic(err)
			}
			cfg = *read
		}
		err := parseRouterArgs(&cfg, args)
		if err != nil {
			fmt.Println("Error:", err.Error())
			fmt.Println("Usage: dvr run [id [host port interval]]")
			os.Exit(1)
		}
		if logPath, _ := cmd.Flags().GetString("log"); logPath != "" {
			cfg.LogPath = logPath
		}
		err = state.RouterConfigValidator(&cfg)
		if err != nil {
			panic(err)
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}
		out, _ := cmd.Flags().GetString("out")
		// exit only once the log file is closed
		if runRouter(context.Background(), cfg, level, out) != nil {
			os.Exit(1)
		}
	},
	GroupID: "dvr",
}

// runRouter runs the router until it quits or is interrupted, then prints its forwarding table
func runRouter(ctx context.Context, cfg state.RouterCfg, level slog.Level, out string) error {
	logger, closer, err := core.NewLogger(fmt.Sprintf("r%d", cfg.Id), level, cfg.LogPath)
	if err != nil {
		panic(err)
	}
	defer closer.Close()
	core.SetupDebugging()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := core.Start(ctx, cfg, logger)
	if err != nil {
		logger.Error("router stopped abnormally", "err", err)
	} else {
		fmt.Println("Router terminated normally")
	}
	fmt.Println()
	fmt.Printf("Routing Table at Router #%d\n", cfg.Id)
	fmt.Print(table.String())

	if out != "" {
		werr := writeTable(out, table)
		if werr != nil {
			panic(werr)
		}
	}
	return err
}

// parseRouterArgs applies the positional arguments of the run command, either just the id or all four values
func parseRouterArgs(cfg *state.RouterCfg, args []string) error {
	if len(args) != 0 && len(args) != 1 && len(args) != 4 {
		return fmt.Errorf("expected 0, 1 or 4 arguments, got %d", len(args))
	}
	if len(args) >= 1 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid router id %q: %w", args[0], err)
		}
		cfg.Id = id
	}
	if len(args) == 4 {
		cfg.Host = args[1]
		port, err := strconv.ParseUint(args[2], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[2], err)
		}
		cfg.Port = uint16(port)
		interval, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid update interval %q: %w", args[3], err)
		}
		cfg.UpdateIntervalMs = interval
	}
	return nil
}

func writeTable(path string, table state.ForwardingTable) error {
	data, err := yaml.Marshal(table)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "Path to a router config file, positional arguments override it")
	runCmd.Flags().StringP("log", "l", "", "Also write logs to this file")
	runCmd.Flags().StringP("out", "o", "", "Save the forwarding table as yaml")
	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolVarP(&state.DBG_log_router, "lroute", "r", false, "Write router updates to console")
	runCmd.Flags().BoolVarP(&state.DBG_log_table, "ltable", "t", false, "Outputs route table to the console")
}
