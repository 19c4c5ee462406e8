package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/encodeous/dvr/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRouterArgs(t *testing.T) {
	cfg := state.DefaultRouterCfg()
	require.NoError(t, parseRouterArgs(&cfg, nil))
	assert.Equal(t, state.DefaultRouterCfg(), cfg)

	require.NoError(t, parseRouterArgs(&cfg, []string{"3"}))
	assert.Equal(t, 3, cfg.Id)
	assert.Equal(t, "localhost", cfg.Host)
	assert.EqualValues(t, 2227, cfg.Port)
	assert.Equal(t, 1000, cfg.UpdateIntervalMs)

	require.NoError(t, parseRouterArgs(&cfg, []string{"2", "relay.example", "9000", "250"}))
	assert.Equal(t, 2, cfg.Id)
	assert.Equal(t, "relay.example", cfg.Host)
	assert.EqualValues(t, 9000, cfg.Port)
	assert.Equal(t, 250, cfg.UpdateIntervalMs)
}

func TestParseRouterArgsInvalid(t *testing.T) {
	cfg := state.DefaultRouterCfg()
	assert.ErrorContains(t, parseRouterArgs(&cfg, []string{"1", "host"}), "expected 0, 1 or 4 arguments")
	assert.ErrorContains(t, parseRouterArgs(&cfg, []string{"x"}), "invalid router id")
	assert.ErrorContains(t, parseRouterArgs(&cfg, []string{"1", "h", "70000", "10"}), "invalid port")
	assert.ErrorContains(t, parseRouterArgs(&cfg, []string{"1", "h", "22", "soon"}), "invalid update interval")
}

func TestTableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	table, err := state.NewForwardingTable([]int{0, 1, 2, 999}, []int{0, 1, 1, -1})
	require.NoError(t, err)

	require.NoError(t, writeTable(path, table))
	got, err := readTable(path)
	require.NoError(t, err)
	assert.Equal(t, table.MinCost(), got.MinCost())
	assert.Equal(t, table.NextHop(), got.NextHop())
	assert.Equal(t, table.String(), got.String())

	_, err = readTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunRouterWritesLogBeforeReturning(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "r1.log")
	cfg := state.DefaultRouterCfg()
	cfg.Id = 1
	cfg.LogPath = logPath
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := runRouter(ctx, cfg, slog.LevelInfo, "")
	assert.ErrorIs(t, err, context.Canceled)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "starting router")
	assert.Contains(t, string(data), "router stopped abnormally")
}

func TestRunRelayInvalidConfig(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "relay.log")
	cfg := state.RelayCfg{
		Bind:    "127.0.0.1:0",
		Costs:   [][]int{{0, 1}, {999, 0}},
		LogPath: logPath,
	}

	err := runRelay(t.Context(), cfg, slog.LevelInfo)
	assert.Error(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "relay stopped")
}
