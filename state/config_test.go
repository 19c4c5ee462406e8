package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestReadRouterConfig(t *testing.T) {
	p := writeFile(t, "router.yaml", `id: 3
host: relay.local
port: 4000
update_interval_ms: 250
`)
	cfg, err := ReadRouterConfig(p)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Id)
	assert.Equal(t, "relay.local", cfg.Host)
	assert.Equal(t, uint16(4000), cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.UpdateInterval())
	assert.Equal(t, "relay.local:4000", cfg.RelayAddr())
	assert.NoError(t, RouterConfigValidator(cfg))
}

func TestReadRouterConfig_Defaults(t *testing.T) {
	p := writeFile(t, "router.yaml", `id: 1
`)
	cfg, err := ReadRouterConfig(p)
	require.NoError(t, err)
	assert.Equal(t, DefaultRelayHost, cfg.Host)
	assert.Equal(t, DefaultRelayPort, cfg.Port)
	assert.Equal(t, DefaultUpdateInterval, cfg.UpdateInterval())
}

func TestDefaultRouterCfg(t *testing.T) {
	cfg := DefaultRouterCfg()
	assert.Equal(t, 0, cfg.Id)
	assert.Equal(t, uint16(2227), cfg.Port)
	assert.Equal(t, "localhost:2227", cfg.RelayAddr())
	assert.Equal(t, 1000, cfg.UpdateIntervalMs)
	assert.NoError(t, RouterConfigValidator(&cfg))
}

func TestReadRelayConfig(t *testing.T) {
	p := writeFile(t, "relay.yaml", `bind: 127.0.0.1:2227
costs:
  - [0, 1, 7, 999]
  - [1, 0, 1, 999]
  - [7, 1, 0, 1]
  - [999, 999, 1, 0]
run_for_ms: 3000
changes:
  - after_ms: 1000
    router: 0
    costs: [0, 1, 2, 999]
`)
	cfg, err := ReadRelayConfig(p)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Size())
	assert.Equal(t, []int{7, 1, 0, 1}, cfg.Costs[2])
	assert.Equal(t, 3*time.Second, cfg.RunFor())
	require.Len(t, cfg.Changes, 1)
	assert.Equal(t, time.Second, cfg.Changes[0].After())
	assert.Equal(t, []int{0, 1, 2, 999}, cfg.Changes[0].Costs)
	// the change makes link 0-2 cheaper, it is still present in both directions
	assert.NoError(t, RelayConfigValidator(cfg))
}

func TestReadConfig_Missing(t *testing.T) {
	_, err := ReadRouterConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestForwardingTableYaml(t *testing.T) {
	tbl, err := NewForwardingTable([]int{0, 1, 2}, []int{0, 1, 1})
	require.NoError(t, err)
	out, err := yaml.Marshal(tbl)
	require.NoError(t, err)

	var decoded ForwardingTable
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, tbl.MinCost(), decoded.MinCost())
	assert.Equal(t, tbl.NextHop(), decoded.NextHop())
}

func TestForwardingTableYaml_Mismatch(t *testing.T) {
	var decoded ForwardingTable
	err := yaml.Unmarshal([]byte("mincost: [0, 1]\nnexthop: [0]\n"), &decoded)
	assert.ErrorContains(t, err, "different lengths")
}
