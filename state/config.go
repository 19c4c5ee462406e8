package state

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// RouterCfg represents the configuration of a single router
type RouterCfg struct {
	Id               int    // unique id for this router, in [0, N)
	Host             string // host name of the relay server
	Port             uint16 // tcp port of the relay server
	UpdateIntervalMs int    `yaml:"update_interval_ms"` // interval between routing updates sent to neighbours
	LogPath          string `yaml:"log_path,omitempty"` // if not empty, the router will also write logs to this file
}

// TopologyChange replaces the link costs of a single router some time after all routers have joined the relay
type TopologyChange struct {
	AfterMs int   `yaml:"after_ms"`
	Router  int   `yaml:"router"`
	Costs   []int `yaml:"costs"`
}

// RelayCfg represents the configuration of the relay server
type RelayCfg struct {
	Bind string // address the relay listens on
	// Costs[i][j] is the link cost from router i to router j, Infinity if they are not connected
	Costs    [][]int
	RunForMs int              `yaml:"run_for_ms"` // time after all routers have joined before QUIT is sent
	Changes  []TopologyChange `yaml:"changes,omitempty"`
	LogPath  string           `yaml:"log_path,omitempty"`
}

func DefaultRouterCfg() RouterCfg {
	return RouterCfg{
		Id:               0,
		Host:             DefaultRelayHost,
		Port:             DefaultRelayPort,
		UpdateIntervalMs: int(DefaultUpdateInterval.Milliseconds()),
	}
}

func (c RouterCfg) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMs) * time.Millisecond
}

func (c RouterCfg) RelayAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

func (c RelayCfg) RunFor() time.Duration {
	if c.RunForMs == 0 {
		return DefaultRelayRunFor
	}
	return time.Duration(c.RunForMs) * time.Millisecond
}

func (c RelayCfg) Size() int {
	return len(c.Costs)
}

func (t TopologyChange) After() time.Duration {
	return time.Duration(t.AfterMs) * time.Millisecond
}

func ReadRouterConfig(path string) (*RouterCfg, error) {
	cfg := DefaultRouterCfg()
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse router config %s: %w", path, err)
	}
	return &cfg, nil
}

func ReadRelayConfig(path string) (*RelayCfg, error) {
	var cfg RelayCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay config %s: %w", path, err)
	}
	return &cfg, nil
}
