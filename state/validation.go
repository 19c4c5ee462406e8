package state

import (
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
)

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func BindValidator(s string) error {
	_, _, err := net.SplitHostPort(s)
	return err
}

func IdValidator(id int) error {
	if id < 0 {
		return fmt.Errorf("router id %d must not be negative", id)
	}
	if id == ServerId {
		return fmt.Errorf("router id %d is reserved for the relay server", id)
	}
	return nil
}

func CostValidator(cost int) error {
	if cost < 0 || cost > Infinity {
		return fmt.Errorf("cost %d is not in [0, %d]", cost, Infinity)
	}
	return nil
}

func RouterConfigValidator(cfg *RouterCfg) error {
	err := IdValidator(cfg.Id)
	if err != nil {
		return err
	}
	if cfg.Host == "" {
		return fmt.Errorf("relay host must not be empty")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("relay port must not be 0")
	}
	if cfg.UpdateIntervalMs <= 0 {
		return fmt.Errorf("update interval %dms must be positive", cfg.UpdateIntervalMs)
	}
	if cfg.LogPath != "" {
		err = PathValidator(cfg.LogPath)
		if err != nil {
			return err
		}
	}
	return nil
}

// CostMatrixValidator checks that costs is a square matrix of valid costs describing undirected links between
// routers.
func CostMatrixValidator(costs [][]int) error {
	n := len(costs)
	if n == 0 {
		return fmt.Errorf("cost matrix is empty")
	}
	if n > ServerId {
		return fmt.Errorf("%d routers exceed the maximum of %d", n, ServerId)
	}
	for i, row := range costs {
		if len(row) != n {
			return fmt.Errorf("row %d of the cost matrix has %d entries, expected %d", i, len(row), n)
		}
		if row[i] != 0 {
			return fmt.Errorf("costs[%d][%d] = %d, the cost of a router to itself must be 0", i, i, row[i])
		}
		for j, cost := range row {
			if err := CostValidator(cost); err != nil {
				return fmt.Errorf("costs[%d][%d]: %w", i, j, err)
			}
		}
	}
	for i := range costs {
		for j := range costs {
			if (costs[i][j] < Infinity) != (costs[j][i] < Infinity) {
				return fmt.Errorf("link %d-%d is only present in one direction", i, j)
			}
		}
	}
	return nil
}

func RelayConfigValidator(cfg *RelayCfg) error {
	err := BindValidator(cfg.Bind)
	if err != nil {
		return err
	}
	err = CostMatrixValidator(cfg.Costs)
	if err != nil {
		return err
	}
	if cfg.RunForMs < 0 {
		return fmt.Errorf("run_for_ms %d must not be negative", cfg.RunForMs)
	}
	for i, change := range cfg.Changes {
		if change.Router < 0 || change.Router >= cfg.Size() {
			return fmt.Errorf("change %d refers to unknown router %d", i, change.Router)
		}
		if change.AfterMs < 0 {
			return fmt.Errorf("change %d has negative delay %dms", i, change.AfterMs)
		}
		if len(change.Costs) != cfg.Size() {
			return fmt.Errorf("change %d has %d costs, expected %d", i, len(change.Costs), cfg.Size())
		}
		if change.Costs[change.Router] != 0 {
			return fmt.Errorf("change %d: the cost of router %d to itself must be 0", i, change.Router)
		}
		for j, cost := range change.Costs {
			if err := CostValidator(cost); err != nil {
				return fmt.Errorf("change %d, costs[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}
