package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/dvr/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table <file>",
	Short: "Prints a forwarding table saved with run --out",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println("Usage: dvr table <file>")
			return
		}
		table, err := readTable(args[0])
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		fmt.Print(table.String())
	},
	GroupID: "util",
}

func readTable(path string) (state.ForwardingTable, error) {
	var table state.ForwardingTable
	file, err := os.ReadFile(path)
	if err != nil {
		return table, err
	}
	err = yaml.Unmarshal(file, &table)
	if err != nil {
		return table, fmt.Errorf("failed to parse forwarding table %s: %w", path, err)
	}
	return table, nil
}

func init() {
	rootCmd.AddCommand(tableCmd)
}
