package cmd

import (
	"fmt"

	"github.com/mdl-lang/mdlc/internal/compiler"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Emit the dependency graph for an MDL program as GraphML",
	RunE: func(c *cobra.Command, args []string) error {
		return runGraph()
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

func runGraph() error {
	res, err := compiler.Compile(cfg.In, compiler.Options{CalibrationPath: cfg.Calibration})
	if err != nil {
		return fmt.Errorf("compile %q: %w", cfg.In, err)
	}

	path := cfg.Graph
	if path == "" {
		path = cfg.Out
	}
	return writeGraph(res.Graph, path)
}
