package cmd

import (
	"fmt"
	"os"

	"github.com/mdl-lang/mdlc/internal/compiler"
	"github.com/mdl-lang/mdlc/internal/depgraph"
	"github.com/mdl-lang/mdlc/internal/logging"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile an MDL program to its expanded equation text",
	RunE: func(c *cobra.Command, args []string) error {
		return runCompile()
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
}

// runCompile drives one compilation and always produces an output file:
// the equation text on success, or "Error\r\n<message>" on a handled
// compile failure. Only mdlc's own I/O failures (opening the debug trace,
// writing the output file or the graph file) are reported as a process
// error.
func runCompile() error {
	logger := logging.New()
	if cfg.Debug {
		if err := logger.EnableFile(cfg.DebugFile); err != nil {
			return fmt.Errorf("enable debug trace: %w", err)
		}
		defer logger.Close()
	}

	res, compileErr := compiler.Compile(cfg.In, compiler.Options{
		CalibrationPath: cfg.Calibration,
		Logger:          logger,
	})

	var body string
	if compileErr != nil {
		body = "Error\r\n" + compileErr.Error()
	} else {
		body = res.Output
	}

	if err := os.WriteFile(cfg.Out, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write output %q: %w", cfg.Out, err)
	}

	if compileErr == nil {
		graphPath := cfg.Graph
		if graphPath != "" {
			if err := writeGraph(res.Graph, graphPath); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeGraph(g *depgraph.Graph, path string) error {
	out, err := g.WriteGraphML()
	if err != nil {
		return fmt.Errorf("build dependency graph: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write graph %q: %w", path, err)
	}
	return nil
}
