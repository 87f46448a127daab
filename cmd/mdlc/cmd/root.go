package cmd

import (
	"fmt"
	"os"

	"github.com/mdl-lang/mdlc/internal/config"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mdlc",
	Short: "mdlc compiles MDL template programs into expanded equation text",
	Long: `mdlc is the compiler for the MDL equation-template language: it
expands iterators and placeholders, applies price-value doubling and
conditions, and prints the resulting equations in source order.

Examples:
  mdlc compile                          Compile in.txt to out.txt.prg
  mdlc compile --in model.mdl --out model.prg
  mdlc graph --in model.mdl --out model.graphml`,
	SilenceUsage: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		loaded, err := config.Load(c.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command, terminating the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().String("in", "in.txt", "input MDL program")
	rootCmd.PersistentFlags().String("out", "out.txt.prg", "output path for compiled equations")
	rootCmd.PersistentFlags().String("calibration", "", "optional calibration CSV to seed the heap")
	rootCmd.PersistentFlags().String("graph", "", "optional GraphML path for the dependency graph")
	rootCmd.PersistentFlags().Bool("debug", false, "enable a per-instruction compilation trace")
	rootCmd.PersistentFlags().String("debugfile", "-", "debug trace destination (\"-\" for stdout)")
}
