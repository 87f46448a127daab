// Package compiler implements the MDL driver: it threads the heap
// through a program's instructions in order, elaborating and generating
// each formula, applying each local assignment's heap side effect, and
// building the dependency graph once the whole program has run.
package compiler

import (
	"strings"

	"github.com/mdl-lang/mdlc/internal/ast"
	"github.com/mdl-lang/mdlc/internal/calibration"
	"github.com/mdl-lang/mdlc/internal/depgraph"
	"github.com/mdl-lang/mdlc/internal/generate"
	"github.com/mdl-lang/mdlc/internal/heap"
	"github.com/mdl-lang/mdlc/internal/logging"
	"github.com/mdl-lang/mdlc/internal/parser"
	"github.com/mdl-lang/mdlc/internal/reader"
)

// Options configures one compilation run.
type Options struct {
	CalibrationPath string
	Logger          *logging.Logger
}

// Result is a completed compilation's output.
type Result struct {
	Output string
	Graph  *depgraph.Graph
}

// Compile reads sourcePath (splicing in any `include`s), optionally
// seeds the heap from a calibration CSV, and compiles the program to its
// concatenated equation text plus a dependency graph.
func Compile(sourcePath string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.New()
	}

	h := heap.New()
	if opts.CalibrationPath != "" {
		if err := calibration.Load(opts.CalibrationPath, h); err != nil {
			return nil, err
		}
	}

	instructions, err := reader.ReadProgram(sourcePath)
	if err != nil {
		return nil, err
	}

	g := depgraph.New()
	var out strings.Builder
	for _, instr := range instructions {
		parsed, err := parser.Parse(instr.Text, instr.Line)
		if err != nil {
			return nil, err
		}
		if parsed.Assignment != nil {
			applyAssignment(parsed.Assignment, h)
			logger.Debugf("assignment at %s:%d applied", instr.File, instr.Line)
			continue
		}
		eqs, err := generate.Formula(parsed.Formula, h)
		if err != nil {
			return nil, err
		}
		for _, eq := range eqs {
			out.WriteString(eq.Text)
			out.WriteString("\r\n")
			g.Add(eq)
		}
		logger.Debugf("formula at %s:%d produced %d equation(s)", instr.File, instr.Line, len(eqs))
	}

	return &Result{Output: out.String(), Graph: g}, nil
}

func applyAssignment(n *ast.Node, h *heap.Heap) {
	names := n.Children[0].Children
	lists := n.Children[1].Children
	for i, nameNode := range names {
		name := strings.ToUpper(nameNode.Literal.(string))
		listNode := lists[i]
		words := make(heap.List, len(listNode.Children))
		for j, w := range listNode.Children {
			words[j] = w.Literal.(string)
		}
		h.SetList(name, words)
	}
}
