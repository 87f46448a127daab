// Package depgraph builds the equation dependency graph (a node per
// defined equation, with an edge from that equation's left-hand side to
// every defined equation mentioned on its right-hand side, itself
// included) and
// exports it as GraphML.
//
// MDL does not solve equations; the graph is built and exported purely
// as a diagnostic artifact, never fed back into compilation.
package depgraph

import (
	"encoding/xml"
	"regexp"
	"sort"

	"github.com/mdl-lang/mdlc/internal/generate"
)

// Graph accumulates one entry per generated equation. The set of valid
// edge targets (every equation's LHS) isn't known until the whole
// program has run, so Add only records each equation's own text and its
// RHS token candidates; filtering candidates down to real dependencies
// happens in WriteGraphML.
type Graph struct {
	equations  map[string]string   // lhs -> equation text
	candidates map[string][]string // lhs -> RHS tokens mentioned, unfiltered
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		equations:  map[string]string{},
		candidates: map[string][]string{},
	}
}

// identRe matches the realized-name tokens a generated RHS can mention:
// letters/digits/underscores, optionally followed by a parenthesized
// time offset such as "(-1)".
var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(\([0-9-]+\))?`)

// Add records one generated equation. It is a no-op for equations with
// no realized left-hand side (a bare expression formula has none to
// track, and so is never itself a dependency target).
func (g *Graph) Add(eq generate.Equation) {
	if eq.LHS == "" {
		return
	}
	g.equations[eq.LHS] = eq.Text
	g.candidates[eq.LHS] = identRe.FindAllString(eq.RHS, -1)
}

// graphML mirrors the minimal subset of the GraphML schema mdlc emits:
// a directed graph of named nodes, each carrying the equation text that
// defined it, and unattributed edges between them. No third-party
// GraphML writer was found anywhere in the retrieval pack (see
// DESIGN.md), so this is a direct encoding/xml marshaling of that subset
// rather than a hand-rolled string templater.
type graphML struct {
	XMLName xml.Name     `xml:"graphml"`
	Xmlns   string       `xml:"xmlns,attr"`
	Key     graphMLKey   `xml:"key"`
	Graph   graphMLGraph `xml:"graph"`
}

type graphMLKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type graphMLGraph struct {
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphMLNode `xml:"node"`
	Edges       []graphMLEdge `xml:"edge"`
}

type graphMLNode struct {
	ID   string          `xml:"id,attr"`
	Data graphMLNodeData `xml:"data"`
}

type graphMLNodeData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type graphMLEdge struct {
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

// WriteGraphML renders the graph as a deterministically ordered GraphML
// document. A node is emitted per defined equation (its LHS), carrying
// the equation text as its "equation" attribute; an edge LHS->d is
// emitted only when d is the LHS of a defined equation (a self-reference
// gives an edge LHS->LHS) —
// a RHS token that names no equation (an undefined/external reference)
// becomes neither a node nor an edge target.
func (g *Graph) WriteGraphML() ([]byte, error) {
	doc := graphML{
		Xmlns: "http://graphml.graphdrawing.org/xmlns",
		Key:   graphMLKey{ID: "equation", For: "node", Name: "equation", Type: "string"},
		Graph: graphMLGraph{EdgeDefault: "directed"},
	}

	lhsIDs := make([]string, 0, len(g.equations))
	for lhs := range g.equations {
		lhsIDs = append(lhsIDs, lhs)
	}
	sort.Strings(lhsIDs)

	for _, lhs := range lhsIDs {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphMLNode{
			ID:   lhs,
			Data: graphMLNodeData{Key: "equation", Value: g.equations[lhs]},
		})
	}

	for _, lhs := range lhsIDs {
		targets := map[string]bool{}
		for _, tok := range g.candidates[lhs] {
			if _, ok := g.equations[tok]; ok {
				targets[tok] = true
			}
		}
		sorted := make([]string, 0, len(targets))
		for t := range targets {
			sorted = append(sorted, t)
		}
		sort.Strings(sorted)
		for _, t := range sorted {
			doc.Graph.Edges = append(doc.Graph.Edges, graphMLEdge{Source: lhs, Target: t})
		}
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
