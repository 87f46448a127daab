// Command mdlc compiles MDL template programs into their expanded
// equation text plus a GraphML dependency graph.
package main

import "github.com/mdl-lang/mdlc/cmd/mdlc/cmd"

func main() {
	cmd.Execute()
}
