// Command coastal inspects decomposed coastal meshes and solves the harmonic
// long wave problem on each domain.
//
// Usage:
//
//	coastal inspect --mesh mesh.txt --interface interface.txt --depth depth.txt
//	coastal solve --config run.yaml
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
