// Idiomatic entrypoint for the cobra CLI, which delegates to cmd/root.go.
package main

import (
	"github.com/factorysim/des-engine/cmd"
)

func main() {
	cmd.Execute()
}
