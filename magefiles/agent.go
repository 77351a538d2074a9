//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Serve builds the binary and starts the A2A server with the local config.
func Serve() error {
	mg.Deps(Init, Build)
	return sh.RunV(binDir+"/"+binName, "serve")
}

// Research builds the binary and runs one query in normal mode, saving the
// report under reports/.
func Research(query string) error {
	mg.Deps(Init, Build)
	fmt.Printf("[research] %s\n", query)
	return sh.RunV(binDir+"/"+binName, "research", "--query", query, "--save", "reports/last.yaml")
}

// Card prints the agent card the server would advertise.
func Card() error {
	mg.Deps(Build)
	return sh.RunV(binDir+"/"+binName, "card")
}
