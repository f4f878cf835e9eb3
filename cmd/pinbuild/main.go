package main

import (
	"fmt"
	"os"

	"github.com/blackwell-systems/pinbuild/internal/app"
)

// version is injected at link time via -ldflags "-X main.version=...".
// pinbuild is built the same way it builds everything else.
var version = "dev"

func main() {
	app.SetVersion(version)
	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
