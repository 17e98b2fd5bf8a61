package main

import (
	"os"

	"github.com/rustyeddy/igfx/cmd/igfx/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
