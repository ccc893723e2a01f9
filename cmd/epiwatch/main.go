package main

import (
	"os"

	"github.com/epiwatch/epiwatch/cmd/epiwatch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
