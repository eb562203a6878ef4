package main

import (
	"os"

	"github.com/volcanion-systems/volcanion-tracking/cmd/trackctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
