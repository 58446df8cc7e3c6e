package main

import (
	"os"

	"github.com/rtzll/clipscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
