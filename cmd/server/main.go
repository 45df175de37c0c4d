package main

import (
	"fmt"
	"os"

	"motomaster/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "motomaster: %v\n", err)
		os.Exit(1)
	}
}
