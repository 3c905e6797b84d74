package main

import (
	"fmt"
	"os"
)

// Set through -ldflags at build time.
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
