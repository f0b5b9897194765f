package main

import (
	"fmt"
	"os"

	"github.com/home-designer/backend/internal/cli"
)

// Version info (set during build)
var Version = "dev"

func main() {
	cli.SetVersion(Version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
