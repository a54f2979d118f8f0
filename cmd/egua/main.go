package main

import (
	"os"

	"github.com/wallysom2/egua-cli/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
