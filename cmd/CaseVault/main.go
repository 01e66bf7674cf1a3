package main

import (
	"os"

	"CaseVault/internal/modules/archive/interface/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
