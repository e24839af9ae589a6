package main

import (
	"errors"
	"os"

	"github.com/mgpai22/subqc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if errors.Is(err, cli.ErrIssuesFound) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
