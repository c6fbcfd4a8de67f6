package main

import (
	"os"

	"github.com/Hj567/ub-unsecured-onboard/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
