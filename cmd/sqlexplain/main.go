// Package main provides the sqlexplain CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlexplain/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
