package main

import (
	"fmt"
	"os"

	"backoffice/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.OpenFromConfig).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
