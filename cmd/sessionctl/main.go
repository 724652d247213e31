package main

import (
	"os"

	"github.com/jrsteele09/go-session-gateway/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
