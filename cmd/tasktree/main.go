// Package main is the entry point for the tasktree command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/tasktree/internal/cli"
)

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, version, os.Args[1:]); err != nil {
		return 1
	}
	return 0
}
