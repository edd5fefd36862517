package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := newCLI(os.Stdout, os.Stderr)
	return cli.execute(ctx, os.Args[1:])
}
