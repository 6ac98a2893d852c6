// Command mc is the mission control CLI used by agent workers. Every command
// prints a single JSON object to stdout and exits 1 on failure; logs go to
// stderr.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, openApp)
	stop()
	os.Exit(code)
}
