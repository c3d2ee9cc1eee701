// File: cmd/puppetry/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/vxkeys/puppetry/cmd"
	"github.com/vxkeys/puppetry/internal/observability"
)

func main() {
	// SIGINT and SIGTERM cancel the context; long-running commands drain
	// through their graceful shutdown paths.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}
