package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/devtron-labs/dtconfig/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if err := Execute(ctx); err != nil {
		logging.LoggerFromContext(ctx).Error(err, "")
		stop()
		os.Exit(1)
	}
	stop()
}
