package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/marben/fractal"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	fractal.SetLogger(slog.Default())

	// Ctrl-C stops the render at the next row; what is done so far is still saved
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}
