package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/zeromicro/go-zero/core/conf"

	"github.com/marben/fractal"
)

var configFile = flag.String("f", "etc/server.yaml", "the config file")

// main is the entry point for the live preview server.
// Rendering happens here; web clients only draw the frames they are sent.
func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	var c Config
	conf.MustLoad(*configFile, &c, conf.UseEnv())

	if c.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			return fmt.Errorf("agent.Listen: %w", err)
		}
		defer agent.Close()
	}

	fractal.SetLogger(slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newServer(ctx, c)
	if err != nil {
		return fmt.Errorf("newServer: %w", err)
	}

	// httpServer provides index.html, main.wasm along with the websocket and snapshot endpoints
	httpServer := &http.Server{
		Addr:              c.ListenOn,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on http://localhost%s", c.ListenOn)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("httpServer: %w", err)
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpServer.Shutdown: %w", err)
	}
	return nil
}
