// Command broker runs the publish/subscribe broker described in this
// repository: UDP publishers inject typed messages on named topics, TCP
// subscribers register interest (optionally with store-and-forward) and
// receive every matching message.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nighlabs/sfbroker/internal/broker"
	"github.com/nighlabs/sfbroker/internal/config"
	"github.com/nighlabs/sfbroker/internal/faults"
	"github.com/nighlabs/sfbroker/internal/logging"
)

func main() {
	logging.Initialize()

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <port>\n", os.Args[0])
		os.Exit(1)
	}
	port := os.Args[1]

	cfg := config.Load()

	flush, err := faults.Init(cfg.SentryDSN, cfg.SentryEnvironment)
	if err != nil {
		slog.Error("failed to initialize fault reporting", slog.Any("error", err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := broker.New(cfg)
	addr := ":" + port
	if err := d.ListenAndServe(ctx, addr); err != nil {
		slog.Error("broker failed", slog.Any("error", err))
		faults.Report(err)
		os.Exit(1)
	}
}
