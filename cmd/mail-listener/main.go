package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"leadscreen/internal/config"
	"leadscreen/internal/listener"
	"leadscreen/internal/storage"
	"leadscreen/internal/suppression"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log, err := zap.NewProduction()
	must(err)
	defer log.Sync()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	store, err := suppression.Open(cfg.SuppressionDBURL)
	must(err)
	defer store.Close()

	svc := listener.NewService(db, store, cfg, log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
