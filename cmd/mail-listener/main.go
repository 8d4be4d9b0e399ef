package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"flatsheet/internal/config"
	"flatsheet/internal/listener"
	"flatsheet/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("mail listener started", "provider", cfg.MailListenerProvider, "mailbox", cfg.MailListenerLabel, "interval_sec", cfg.MailListenerIntervalSec)
	must(listener.NewService(db, cfg).Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
