package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"flatsheet/internal/config"
	"flatsheet/internal/connectors"
	"flatsheet/internal/pipeline"
	"flatsheet/internal/storage"
)

const lastCycleKey = "listener.last_cycle"

type Service struct {
	db        *storage.DB
	cfg       config.Config
	processor *pipeline.ProcessingService
	connect   func(cfg config.Config, provider string) (connectors.MailConnector, error)
}

type CycleResult struct {
	Provider  string
	Fetched   int
	Stored    int
	Emails    int
	Workbooks int
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{
		db:        db,
		cfg:       cfg,
		processor: pipeline.NewProcessingService(db, cfg, nil),
		connect:   connectors.ForProvider,
	}
}

// Run polls the configured mailbox until ctx is cancelled. A failed cycle is
// logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	for {
		res, err := s.RunCycle(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			slog.Error("listener cycle failed", "provider", res.Provider, "err", err)
		default:
			slog.Info("listener cycle done",
				"provider", res.Provider,
				"fetched", res.Fetched,
				"stored", res.Stored,
				"emails", res.Emails,
				"workbooks", res.Workbooks)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle fetches new mail, processes everything pending for the provider
// and stamps the cycle time in the metadata table.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	res := CycleResult{Provider: provider}

	conn, err := s.connect(s.cfg, provider)
	if err != nil {
		return res, err
	}

	fetched, err := connectors.NewFetchService(s.db, s.cfg.RawMailDir, conn).
		FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}
	res.Fetched, res.Stored = fetched.Fetched, fetched.Stored

	res.Emails, res.Workbooks, err = s.processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return res, fmt.Errorf("process: %w", err)
	}

	if err := s.db.SetMetadata(lastCycleKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return res, err
	}
	return res, nil
}
