package connectors

import (
	"context"
	"log/slog"

	"flatsheet/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
}

type FetchResult struct {
	Fetched int
	Stored  int
	Skipped int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
	}
}

// FetchAndStore saves every fetched message as a raw .eml and registers it
// for processing. Messages seen before keep their processing status.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, limit int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, limit)
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if len(msg.Raw) == 0 {
			result.Skipped++
			continue
		}
		row, err := s.store.Store(msg)
		if err != nil {
			return result, err
		}
		slog.Debug("mail stored", "email", row.ID, "provider", row.Provider, "status", row.Status)
		result.Stored++
	}
	return result, nil
}
