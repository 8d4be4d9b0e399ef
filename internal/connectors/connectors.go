package connectors

import (
	"context"
	"fmt"
	"strings"

	"flatsheet/internal"
	"flatsheet/internal/config"
	gmailconnector "flatsheet/internal/connectors/gmail"
	imapconnector "flatsheet/internal/connectors/imap"
)

// MailConnector pulls raw messages from one mailbox. Implementations return
// at most limit messages, newest last.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, limit int) ([]internal.FetchedMailMessage, error)
}

func ForProvider(cfg config.Config, provider string) (MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %q", provider)
	}
}
