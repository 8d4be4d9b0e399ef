package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"flatsheet/internal"
	"flatsheet/internal/config"
)

const provider = "gmail"

// workbookQuery narrows the listing to mails that can carry a roster.
const workbookQuery = "has:attachment (filename:xlsx OR filename:xlsm)"

type Connector struct {
	service *gmail.Service
	limiter *rate.Limiter
}

func NewConnector(cfg config.Config) (*Connector, error) {
	for _, req := range []struct{ name, value string }{
		{"GMAIL_CLIENT_ID", cfg.GmailClientID},
		{"GMAIL_CLIENT_SECRET", cfg.GmailClientSecret},
		{"GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken},
	} {
		if err := cfg.Require(req.name, req.value); err != nil {
			return nil, err
		}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	ctx := context.Background()
	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc, limiter: newLimiter(cfg.GmailRateLimitRPS)}, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func (c *Connector) FetchInbox(ctx context.Context, label string, limit int) ([]internal.FetchedMailMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	listResp, err := c.service.Users.Messages.List("me").
		LabelIds(label).
		Q(workbookQuery).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list: %w", err)
	}

	out := make([]internal.FetchedMailMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		msg, err := c.service.Users.Messages.Get("me", ref.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail get %s: %w", ref.Id, err)
		}
		if msg.Raw == "" {
			slog.Debug("gmail message without raw payload", "id", ref.Id)
			continue
		}

		raw, err := decodeBase64URL(msg.Raw)
		if err != nil {
			return nil, err
		}
		out = append(out, fromRaw(ref.Id, raw))
	}
	return out, nil
}

// fromRaw fills the message metadata from the RFC 5322 header of raw. The
// Gmail id stands in for a missing Message-ID.
func fromRaw(gmailID string, raw []byte) internal.FetchedMailMessage {
	fetched := internal.FetchedMailMessage{
		Provider:   provider,
		MessageID:  gmailID,
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
		Raw:        raw,
	}

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return fetched
	}
	header := parsed.Header
	if id := header.Get("Message-ID"); id != "" {
		fetched.MessageID = id
	}
	fetched.Subject = header.Get("Subject")
	fetched.From = header.Get("From")
	if date, err := header.Date(); err == nil {
		fetched.ReceivedAt = date.UTC().Format(time.RFC3339)
	}
	return fetched
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
