package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"leadscreen/internal"
	"leadscreen/internal/config"
)

type Connector struct {
	service *gmail.Service
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc}, nil
}

func (c *Connector) FetchInbox(ctx context.Context, mailbox string, max int) ([]internal.InboundMessage, error) {
	listResp, err := c.service.Users.Messages.List("me").LabelIds(mailbox).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.InboundMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}
		msg, ok, err := c.fetchOne(ctx, ref.Id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, msg)
		}
	}

	return out, nil
}

// fetchOne pulls one message in raw form plus the envelope headers. The
// second call is metadata-only; Gmail does not return headers alongside
// Format("raw").
func (c *Connector) fetchOne(ctx context.Context, id string) (internal.InboundMessage, bool, error) {
	rawResp, err := c.service.Users.Messages.Get("me", id).Format("raw").Context(ctx).Do()
	if err != nil {
		return internal.InboundMessage{}, false, err
	}
	if rawResp.Raw == "" {
		return internal.InboundMessage{}, false, nil
	}

	metaResp, err := c.service.Users.Messages.Get("me", id).Format("metadata").
		MetadataHeaders("Subject", "From", "Date", "Message-ID").Context(ctx).Do()
	if err != nil {
		return internal.InboundMessage{}, false, err
	}

	rawBytes, err := decodeBase64URL(rawResp.Raw)
	if err != nil {
		return internal.InboundMessage{}, false, err
	}

	headers := map[string]string{}
	if metaResp.Payload != nil {
		for _, h := range metaResp.Payload.Headers {
			headers[strings.ToLower(h.Name)] = h.Value
		}
	}

	received := time.Now().UTC().Format(time.RFC3339)
	if dateHeader := headers["date"]; dateHeader != "" {
		if t, err := parseMailDate(dateHeader); err == nil {
			received = t.UTC().Format(time.RFC3339)
		}
	}

	messageID := headers["message-id"]
	if messageID == "" {
		messageID = id
	}

	return internal.InboundMessage{
		Provider:   "gmail",
		MessageID:  messageID,
		Subject:    headers["subject"],
		From:       headers["from"],
		ReceivedAt: received,
		Raw:        rawBytes,
	}, true, nil
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

func parseMailDate(value string) (time.Time, error) {
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC850, time.ANSIC}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format")
}
