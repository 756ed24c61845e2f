package connectors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"leadscreen/internal"
	"leadscreen/internal/storage"
)

// IntakeService fetches inbound mail and archives each message: the raw
// bytes land on disk keyed by content hash, the envelope lands in the
// messages table with status "fetched". Refetching the same message is
// idempotent on both sides.
type IntakeService struct {
	db         *storage.DB
	rawMailDir string
	connector  MailConnector
}

type IntakeResult struct {
	Fetched  int
	Archived int
}

func NewIntakeService(db *storage.DB, rawMailDir string, connector MailConnector) *IntakeService {
	return &IntakeService{db: db, rawMailDir: rawMailDir, connector: connector}
}

func (s *IntakeService) FetchAndArchive(ctx context.Context, mailbox string, max int) (IntakeResult, error) {
	messages, err := s.connector.FetchInbox(ctx, mailbox, max)
	if err != nil {
		return IntakeResult{}, err
	}

	archived := 0
	for _, msg := range messages {
		if _, err := s.Archive(msg); err != nil {
			return IntakeResult{Fetched: len(messages), Archived: archived}, err
		}
		archived++
	}

	return IntakeResult{Fetched: len(messages), Archived: archived}, nil
}

// Archive writes the raw message under its sha256 hash and upserts the
// envelope row. An already-archived raw file is left untouched.
func (s *IntakeService) Archive(msg internal.InboundMessage) (internal.MessageRow, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.MessageRow{}, err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.MessageRow{}, err
		}
	}

	return s.db.UpsertMessage(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, "fetched")
}
