package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"leadscreen/internal/config"
	"leadscreen/internal/connectors"
	gmailconnector "leadscreen/internal/connectors/gmail"
	imapconnector "leadscreen/internal/connectors/imap"
	"leadscreen/internal/events"
	"leadscreen/internal/pipeline"
	"leadscreen/internal/storage"
	"leadscreen/internal/suppression"
)

// Service is the polling daemon: every interval it fetches new mail,
// screens every pending message and optionally exports the per-lead
// results of processed messages.
type Service struct {
	db    *storage.DB
	store suppression.Store
	cfg   config.Config
	log   *zap.Logger
}

func NewService(db *storage.DB, store suppression.Store, cfg config.Config, log *zap.Logger) *Service {
	return &Service{db: db, store: store, cfg: cfg, log: log}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			s.log.Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(ctx, provider)
	if err != nil {
		return err
	}

	intake := connectors.NewIntakeService(s.db, s.cfg.RawMailDir, mailConnector)
	intakeResult, err := intake.FetchAndArchive(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewService(s.store, s.db, s.cfg, events.NewZapEmitter(s.log))
	processed, screened, err := processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider, processor.DefaultOptions())
	if err != nil {
		return err
	}

	if s.cfg.MailListenerAutoExport {
		if err := s.exportProcessed(provider); err != nil {
			return err
		}
	}

	s.log.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", intakeResult.Fetched),
		zap.Int("archived", intakeResult.Archived),
		zap.Int("processed", processed),
		zap.Int("screened", screened),
	)
	return nil
}

// exportProcessed writes a flat per-lead workbook for each processed
// message and advances the message to "exported" so it is not exported
// twice.
func (s *Service) exportProcessed(provider string) error {
	messages, err := s.db.ListMessagesByStatus("processed", 200)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		if msg.Provider != provider {
			continue
		}
		leads, err := s.db.GetLeads(msg.ID)
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			continue
		}
		filename := fmt.Sprintf("%d_%s.xlsx", msg.ID, sanitizeMessageID(msg.MessageID))
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
		if err := pipeline.ExportLeadsToXLSX(leads, outputPath); err != nil {
			return err
		}
		_ = s.db.UpdateMessageStatus(msg.ID, "exported")
	}
	return nil
}

func (s *Service) makeConnector(ctx context.Context, provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
