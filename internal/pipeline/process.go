package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"leadscreen/internal"
	"leadscreen/internal/config"
	"leadscreen/internal/events"
	"leadscreen/internal/storage"
	"leadscreen/internal/suppression"
)

// Service orchestrates screening runs end to end: load table, resolve
// headers, stream rows through the annotator, persist the annotated output.
type Service struct {
	store suppression.Store
	db    *storage.DB
	cfg   config.Config
	emit  events.Emitter
}

// NewService wires the orchestrator. db may be nil for one-shot runs that
// need no local tracking.
func NewService(store suppression.Store, db *storage.DB, cfg config.Config, emit events.Emitter) *Service {
	return &Service{store: store, db: db, cfg: cfg, emit: emit}
}

// DefaultOptions builds run options from configured defaults. Callers
// override per run; options never change mid-run.
func (s *Service) DefaultOptions() RunOptions {
	return RunOptions{
		ClientScope:        s.cfg.ClientScope,
		RecencyMonths:      s.cfg.RecencyMonths,
		SplitStatusColumns: s.cfg.SplitStatusColumns,
	}
}

type RunSummary struct {
	RunID      string
	Rows       int
	Checked    int
	Matched    int
	Skipped    int
	OutputPath string
}

// CheckWorkbookFile screens an uploaded .xlsx file and writes an annotated
// copy under a fresh unique name. The input artifact is never mutated. On
// any failure no output artifact exists.
func (s *Service) CheckWorkbookFile(ctx context.Context, inputPath string, opts RunOptions) (RunSummary, error) {
	f, err := excelize.OpenFile(inputPath)
	if err != nil {
		return RunSummary{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return RunSummary{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(rows) == 0 {
		return RunSummary{}, fmt.Errorf("%w: sheet %q has no header row", ErrMalformedInput, sheet)
	}

	cols, err := ResolveColumns(rows[0])
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	summary, _, err := s.annotate(ctx, runID, f, sheet, len(rows[0]), rows[1:], cols, internal.SourceXLSX, opts)
	if err != nil {
		return RunSummary{}, err
	}

	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return RunSummary{}, err
	}
	outPath := filepath.Join(s.cfg.OutputDir, uniqueOutputName(inputPath))
	if err := f.SaveAs(outPath); err != nil {
		return RunSummary{}, err
	}
	summary.OutputPath = outPath

	s.recordRun(runID, 0, internal.SourceXLSX, summary)
	s.emit.RunFinished(runID, summary.Checked, summary.Matched, summary.Skipped, outPath)
	return summary, nil
}

// CheckCSVFile screens a local .csv file; results go into a fresh workbook
// since there is no original workbook to copy.
func (s *Service) CheckCSVFile(ctx context.Context, inputPath string, opts RunOptions) (RunSummary, error) {
	blob, err := os.ReadFile(inputPath)
	if err != nil {
		return RunSummary{}, err
	}
	table, err := TableFromCSV(blob)
	if err != nil {
		return RunSummary{}, err
	}
	return s.checkTable(ctx, table, opts, uniqueOutputName(inputPath))
}

func (s *Service) checkTable(ctx context.Context, table *LeadTable, opts RunOptions, outputName string) (RunSummary, error) {
	cols, err := table.Resolve()
	if err != nil {
		return RunSummary{}, err
	}

	f, sheet, err := MaterializeWorkbook(table)
	if err != nil {
		return RunSummary{}, err
	}
	defer f.Close()

	runID := uuid.NewString()
	summary, _, err := s.annotate(ctx, runID, f, sheet, len(table.Header), table.Rows, cols, table.Source, opts)
	if err != nil {
		return RunSummary{}, err
	}

	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return RunSummary{}, err
	}
	outPath := filepath.Join(s.cfg.OutputDir, outputName)
	if err := f.SaveAs(outPath); err != nil {
		return RunSummary{}, err
	}
	summary.OutputPath = outPath

	s.recordRun(runID, 0, table.Source, summary)
	s.emit.RunFinished(runID, summary.Checked, summary.Matched, summary.Skipped, outPath)
	return summary, nil
}

// annotate is the Streaming phase: strictly sequential, row 2 before row 3,
// each lookup awaited before the next row. The first store failure aborts
// the run wholesale.
func (s *Service) annotate(ctx context.Context, runID string, f *excelize.File, sheet string, headerWidth int, dataRows [][]string, cols ColumnIndex, source internal.LeadSource, opts RunOptions) (RunSummary, []internal.LeadResult, error) {
	s.emit.RunStarted(runID, string(source), len(dataRows))

	lookup := suppression.NewClient(s.store, opts.ClientScope, opts.RecencyMonths)
	annotator, err := NewAnnotator(lookup, opts, s.emit, f, sheet, headerWidth+1)
	if err != nil {
		s.emit.RunAborted(runID, err)
		return RunSummary{}, nil, err
	}

	summary := RunSummary{RunID: runID, Rows: len(dataRows)}
	leads := make([]internal.LeadResult, 0, len(dataRows))
	for i, row := range dataRows {
		lineNo := i + 2
		lead, err := annotator.AnnotateRow(ctx, runID, lineNo, row, cols)
		if err != nil {
			s.emit.RunAborted(runID, err)
			return RunSummary{}, nil, err
		}
		lead.Source = source
		leads = append(leads, lead)

		if lead.Skipped {
			summary.Skipped++
			continue
		}
		summary.Checked++
		if lead.MatchStatus == internal.LabelMatch {
			summary.Matched++
		}
	}
	return summary, leads, nil
}

type MessageResult struct {
	MessageID  int
	Detected   bool
	Screened   int
	OutputPath string
}

func (s *Service) ProcessByProviderMessageID(ctx context.Context, provider, messageID string, opts RunOptions) (MessageResult, error) {
	msg, err := s.db.MustMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return MessageResult{}, err
	}
	return s.ProcessMessage(ctx, msg, opts)
}

func (s *Service) ProcessPending(ctx context.Context, limit int, provider string, opts RunOptions) (int, int, error) {
	pending, err := s.db.ListMessagesByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedMessages := 0
	screenedLeads := 0
	for _, msg := range pending {
		if provider != "" && msg.Provider != provider {
			continue
		}
		res, err := s.ProcessMessage(ctx, msg, opts)
		if err != nil {
			return processedMessages, screenedLeads, err
		}
		processedMessages++
		screenedLeads += res.Screened
	}
	return processedMessages, screenedLeads, nil
}

// ProcessMessage screens a fetched mail message: detect whether it carries
// a lead list, extract the table, run the same annotation pass an upload
// gets, persist per-lead results and export the annotated workbook.
func (s *Service) ProcessMessage(ctx context.Context, msg internal.MessageRow, opts RunOptions) (MessageResult, error) {
	raw, err := os.ReadFile(msg.RawRef)
	if err != nil {
		return MessageResult{}, err
	}

	extract, err := ExtractFromMessageRaw(raw)
	if err != nil {
		return MessageResult{}, err
	}

	detect := DetectLeadList(firstNonEmpty(extract.Subject, msg.Subject), extract.Text, extract.AttachmentNames, extract.Table != nil)
	if err := s.db.ClearMessageLeads(msg.ID); err != nil {
		return MessageResult{}, err
	}

	if !detect.IsLeadList || extract.Table == nil {
		_ = s.db.UpdateMessageStatus(msg.ID, "skipped")
		return MessageResult{MessageID: msg.ID}, nil
	}

	table := extract.Table
	cols, err := table.Resolve()
	if err != nil {
		_ = s.db.UpdateMessageStatus(msg.ID, "failed")
		return MessageResult{MessageID: msg.ID, Detected: true}, err
	}

	f, sheet, err := MaterializeWorkbook(table)
	if err != nil {
		return MessageResult{MessageID: msg.ID, Detected: true}, err
	}
	defer f.Close()

	runID := uuid.NewString()
	summary, leads, err := s.annotate(ctx, runID, f, sheet, len(table.Header), table.Rows, cols, table.Source, opts)
	if err != nil {
		_ = s.db.UpdateMessageStatus(msg.ID, "failed")
		return MessageResult{MessageID: msg.ID, Detected: true}, err
	}

	outDir := filepath.Join(s.cfg.OutputDir, "mail")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return MessageResult{MessageID: msg.ID, Detected: true}, err
	}
	outPath := filepath.Join(outDir, fmt.Sprintf("%d-checked-%d-%s.xlsx", msg.ID, time.Now().Unix(), runID[:8]))
	if err := f.SaveAs(outPath); err != nil {
		return MessageResult{MessageID: msg.ID, Detected: true}, err
	}
	summary.OutputPath = outPath

	for _, lead := range leads {
		if err := s.db.InsertLead(msg.ID, lead); err != nil {
			return MessageResult{MessageID: msg.ID, Detected: true}, err
		}
	}
	if err := s.db.UpdateMessageStatus(msg.ID, "processed"); err != nil {
		return MessageResult{MessageID: msg.ID, Detected: true}, err
	}

	s.recordRun(runID, msg.ID, table.Source, summary)
	s.emit.RunFinished(runID, summary.Checked, summary.Matched, summary.Skipped, outPath)

	return MessageResult{MessageID: msg.ID, Detected: true, Screened: summary.Checked, OutputPath: outPath}, nil
}

func (s *Service) recordRun(runID string, messageID int, source internal.LeadSource, summary RunSummary) {
	if s.db == nil {
		return
	}
	counts := map[string]int{
		"rows":    summary.Rows,
		"checked": summary.Checked,
		"matched": summary.Matched,
		"skipped": summary.Skipped,
	}
	_ = s.db.InsertRun(runID, messageID, string(source), counts, summary.OutputPath)
}

// uniqueOutputName keeps concurrent runs from colliding: timestamp for
// sortability plus a uuid fragment for same-second uploads.
func uniqueOutputName(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return fmt.Sprintf("%s-checked-%d-%s.xlsx", base, time.Now().Unix(), uuid.NewString()[:8])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
