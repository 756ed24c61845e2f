// Package events is the observability seam the screening pipeline emits to.
// The core never logs directly; it reports run lifecycle and per-row facts
// here and the binary decides where they go.
package events

import "go.uber.org/zap"

type Emitter interface {
	RunStarted(runID, source string, rows int)
	RowSkipped(runID string, lineNo int)
	RowChecked(runID string, lineNo int, matched bool, dateStatus string)
	RunAborted(runID string, err error)
	RunFinished(runID string, checked, matched, skipped int, outputRef string)
}

// ZapEmitter writes run events as structured log entries.
type ZapEmitter struct {
	log *zap.Logger
}

func NewZapEmitter(log *zap.Logger) *ZapEmitter {
	return &ZapEmitter{log: log}
}

func (e *ZapEmitter) RunStarted(runID, source string, rows int) {
	e.log.Info("run started",
		zap.String("run", runID),
		zap.String("source", source),
		zap.Int("rows", rows))
}

func (e *ZapEmitter) RowSkipped(runID string, lineNo int) {
	e.log.Debug("row skipped",
		zap.String("run", runID),
		zap.Int("line", lineNo))
}

func (e *ZapEmitter) RowChecked(runID string, lineNo int, matched bool, dateStatus string) {
	e.log.Debug("row checked",
		zap.String("run", runID),
		zap.Int("line", lineNo),
		zap.Bool("matched", matched),
		zap.String("dateStatus", dateStatus))
}

func (e *ZapEmitter) RunAborted(runID string, err error) {
	e.log.Error("run aborted",
		zap.String("run", runID),
		zap.Error(err))
}

func (e *ZapEmitter) RunFinished(runID string, checked, matched, skipped int, outputRef string) {
	e.log.Info("run finished",
		zap.String("run", runID),
		zap.Int("checked", checked),
		zap.Int("matched", matched),
		zap.Int("skipped", skipped),
		zap.String("output", outputRef))
}

// Nop discards all events. Used by tests and one-shot commands.
type Nop struct{}

func (Nop) RunStarted(string, string, int)            {}
func (Nop) RowSkipped(string, int)                    {}
func (Nop) RowChecked(string, int, bool, string)      {}
func (Nop) RunAborted(string, error)                  {}
func (Nop) RunFinished(string, int, int, int, string) {}
