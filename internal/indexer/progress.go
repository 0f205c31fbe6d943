package indexer

import (
	"github.com/charmbracelet/log"

	"github.com/mvp-joe/archaeologist/internal/indexer/parsers"
)

// Observer receives ingestion events. Events never alter control flow;
// implementations can display progress bars, log messages, or remain silent.
// Calls for one run arrive sequentially from the ingesting goroutine.
type Observer interface {
	// OnStateChange is called on every state transition.
	OnStateChange(runID string, from, to State)

	// OnGrammarDegraded is called at the start of a run for each optional
	// grammar served by the fallback.
	OnGrammarDegraded(runID string, g parsers.DegradedGrammar)

	// OnDiscoveryComplete is called with the number of admitted files.
	OnDiscoveryComplete(runID string, files int)

	// OnFileProcessed is called after each file, parsed or skipped.
	OnFileProcessed(runID string, path string, processed, total int)

	// Per-file diagnostics. None of them stop the run.
	OnDecodeFailed(runID string, path string, err error)
	OnParseFailed(runID string, path string, err error)
	OnQueryCompileFailed(runID string, path string, err error)
	OnSpecifierUnresolved(runID string, from, specifier string)

	// OnComplete is called after a successful commit.
	OnComplete(result *Result)

	// OnFailed is called when a run ends with an error.
	OnFailed(runID string, err error)
}

// NoOpObserver is an observer that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag), and
// embedded by observers that only care about a few events.
type NoOpObserver struct{}

func (NoOpObserver) OnStateChange(string, State, State)                {}
func (NoOpObserver) OnGrammarDegraded(string, parsers.DegradedGrammar) {}
func (NoOpObserver) OnDiscoveryComplete(string, int)                   {}
func (NoOpObserver) OnFileProcessed(string, string, int, int)          {}
func (NoOpObserver) OnDecodeFailed(string, string, error)              {}
func (NoOpObserver) OnParseFailed(string, string, error)               {}
func (NoOpObserver) OnQueryCompileFailed(string, string, error)        {}
func (NoOpObserver) OnSpecifierUnresolved(string, string, string)      {}
func (NoOpObserver) OnComplete(*Result)                                {}
func (NoOpObserver) OnFailed(string, error)                            {}

// MultiObserver fans every event out to each observer in order.
type MultiObserver []Observer

func (m MultiObserver) OnStateChange(runID string, from, to State) {
	for _, o := range m {
		o.OnStateChange(runID, from, to)
	}
}

func (m MultiObserver) OnGrammarDegraded(runID string, g parsers.DegradedGrammar) {
	for _, o := range m {
		o.OnGrammarDegraded(runID, g)
	}
}

func (m MultiObserver) OnDiscoveryComplete(runID string, files int) {
	for _, o := range m {
		o.OnDiscoveryComplete(runID, files)
	}
}

func (m MultiObserver) OnFileProcessed(runID string, path string, processed, total int) {
	for _, o := range m {
		o.OnFileProcessed(runID, path, processed, total)
	}
}

func (m MultiObserver) OnDecodeFailed(runID string, path string, err error) {
	for _, o := range m {
		o.OnDecodeFailed(runID, path, err)
	}
}

func (m MultiObserver) OnParseFailed(runID string, path string, err error) {
	for _, o := range m {
		o.OnParseFailed(runID, path, err)
	}
}

func (m MultiObserver) OnQueryCompileFailed(runID string, path string, err error) {
	for _, o := range m {
		o.OnQueryCompileFailed(runID, path, err)
	}
}

func (m MultiObserver) OnSpecifierUnresolved(runID string, from, specifier string) {
	for _, o := range m {
		o.OnSpecifierUnresolved(runID, from, specifier)
	}
}

func (m MultiObserver) OnComplete(result *Result) {
	for _, o := range m {
		o.OnComplete(result)
	}
}

func (m MultiObserver) OnFailed(runID string, err error) {
	for _, o := range m {
		o.OnFailed(runID, err)
	}
}

// LogObserver writes events as structured log records. Per-file diagnostics
// go to debug except parse failures, which warn.
type LogObserver struct {
	logger *log.Logger
}

// NewLogObserver creates an observer writing to logger.
func NewLogObserver(logger *log.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (l *LogObserver) OnStateChange(runID string, from, to State) {
	l.logger.Debug("state change", "run_id", runID, "from", from, "to", to)
}

func (l *LogObserver) OnGrammarDegraded(runID string, g parsers.DegradedGrammar) {
	l.logger.Warn("grammar degraded", "run_id", runID, "grammar", g.Tag, "fallback", g.Fallback, "reason", g.Reason)
}

func (l *LogObserver) OnDiscoveryComplete(runID string, files int) {
	l.logger.Info("discovery complete", "run_id", runID, "files", files)
}

func (l *LogObserver) OnFileProcessed(runID string, path string, processed, total int) {
	l.logger.Debug("file processed", "run_id", runID, "path", path, "processed", processed, "total", total)
}

func (l *LogObserver) OnDecodeFailed(runID string, path string, err error) {
	l.logger.Debug("notebook decode failed", "run_id", runID, "path", path, "err", err)
}

func (l *LogObserver) OnParseFailed(runID string, path string, err error) {
	l.logger.Warn("parse failed, file skipped", "run_id", runID, "path", path, "err", err)
}

func (l *LogObserver) OnQueryCompileFailed(runID string, path string, err error) {
	l.logger.Debug("import query failed to compile", "run_id", runID, "path", path, "err", err)
}

func (l *LogObserver) OnSpecifierUnresolved(runID string, from, specifier string) {
	l.logger.Debug("specifier unresolved", "run_id", runID, "from", from, "specifier", specifier)
}

func (l *LogObserver) OnComplete(r *Result) {
	l.logger.Info("ingestion complete",
		"run_id", r.RunID,
		"files", r.FilesDiscovered,
		"parsed", r.FilesParsed,
		"skipped", r.FilesSkipped,
		"edges", r.EdgesMerged,
		"unresolved", r.Unresolved,
		"duration", r.Duration)
}

func (l *LogObserver) OnFailed(runID string, err error) {
	l.logger.Error("ingestion failed", "run_id", runID, "err", err)
}
