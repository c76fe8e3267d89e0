// Package diag carries structured diagnostic events out of the categorization core.
// The core never logs directly; callers decide where events go.
package diag

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Stages emitting events.
const (
	StagePrompt   = "prompt"
	StageModel    = "model"
	StageParse    = "parse"
	StageValidate = "validate"
	StageFlatten  = "flatten"
	StageChunk    = "chunk"
	StageRun      = "run"
)

// NoIndex marks Event.Row/Question/Answer/Chunk/Attempt as not applicable.
const NoIndex = -1

type Event struct {
	Severity Severity
	Stage    string
	Message  string
	RunID    string
	Chunk    int
	Attempt  int
	Row      int
	Question int
	Answer   int
	Detail   string
	Err      error
}

// New returns an event with all indexes unset.
func New(sev Severity, stage, msg string) Event {
	return Event{
		Severity: sev,
		Stage:    stage,
		Message:  msg,
		Chunk:    NoIndex,
		Attempt:  NoIndex,
		Row:      NoIndex,
		Question: NoIndex,
		Answer:   NoIndex,
	}
}

type Sink interface {
	Emit(ctx context.Context, e Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}

// WithRun stamps every event passing through with a run id.
func WithRun(s Sink, runID string) Sink {
	return runSink{next: s, runID: runID}
}

type runSink struct {
	next  Sink
	runID string
}

func (r runSink) Emit(ctx context.Context, e Event) {
	if e.RunID == "" {
		e.RunID = r.runID
	}
	r.next.Emit(ctx, e)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Stage returns the recorded events of one stage.
func (r *Recorder) Stage(stage string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// LogSink writes events through zerolog.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Emit(_ context.Context, e Event) {
	var ev *zerolog.Event
	switch e.Severity {
	case SeverityDebug:
		ev = l.logger.Debug()
	case SeverityInfo:
		ev = l.logger.Info()
	case SeverityWarn:
		ev = l.logger.Warn()
	default:
		ev = l.logger.Error()
	}
	ev = ev.Str("stage", e.Stage)
	if e.RunID != "" {
		ev = ev.Str("run_id", e.RunID)
	}
	ev = addIndex(ev, "chunk", e.Chunk)
	ev = addIndex(ev, "attempt", e.Attempt)
	ev = addIndex(ev, "row", e.Row)
	ev = addIndex(ev, "question", e.Question)
	ev = addIndex(ev, "answer", e.Answer)
	if e.Detail != "" {
		ev = ev.Str("detail", e.Detail)
	}
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	ev.Msg(e.Message)
}

func addIndex(ev *zerolog.Event, key string, v int) *zerolog.Event {
	if v == NoIndex {
		return ev
	}
	return ev.Int(key, v)
}

// PreviewLimit bounds the length of raw text copied into event details.
const PreviewLimit = 200

// Preview truncates s to PreviewLimit runes.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewLimit {
		return s
	}
	return string(r[:PreviewLimit]) + "..."
}
