package categorizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"survey-categorizer/internal/diag"
	"survey-categorizer/internal/jsonval"
	"survey-categorizer/internal/models"
	"survey-categorizer/internal/prompt"
	"survey-categorizer/internal/validator"
)

const (
	DefaultMaxRetryCount = 2
	DefaultRetryDelay    = time.Second
)

// ErrMaxRetries is returned if the attempt loop ends without an outcome.
var ErrMaxRetries = errors.New("max retries exceeded")

// Chatter sends a single user message to the named model and returns the reply text.
type Chatter interface {
	Chat(ctx context.Context, model, prompt string) (string, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ChunkError reports a chunk whose every attempt failed to produce parseable output.
type ChunkError struct {
	Attempts int
	Cause    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ChunkError) Unwrap() error { return e.Cause }

// Result is the decoded response for one chunk. Raw is untrusted: when BestEffort is set
// it is the last attempt's output, accepted despite its Violations.
type Result struct {
	Raw        any
	Violations []validator.Violation
	Attempts   int
	BestEffort bool
}

func (r *Result) Valid() bool { return len(r.Violations) == 0 }

type Categorizer struct {
	chatter    Chatter
	model      string
	builder    *prompt.Builder
	sink       diag.Sink
	maxRetries int
	retryDelay time.Duration
	sleep      SleepFunc
}

type Option func(*Categorizer)

func WithMaxRetries(n int) Option {
	return func(c *Categorizer) { c.maxRetries = n }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Categorizer) { c.retryDelay = d }
}

func WithSleep(fn SleepFunc) Option {
	return func(c *Categorizer) { c.sleep = fn }
}

func WithSink(s diag.Sink) Option {
	return func(c *Categorizer) { c.sink = s }
}

func WithPromptBuilder(b *prompt.Builder) Option {
	return func(c *Categorizer) { c.builder = b }
}

func New(chatter Chatter, model string, opts ...Option) *Categorizer {
	c := &Categorizer{
		chatter:    chatter,
		model:      model,
		sink:       diag.Nop{},
		maxRetries: DefaultMaxRetryCount,
		retryDelay: DefaultRetryDelay,
		sleep:      Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.builder == nil {
		c.builder = prompt.NewBuilder(c.sink)
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	return c
}

// Categorize runs up to maxRetries attempts for chunk. Model and parse failures are retried;
// once attempts run out they surface as *ChunkError. Responses that parse but fail validation
// are retried too, and the last one is returned as best effort.
func (c *Categorizer) Categorize(ctx context.Context, chunk models.Chunk) (*Result, error) {
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		last := attempt == c.maxRetries

		raw, err := c.attempt(ctx, chunk, attempt)
		if err != nil {
			if last {
				return nil, &ChunkError{Attempts: c.maxRetries, Cause: err}
			}
			if err := c.backoff(ctx, chunk, attempt); err != nil {
				return nil, err
			}
			continue
		}

		violations := validator.Validate(raw)
		if len(violations) > 0 {
			for _, v := range violations {
				e := c.event(diag.SeverityWarn, diag.StageValidate, "validation error", chunk, attempt)
				e.Question = v.Question
				e.Answer = v.Answer
				e.Detail = v.Error()
				c.sink.Emit(ctx, e)
			}
			if !last {
				if err := c.backoff(ctx, chunk, attempt); err != nil {
					return nil, err
				}
				continue
			}
			c.sink.Emit(ctx, c.event(diag.SeverityWarn, diag.StageValidate,
				"max retries reached, using best effort", chunk, attempt))
		}

		return &Result{
			Raw:        raw,
			Violations: violations,
			Attempts:   attempt,
			BestEffort: len(violations) > 0,
		}, nil
	}
	return nil, ErrMaxRetries
}

// attempt performs one prompt, model call and decode cycle.
func (c *Categorizer) attempt(ctx context.Context, chunk models.Chunk, attempt int) (any, error) {
	p := c.builder.Build(ctx, chunk)

	reply, err := c.chatter.Chat(ctx, c.model, p)
	if err != nil {
		e := c.event(diag.SeverityWarn, diag.StageModel, "model call failed", chunk, attempt)
		e.Err = err
		c.sink.Emit(ctx, e)
		return nil, err
	}

	e := c.event(diag.SeverityDebug, diag.StageModel, "raw response preview", chunk, attempt)
	e.Detail = diag.Preview(reply)
	c.sink.Emit(ctx, e)

	raw, err := jsonval.Decode(ExtractJSON(reply))
	if err != nil {
		e := c.event(diag.SeverityWarn, diag.StageParse, "response is not valid json", chunk, attempt)
		e.Err = err
		c.sink.Emit(ctx, e)
		return nil, err
	}
	return raw, nil
}

func (c *Categorizer) backoff(ctx context.Context, chunk models.Chunk, attempt int) error {
	c.sink.Emit(ctx, c.event(diag.SeverityInfo, diag.StageChunk, "retrying", chunk, attempt))
	return c.sleep(ctx, c.retryDelay)
}

func (c *Categorizer) event(sev diag.Severity, stage, msg string, chunk models.Chunk, attempt int) diag.Event {
	e := diag.New(sev, stage, msg)
	e.Chunk = chunk.Index
	e.Attempt = attempt
	return e
}
