package processor

import (
	"context"
	"fmt"
	"io"
	"time"

	"survey-categorizer/internal/categorizer"
	"survey-categorizer/internal/diag"
	"survey-categorizer/internal/flatten"
	"survey-categorizer/internal/jsonval"
	"survey-categorizer/internal/models"
	"survey-categorizer/internal/prompt"
	"survey-categorizer/internal/tabular"
)

const (
	DefaultChunkSize  = 5
	DefaultChunkDelay = 500 * time.Millisecond
)

// ChunkCategorizer categorizes one chunk of input rows.
type ChunkCategorizer interface {
	Categorize(ctx context.Context, chunk models.Chunk) (*categorizer.Result, error)
}

type (
	ReadFunc  func(path string) ([]models.InputRow, error)
	WriteFunc func(path string, rows []models.OutputRow) error
)

// Summary describes a finished run.
type Summary struct {
	RunID      string `json:"run_id"`
	InputRows  int    `json:"input_rows"`
	Chunks     int    `json:"chunks"`
	Succeeded  int    `json:"succeeded"`
	BestEffort int    `json:"best_effort"`
	Skipped    int    `json:"skipped"`
	OutputRows int    `json:"output_rows"`
}

type Processor struct {
	inputFile  string
	outputFile string
	runID      string

	categorizer ChunkCategorizer
	flattener   *flatten.Flattener
	builder     *prompt.Builder
	sink        diag.Sink

	chunkSize  int
	chunkDelay time.Duration
	sleep      categorizer.SleepFunc
	read       ReadFunc
	write      WriteFunc
}

type Option func(*Processor)

func WithChunkSize(n int) Option {
	return func(p *Processor) { p.chunkSize = n }
}

func WithChunkDelay(d time.Duration) Option {
	return func(p *Processor) { p.chunkDelay = d }
}

func WithSleep(fn categorizer.SleepFunc) Option {
	return func(p *Processor) { p.sleep = fn }
}

func WithSink(s diag.Sink) Option {
	return func(p *Processor) { p.sink = s }
}

func WithDelimiter(d string) Option {
	return func(p *Processor) { p.flattener.Delimiter = d }
}

func WithRunID(id string) Option {
	return func(p *Processor) { p.runID = id }
}

func WithIO(read ReadFunc, write WriteFunc) Option {
	return func(p *Processor) {
		p.read = read
		p.write = write
	}
}

func New(inputFile, outputFile string, c ChunkCategorizer, opts ...Option) *Processor {
	p := &Processor{
		inputFile:   inputFile,
		outputFile:  outputFile,
		categorizer: c,
		flattener:   flatten.New(";", nil),
		sink:        diag.Nop{},
		chunkSize:   DefaultChunkSize,
		chunkDelay:  DefaultChunkDelay,
		sleep:       categorizer.Sleep,
		read:        tabular.ReadRows,
		write:       tabular.WriteRows,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.chunkSize < 1 {
		p.chunkSize = DefaultChunkSize
	}
	p.flattener.Sink = p.sink
	p.builder = prompt.NewBuilder(p.sink)
	return p
}

// Run categorizes every chunk in input order and writes the output exactly once at the end.
// A chunk that fails is skipped; only reading the input or writing the output can fail the run.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	rows, err := p.read(p.inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", p.inputFile, err)
	}

	chunks := models.ChunkRows(rows, p.chunkSize)
	summary := &Summary{RunID: p.runID, InputRows: len(rows), Chunks: len(chunks)}
	p.emit(ctx, diag.New(diag.SeverityInfo, diag.StageRun,
		fmt.Sprintf("processing %d rows in %d chunks", len(rows), len(chunks))))

	var output []models.OutputRow
	for _, chunk := range chunks {
		res, err := p.categorizer.Categorize(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			summary.Skipped++
			e := chunkEvent(diag.SeverityWarn, "skipping chunk due to error", chunk)
			e.Err = err
			p.emit(ctx, e)
			continue
		}
		if !jsonval.Truthy(res.Raw) {
			summary.Skipped++
			p.emit(ctx, chunkEvent(diag.SeverityWarn, "no results returned, skipping chunk", chunk))
			continue
		}
		if _, ok := jsonval.AsArray(res.Raw); !ok {
			summary.Skipped++
			e := chunkEvent(diag.SeverityWarn, "result is not a list, skipping chunk", chunk)
			e.Detail = "got " + jsonval.KindOf(res.Raw).String()
			p.emit(ctx, e)
			continue
		}

		flat := p.flattener.Flatten(ctx, res.Raw)
		output = append(output, flat...)
		summary.Succeeded++
		if res.BestEffort {
			summary.BestEffort++
		}
		e := chunkEvent(diag.SeverityInfo, "chunk processed", chunk)
		e.Attempt = res.Attempts
		e.Detail = fmt.Sprintf("rows=%d best_effort=%t", len(flat), res.BestEffort)
		p.emit(ctx, e)

		if err := p.sleep(ctx, p.chunkDelay); err != nil {
			return nil, err
		}
	}

	summary.OutputRows = len(output)
	if err := p.write(p.outputFile, output); err != nil {
		return nil, fmt.Errorf("failed to write output %s: %w", p.outputFile, err)
	}
	p.emit(ctx, diag.New(diag.SeverityInfo, diag.StageRun, "output saved: "+p.outputFile))
	return summary, nil
}

// DryRun writes the prompt of every chunk to w without calling the model or writing output.
func (p *Processor) DryRun(ctx context.Context, w io.Writer) (int, error) {
	rows, err := p.read(p.inputFile)
	if err != nil {
		return 0, fmt.Errorf("failed to read input %s: %w", p.inputFile, err)
	}
	chunks := models.ChunkRows(rows, p.chunkSize)
	for _, chunk := range chunks {
		fmt.Fprintf(w, "=== chunk %d (%d rows)\n%s\n", chunk.Index, len(chunk.Rows), p.builder.Build(ctx, chunk))
	}
	return len(chunks), nil
}

func (p *Processor) emit(ctx context.Context, e diag.Event) {
	p.sink.Emit(ctx, e)
}

func chunkEvent(sev diag.Severity, msg string, chunk models.Chunk) diag.Event {
	e := diag.New(sev, diag.StageChunk, msg)
	e.Chunk = chunk.Index
	return e
}
