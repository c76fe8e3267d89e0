package prompt

import (
	"context"
	"fmt"
	"strings"

	"survey-categorizer/internal/diag"
	"survey-categorizer/internal/jsonval"
	"survey-categorizer/internal/models"
)

// Builder renders the categorization prompt for a chunk.
type Builder struct {
	Template string
	Sink     diag.Sink
}

func NewBuilder(sink diag.Sink) *Builder {
	if sink == nil {
		sink = diag.Nop{}
	}
	return &Builder{Template: models.CategorizePromptTemplate, Sink: sink}
}

// Build is deterministic for a given chunk and template. Rows whose answers field cannot be
// read are left out and reported to the sink.
func (b *Builder) Build(ctx context.Context, chunk models.Chunk) string {
	var sb strings.Builder
	sb.WriteString(b.Template)

	for _, row := range chunk.Rows {
		operands, err := Operands(row.Answers)
		if err != nil {
			e := diag.New(diag.SeverityWarn, diag.StagePrompt, "skipping row due to parsing error")
			e.Chunk = chunk.Index
			e.Row = row.Line
			e.Err = err
			b.Sink.Emit(ctx, e)
			continue
		}
		if len(operands) == 0 {
			e := diag.New(diag.SeverityDebug, diag.StagePrompt, "skipping row without operands")
			e.Chunk = chunk.Index
			e.Row = row.Line
			b.Sink.Emit(ctx, e)
			continue
		}

		list, err := jsonval.Encode(operands)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, models.QuestionEntryTemplate, row.QuestionText, list)
	}
	return sb.String()
}

// Operands decodes an answers cell of the form {"answers": [{"operand": "..."}, ...]}
// and returns the non-empty operands in order.
func Operands(answers string) ([]string, error) {
	v, err := jsonval.Decode(answers)
	if err != nil {
		return nil, fmt.Errorf("invalid answers json: %w", err)
	}
	obj, ok := jsonval.AsObject(v)
	if !ok {
		return nil, fmt.Errorf("answers must be an object, got %s", jsonval.KindOf(v))
	}
	raw, present := obj[models.ColumnAnswers]
	if !present {
		return nil, nil
	}
	items, ok := jsonval.AsArray(raw)
	if !ok {
		return nil, fmt.Errorf("answers.answers must be a list, got %s", jsonval.KindOf(raw))
	}

	var out []string
	for _, item := range items {
		sub, ok := jsonval.AsObject(item)
		if !ok {
			continue
		}
		if op := sub["operand"]; jsonval.Truthy(op) {
			out = append(out, jsonval.Stringify(op))
		}
	}
	return out, nil
}
