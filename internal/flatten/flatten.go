// Package flatten turns a decoded, possibly malformed, categorization response into
// one output row per (question, answer) pair.
package flatten

import (
	"context"
	"fmt"
	"strings"

	"survey-categorizer/internal/diag"
	"survey-categorizer/internal/jsonval"
	"survey-categorizer/internal/models"
)

type Flattener struct {
	Delimiter string
	Sink      diag.Sink
}

func New(delimiter string, sink diag.Sink) *Flattener {
	if sink == nil {
		sink = diag.Nop{}
	}
	return &Flattener{Delimiter: delimiter, Sink: sink}
}

// Flatten never fails: elements of the wrong shape are skipped or coerced and reported to the sink.
// raw is read only.
func (f *Flattener) Flatten(ctx context.Context, raw any) []models.OutputRow {
	questions, ok := jsonval.AsArray(raw)
	if !ok {
		f.skip(ctx, diag.NoIndex, diag.NoIndex, "skipping response that is not a list", raw)
		return nil
	}

	var rows []models.OutputRow
	for qi, q := range questions {
		question, ok := jsonval.AsObject(q)
		if !ok {
			f.skip(ctx, qi, diag.NoIndex, "skipping malformed question", q)
			continue
		}

		qText := jsonval.Stringify(question[models.ColumnQuestionText])
		qCats := questionCategory(question[models.ColumnQuestionCategories])

		rawAnswers, present := question[models.ColumnAnswers]
		if !present {
			rawAnswers = []any{}
		}
		answers, ok := jsonval.AsArray(rawAnswers)
		if !ok {
			f.skip(ctx, qi, diag.NoIndex, "skipping question with invalid answers", qText)
			continue
		}

		for ai, a := range answers {
			answer, ok := jsonval.AsObject(a)
			if !ok {
				f.skip(ctx, qi, ai, "skipping malformed answer", a)
				continue
			}
			rows = append(rows, models.OutputRow{
				QuestionText:       qText,
				QuestionCategories: qCats,
				AnswerText:         jsonval.Stringify(answer[models.ColumnAnswerText]),
				AnswerCategories:   f.join(answer[models.ColumnAnswerCategories]),
				AnswerValue:        f.join(answer[models.ColumnAnswerValue]),
			})
		}

		e := diag.New(diag.SeverityDebug, diag.StageFlatten, "processed question")
		e.Question = qi
		e.Detail = fmt.Sprintf("category=%s", qCats)
		f.Sink.Emit(ctx, e)
	}
	return rows
}

// questionCategory takes the first element when the model returned a list.
func questionCategory(v any) string {
	if list, ok := jsonval.AsArray(v); ok {
		if len(list) == 0 {
			return ""
		}
		return jsonval.Stringify(list[0])
	}
	return jsonval.Stringify(v)
}

// join wraps a bare scalar into a single-element list; empty scalars become no elements.
func (f *Flattener) join(v any) string {
	list, ok := jsonval.AsArray(v)
	if !ok {
		if !jsonval.Truthy(v) {
			return ""
		}
		list = []any{v}
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = jsonval.Stringify(item)
	}
	return strings.Join(parts, f.Delimiter)
}

func (f *Flattener) skip(ctx context.Context, qi, ai int, msg string, value any) {
	e := diag.New(diag.SeverityWarn, diag.StageFlatten, msg)
	e.Question = qi
	e.Answer = ai
	e.Detail = diag.Preview(jsonval.Stringify(value))
	f.Sink.Emit(ctx, e)
}
