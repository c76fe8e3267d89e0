package prompt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-categorizer/internal/diag"
	"survey-categorizer/internal/models"
)

func TestOperands(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{
			name: "operands in order",
			in:   `{"answers": [{"operand": "Ja", "id": 1}, {"operand": "Nein"}]}`,
			want: []string{"Ja", "Nein"},
		},
		{
			name: "empty and missing operands dropped",
			in:   `{"answers": [{"operand": ""}, {"label": "x"}, {"operand": "Oft"}, "stray"]}`,
			want: []string{"Oft"},
		},
		{
			name: "numeric operand",
			in:   `{"answers": [{"operand": 10}]}`,
			want: []string{"10"},
		},
		{name: "no answers key", in: `{"other": []}`, want: nil},
		{name: "invalid json", in: `{"answers": [`, wantErr: true},
		{name: "not an object", in: `["Ja"]`, wantErr: true},
		{name: "answers not a list", in: `{"answers": "Ja"}`, wantErr: true},
		{name: "empty cell", in: ``, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Operands(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild(t *testing.T) {
	chunk := models.Chunk{Index: 3, Rows: []models.InputRow{
		{Line: 1, QuestionText: "Rauchen Sie?", Answers: `{"answers": [{"operand": "Ja"}, {"operand": "Nein"}]}`},
		{Line: 2, QuestionText: "Broken", Answers: `not json`},
		{Line: 3, QuestionText: "Empty", Answers: `{"answers": []}`},
		{Line: 4, QuestionText: `Say "hi"?`, Answers: `{"answers": [{"operand": "Täglich"}]}`},
	}}

	var rec diag.Recorder
	b := NewBuilder(&rec)
	got := b.Build(context.Background(), chunk)

	require.True(t, strings.HasPrefix(got, models.CategorizePromptTemplate))
	body := strings.TrimPrefix(got, models.CategorizePromptTemplate)
	assert.Equal(t,
		"Question: \"Rauchen Sie?\"\nAnswers: [\"Ja\",\"Nein\"]\n\n"+
			"Question: \"Say \\\"hi\\\"?\"\nAnswers: [\"Täglich\"]\n\n",
		body)

	events := rec.Stage(diag.StagePrompt)
	require.Len(t, events, 2)
	assert.Equal(t, diag.SeverityWarn, events[0].Severity)
	assert.Equal(t, 2, events[0].Row)
	assert.Equal(t, 3, events[0].Chunk)
	assert.Error(t, events[0].Err)
	assert.Equal(t, diag.SeverityDebug, events[1].Severity)
	assert.Equal(t, 3, events[1].Row)
}

func TestBuildIsDeterministic(t *testing.T) {
	chunk := models.Chunk{Rows: []models.InputRow{
		{QuestionText: "Wie oft?", Answers: `{"answers": [{"operand": "Oft"}, {"operand": "Nie"}]}`},
	}}
	b := NewBuilder(nil)
	assert.Equal(t, b.Build(context.Background(), chunk), b.Build(context.Background(), chunk))
}

func TestBuildKeepsAnswerTextVerbatim(t *testing.T) {
	chunk := models.Chunk{Rows: []models.InputRow{
		{QuestionText: "Zigaretten pro Tag?", Answers: `{"answers": [{"operand": "< 5 Zigaretten"}, {"operand": "5 & mehr"}, {"operand": "> 20"}]}`},
	}}
	got := NewBuilder(nil).Build(context.Background(), chunk)

	assert.Contains(t, got, `Answers: ["< 5 Zigaretten","5 & mehr","> 20"]`)
	assert.NotContains(t, got, `\u003c`)
	assert.NotContains(t, got, `\u0026`)
}

func TestPromptTemplateRules(t *testing.T) {
	for _, rule := range []string{
		"Return ONLY valid JSON",
		"MUST be in English only",
		"EXACTLY ONE category",
		"at least one category and one value",
		"Translate German terms to English",
		"'operand' is the user facing answer",
	} {
		assert.Contains(t, models.CategorizePromptTemplate, rule)
	}
}
