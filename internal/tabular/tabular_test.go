package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"survey-categorizer/internal/models"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadRowsCSV(t *testing.T) {
	path := writeFile(t, "survey.csv", "\ufeffid,question_text,answers\n"+
		`1,Rauchen Sie?,"{""answers"": [{""operand"": ""Ja""}]}"`+"\n"+
		",,\n"+
		`3,"Wie oft, bitte?",`+"\n")

	rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, []models.InputRow{
		{Line: 1, QuestionText: "Rauchen Sie?", Answers: `{"answers": [{"operand": "Ja"}]}`},
		{Line: 3, QuestionText: "Wie oft, bitte?", Answers: ""},
	}, rows)
}

func TestReadRowsTSV(t *testing.T) {
	path := writeFile(t, "survey.tsv", "answers\tquestion_text\n{\"answers\": []}\tSchlafen Sie gut?\n")

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Schlafen Sie gut?", rows[0].QuestionText)
	assert.Equal(t, `{"answers": []}`, rows[0].Answers)
}

func TestReadRowsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.xlsx")
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, record := range [][]string{
		{"question_text", "answers"},
		{"Rauchen Sie?", `{"answers": [{"operand": "Nein"}]}`},
	} {
		row := sheet.AddRow()
		for _, v := range record {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, file.Save(path))

	rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, []models.InputRow{
		{Line: 1, QuestionText: "Rauchen Sie?", Answers: `{"answers": [{"operand": "Nein"}]}`},
	}, rows)
}

func TestReadRowsErrors(t *testing.T) {
	_, err := ReadRows(writeFile(t, "survey.json", "[]"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ReadRows(writeFile(t, "survey.csv", "question_text\nq\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadRows(writeFile(t, "empty.csv", ""))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadRows(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

var outputRows = []models.OutputRow{
	{
		QuestionText:       "Wie oft trinken Sie Alkohol?",
		QuestionCategories: "alcohol",
		AnswerText:         "1-2 Gläser",
		AnswerCategories:   "frequency;quantity",
		AnswerValue:        "sometimes;low",
	},
	{
		QuestionText:       `Say "hi", please`,
		QuestionCategories: "instruction",
		AnswerText:         "ok",
		AnswerCategories:   "N/A",
		AnswerValue:        "none",
	},
}

func TestWriteRowsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteRows(path, outputRows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"question_text,question_categories,answer_text,answer_categories,answer_value\n"+
			"Wie oft trinken Sie Alkohol?,alcohol,1-2 Gläser,frequency;quantity,sometimes;low\n"+
			`"Say ""hi"", please",instruction,ok,N/A,none`+"\n",
		string(data))
}

func TestWriteRowsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	require.NoError(t, WriteRows(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "question_text\tquestion_categories\tanswer_text\tanswer_categories\tanswer_value\n", string(data))
}

func TestWriteRowsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteRows(path, outputRows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, models.OutputColumns, got[0])
	assert.Equal(t, outputRows[0].Record(), got[1])
	assert.Equal(t, outputRows[1].Record(), got[2])
}

func TestWriteRowsUnsupported(t *testing.T) {
	err := WriteRows(filepath.Join(t.TempDir(), "out.parquet"), outputRows)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
