package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"survey-categorizer/internal/models"

	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingColumn     = errors.New("missing required column")
)

const defaultSheet = "Sheet1"

// ReadRows loads the question_text and answers columns of the first sheet or delimited table.
// The format is picked from the file extension.
func ReadRows(filePath string) ([]models.InputRow, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	var (
		records [][]string
		err     error
	)
	switch ext {
	case ".csv":
		records, err = readDelimited(filePath, ',')
	case ".tsv":
		records, err = readDelimited(filePath, '\t')
	case ".xlsx":
		records, err = readXLSX(filePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return toInputRows(records)
}

// WriteRows encodes the header and rows fully before touching filePath.
func WriteRows(filePath string, rows []models.OutputRow) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".csv":
		return writeDelimited(filePath, ',', rows)
	case ".tsv":
		return writeDelimited(filePath, '\t', rows)
	case ".xlsx":
		return writeXLSX(filePath, rows)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func readDelimited(filePath string, comma rune) ([][]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return records, nil
}

func readXLSX(filePath string) ([][]string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	if len(f.Sheets) == 0 {
		return nil, nil
	}

	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		record := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			record = append(record, cell.String())
		}
		records = append(records, record)
	}
	return records, nil
}

func toInputRows(records [][]string) ([]models.InputRow, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, models.ColumnQuestionText)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := header[name]; !seen {
			header[name] = i
		}
	}
	qIdx, ok := header[models.ColumnQuestionText]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, models.ColumnQuestionText)
	}
	aIdx, ok := header[models.ColumnAnswers]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, models.ColumnAnswers)
	}

	rows := make([]models.InputRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		rows = append(rows, models.InputRow{
			Line:         i + 1,
			QuestionText: field(record, qIdx),
			Answers:      field(record, aIdx),
		})
	}
	return rows, nil
}

func field(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func writeDelimited(filePath string, comma rune, rows []models.OutputRow) error {
	var buf bytes.Buffer
	if err := encodeDelimited(&buf, comma, rows); err != nil {
		return err
	}
	return os.WriteFile(filePath, buf.Bytes(), 0o644)
}

func encodeDelimited(w io.Writer, comma rune, rows []models.OutputRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(models.OutputColumns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(filePath string, rows []models.OutputRow) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(models.OutputColumns))
	for i, c := range models.OutputColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(defaultSheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		record := row.Record()
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		if err := f.SetSheetRow(defaultSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SaveAs(filePath)
}
