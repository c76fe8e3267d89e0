package models

// InputRow is one survey question as read from the input table
type InputRow struct {
	Line         int    // 1-based data row number in the source table
	QuestionText string
	Answers      string // serialized JSON: {"answers": [{"operand": "..."}]}
}

// Chunk is a contiguous group of input rows sent to the model in one prompt
type Chunk struct {
	Index int
	Rows  []InputRow
}

// OutputRow is one flattened (question, answer) pair
type OutputRow struct {
	QuestionText       string `json:"question_text"`
	QuestionCategories string `json:"question_categories"`
	AnswerText         string `json:"answer_text"`
	AnswerCategories   string `json:"answer_categories"`
	AnswerValue        string `json:"answer_value"`
}

// Record returns the row in OutputColumns order.
func (r OutputRow) Record() []string {
	return []string{r.QuestionText, r.QuestionCategories, r.AnswerText, r.AnswerCategories, r.AnswerValue}
}

// ChunkRows splits rows into chunks of at most size rows, preserving order.
func ChunkRows(rows []InputRow, size int) []Chunk {
	if size <= 0 || len(rows) == 0 {
		return nil
	}
	chunks := make([]Chunk, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Rows:  rows[start:end],
		})
	}
	return chunks
}
