package models

const (
	ColumnQuestionText       = "question_text"
	ColumnAnswers            = "answers"
	ColumnQuestionCategories = "question_categories"
	ColumnAnswerText         = "answer_text"
	ColumnAnswerCategories   = "answer_categories"
	ColumnAnswerValue        = "answer_value"

	ThinkTag = `(?s)<think>.*?</think>`
)

// OutputColumns is the header of the exported table.
var OutputColumns = []string{
	ColumnQuestionText,
	ColumnQuestionCategories,
	ColumnAnswerText,
	ColumnAnswerCategories,
	ColumnAnswerValue,
}

var (
	CategorizePromptTemplate = `You are a survey categorization assistant with medical knowledge.
CRITICAL RULES:
1. Return ONLY valid JSON, no explanations or markdown
2. ALL categories and values MUST be in English only
3. Each question gets EXACTLY ONE category (not a list)
4. Each answer MUST have at least one category and one value (can be a list)
5. Translate German terms to English (e.g., Haarausfall → hair_loss)
6. For questions, summarize the main semantic meaning of the string into a category
7. Within answers array, 'operand' is the user facing answer.

JSON Format (follow exactly):
[
  {
    "question_text": "exact question text here",
    "question_categories": "single_category_here",
    "answers": [
      {
        "answer_text": "exact answer text",
        "answer_categories": ["frequency", "intensity"],
        "answer_value": ["often", "high"]
      }
    ]
  }
]

CATEGORIZATION RULES:
- Question categories: (example categories) smoking, alcohol, exercise, diet, sleep, stress, medication, medical_history, demographics, symptoms, bmi, instruction, acknowledgement, consent
- Answer categories: (example categories) frequency, quantity, severity, duration, boolean, scale, N/A
- Answer values: (example values) low/medium/high, often/sometimes/rarely/never, true/false, mild/moderate/severe, none, 0-10

GOAL:
- the aim is to be able to categorize this data into meaningful, measurable buckets and to exclude those which are not measurable via different categories such as N/A.

EXAMPLES:
Question: "Rauchen Sie?" → question_categories: "smoking"
Answer: "Ja" → answer_categories: ["boolean"], answer_value: ["true"]

Question: "Wie lauten Deine aktuellen Blutdruckwerte?" → question_categories: "blood_pressure"
Answer: "Normal - Zwischen 90/60 - 150/90" → answer_categories: ["range"], answer_value: ["medium"]

Question: "Wie oft trinken Sie Alkohol?" → question_categories: "alcohol"
Answer: "Täglich" → answer_categories: ["frequency"], answer_value: ["daily"]

Answer: "1-2 Gläser" → answer_categories: ["frequency", "quantity"], answer_value: ["sometimes", "low"]

Questions and answers:

`

	// QuestionEntryTemplate renders one input row: question text, then its operands as a JSON array.
	QuestionEntryTemplate = "Question: %q\nAnswers: %s\n\n"
)
