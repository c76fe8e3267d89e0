// Package validator checks a decoded model response against the question/answer
// categorization shape. Validation never stops early: every question and answer is
// inspected and all violations are returned.
package validator

import (
	"fmt"

	"survey-categorizer/internal/jsonval"
	"survey-categorizer/internal/models"
)

type Kind string

const (
	KindNotList                 Kind = "not_list"
	KindQuestionNotObject       Kind = "question_not_object"
	KindQuestionCategoryList    Kind = "question_category_list"
	KindQuestionCategoryMissing Kind = "question_category_missing"
	KindQuestionCategoryType    Kind = "question_category_type"
	KindAnswersMissing          Kind = "answers_missing"
	KindAnswersType             Kind = "answers_type"
	KindAnswerNotObject         Kind = "answer_not_object"
	KindAnswerCategoriesMissing Kind = "answer_categories_missing"
	KindAnswerCategoriesType    Kind = "answer_categories_type"
	KindAnswerValueMissing      Kind = "answer_value_missing"
	KindAnswerValueType         Kind = "answer_value_type"
)

// NoIndex marks Question or Answer as not applicable.
const NoIndex = -1

// Violation is one shape error found in a response.
type Violation struct {
	Kind     Kind
	Question int
	Answer   int
	Detail   string
}

func (v Violation) Error() string {
	switch {
	case v.Question == NoIndex:
		return v.Detail
	case v.Answer == NoIndex:
		return fmt.Sprintf("Question %d: %s", v.Question, v.Detail)
	default:
		return fmt.Sprintf("Question %d, Answer %d: %s", v.Question, v.Answer, v.Detail)
	}
}

// Validate returns every violation in data, in document order. It never mutates data.
func Validate(data any) []Violation {
	questions, ok := jsonval.AsArray(data)
	if !ok {
		return []Violation{{
			Kind:     KindNotList,
			Question: NoIndex,
			Answer:   NoIndex,
			Detail:   fmt.Sprintf("Response must be a list, got %s", jsonval.KindOf(data)),
		}}
	}

	var out []Violation
	for qi, q := range questions {
		question, ok := jsonval.AsObject(q)
		if !ok {
			out = append(out, questionViolation(KindQuestionNotObject, qi, "must be a dictionary"))
			continue
		}
		out = append(out, checkQuestionCategories(question, qi)...)
		out = append(out, checkAnswers(question, qi)...)
	}
	return out
}

func questionViolation(kind Kind, qi int, detail string) Violation {
	return Violation{Kind: kind, Question: qi, Answer: NoIndex, Detail: detail}
}

func answerViolation(kind Kind, qi, ai int, detail string) Violation {
	return Violation{Kind: kind, Question: qi, Answer: ai, Detail: detail}
}

func checkQuestionCategories(question map[string]any, qi int) []Violation {
	cats := question[models.ColumnQuestionCategories]
	switch jsonval.KindOf(cats) {
	case jsonval.Array:
		return []Violation{questionViolation(KindQuestionCategoryList, qi,
			"question_categories must be a single string, not a list")}
	case jsonval.String:
	default:
		if jsonval.Truthy(cats) {
			return []Violation{questionViolation(KindQuestionCategoryType, qi,
				fmt.Sprintf("question_categories must be a string, got %s", jsonval.KindOf(cats)))}
		}
	}
	if !jsonval.Truthy(cats) {
		return []Violation{questionViolation(KindQuestionCategoryMissing, qi, "missing question_categories")}
	}
	return nil
}

func checkAnswers(question map[string]any, qi int) []Violation {
	raw := question[models.ColumnAnswers]
	if !jsonval.Truthy(raw) {
		return []Violation{questionViolation(KindAnswersMissing, qi, "no answers provided")}
	}
	answers, ok := jsonval.AsArray(raw)
	if !ok {
		return []Violation{questionViolation(KindAnswersType, qi, "answers must be a list")}
	}

	var out []Violation
	for ai, a := range answers {
		answer, ok := jsonval.AsObject(a)
		if !ok {
			out = append(out, answerViolation(KindAnswerNotObject, qi, ai, "must be a dictionary"))
			continue
		}
		if v, bad := checkList(answer, models.ColumnAnswerCategories, KindAnswerCategoriesMissing, KindAnswerCategoriesType, qi, ai); bad {
			out = append(out, v)
		}
		if v, bad := checkList(answer, models.ColumnAnswerValue, KindAnswerValueMissing, KindAnswerValueType, qi, ai); bad {
			out = append(out, v)
		}
	}
	return out
}

// checkList requires answer[key] to be a non-empty list.
func checkList(answer map[string]any, key string, missing, wrongType Kind, qi, ai int) (Violation, bool) {
	v := answer[key]
	if !jsonval.Truthy(v) {
		return answerViolation(missing, qi, ai, "missing "+key), true
	}
	if _, ok := jsonval.AsArray(v); !ok {
		return answerViolation(wrongType, qi, ai, key+" must be a list"), true
	}
	return Violation{}, false
}

// Messages renders violations as human-readable strings.
func Messages(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Error()
	}
	return out
}
