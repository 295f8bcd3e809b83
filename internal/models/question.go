package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	ShortAnswer    QuestionType = "short_answer"
	FillBlank      QuestionType = "fill_blank"
	TextCompletion QuestionType = "text_completion"
	LongText       QuestionType = "long_text"
	MediaQuestion  QuestionType = "media_question"
)

// QuestionTypes lists every supported type. Consumers that switch on
// QuestionType must handle all of them and fail on anything else.
var QuestionTypes = []QuestionType{
	SingleChoice,
	MultipleChoice,
	ShortAnswer,
	FillBlank,
	TextCompletion,
	LongText,
	MediaQuestion,
}

// DefaultGapSeparator splits gap option lists unless a question
// configures its own separator.
const DefaultGapSeparator = ","

// ChoiceOptionCount is the fixed option count for choice-like questions.
const ChoiceOptionCount = 4

type QuestionOption struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Letter string `json:"letter"`
}

// Question is the closed envelope shared by all seven question kinds.
// The correct-answer representation diverges per type, so the wire field
// `correct_answer` is decoded into the typed fields below based on Type.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	PromptText  string       `json:"prompt_text"`
	ContentText string       `json:"content_text,omitempty"`
	Points      int          `json:"points"`
	OrderIndex  int          `json:"order_index"`
	Explanation string       `json:"explanation,omitempty"`

	// Gap separator for fill_blank / text_completion passages.
	Separator string `json:"separator,omitempty"`

	// single_choice / multiple_choice / media_question
	Options []QuestionOption `json:"options,omitempty"`

	// single_choice / media_question
	CorrectIndex *int `json:"-"`

	// multiple_choice
	CorrectIndices []int `json:"-"`

	// short_answer; for long_text this is the grading-criteria
	// placeholder and may legitimately be empty.
	CorrectText string `json:"-"`

	// fill_blank / text_completion: cached correct strings, one per gap,
	// left to right. Grading always recomputes from ContentText; this
	// cache exists for editors and exports.
	GapAnswers []string `json:"-"`

	// text_completion display flag for numbered blanks.
	NumberedGaps bool `json:"numbered_gaps,omitempty"`

	// media_question
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`

	// long_text advisory hints, never scored.
	Keywords  []string `json:"keywords,omitempty"`
	MinLength int      `json:"min_length,omitempty"`
}

// IsGapped reports whether grading runs per gap position instead of per
// question.
func (q *Question) IsGapped() bool {
	return q.Type == FillBlank || q.Type == TextCompletion
}

// IsChoice reports whether the question carries a fixed option list.
func (q *Question) IsChoice() bool {
	return q.Type == SingleChoice || q.Type == MultipleChoice || q.Type == MediaQuestion
}

func (q *Question) GapSeparator() string {
	if q.Separator == "" {
		return DefaultGapSeparator
	}
	return q.Separator
}

// HasStarted reports whether the author has begun filling the question
// in. Fully empty drafts are never validated, so an editor shows no
// premature errors.
func (q *Question) HasStarted() bool {
	if strings.TrimSpace(q.PromptText) != "" {
		return true
	}
	for _, opt := range q.Options {
		if strings.TrimSpace(opt.Text) != "" {
			return true
		}
	}
	if q.CorrectIndex != nil || len(q.CorrectIndices) > 0 {
		return true
	}
	if strings.TrimSpace(q.CorrectText) != "" || len(q.GapAnswers) > 0 {
		return true
	}
	return false
}

// questionJSON is the wire shape: identical to Question except that the
// polymorphic correct_answer travels as raw JSON.
type questionJSON struct {
	ID           string           `json:"id"`
	Type         QuestionType     `json:"type"`
	PromptText   string           `json:"prompt_text"`
	ContentText  string           `json:"content_text,omitempty"`
	Points       int              `json:"points"`
	OrderIndex   int              `json:"order_index"`
	Explanation  string           `json:"explanation,omitempty"`
	Separator    string           `json:"separator,omitempty"`
	Options      []QuestionOption `json:"options,omitempty"`
	NumberedGaps bool             `json:"numbered_gaps,omitempty"`
	MediaURL     string           `json:"media_url,omitempty"`
	MediaType    string           `json:"media_type,omitempty"`
	Keywords     []string         `json:"keywords,omitempty"`
	MinLength    int              `json:"min_length,omitempty"`

	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*q = Question{
		ID:           raw.ID,
		Type:         raw.Type,
		PromptText:   raw.PromptText,
		ContentText:  raw.ContentText,
		Points:       raw.Points,
		OrderIndex:   raw.OrderIndex,
		Explanation:  raw.Explanation,
		Separator:    raw.Separator,
		Options:      raw.Options,
		NumberedGaps: raw.NumberedGaps,
		MediaURL:     raw.MediaURL,
		MediaType:    raw.MediaType,
		Keywords:     raw.Keywords,
		MinLength:    raw.MinLength,
	}

	if len(raw.CorrectAnswer) == 0 || string(raw.CorrectAnswer) == "null" {
		return nil
	}

	switch raw.Type {
	case SingleChoice, MediaQuestion:
		var idx int
		if err := json.Unmarshal(raw.CorrectAnswer, &idx); err != nil {
			return fmt.Errorf("question %s: correct_answer must be an option index: %w", raw.ID, err)
		}
		q.CorrectIndex = &idx
	case MultipleChoice:
		var indices []int
		if err := json.Unmarshal(raw.CorrectAnswer, &indices); err != nil {
			return fmt.Errorf("question %s: correct_answer must be an index list: %w", raw.ID, err)
		}
		q.CorrectIndices = indices
	case ShortAnswer, LongText:
		var text string
		if err := json.Unmarshal(raw.CorrectAnswer, &text); err != nil {
			return fmt.Errorf("question %s: correct_answer must be a string: %w", raw.ID, err)
		}
		q.CorrectText = text
	case FillBlank, TextCompletion:
		var answers []string
		if err := json.Unmarshal(raw.CorrectAnswer, &answers); err != nil {
			return fmt.Errorf("question %s: correct_answer must be a string list: %w", raw.ID, err)
		}
		q.GapAnswers = answers
	default:
		return fmt.Errorf("question %s: unsupported question type %q", raw.ID, raw.Type)
	}

	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	raw := questionJSON{
		ID:           q.ID,
		Type:         q.Type,
		PromptText:   q.PromptText,
		ContentText:  q.ContentText,
		Points:       q.Points,
		OrderIndex:   q.OrderIndex,
		Explanation:  q.Explanation,
		Separator:    q.Separator,
		Options:      q.Options,
		NumberedGaps: q.NumberedGaps,
		MediaURL:     q.MediaURL,
		MediaType:    q.MediaType,
		Keywords:     q.Keywords,
		MinLength:    q.MinLength,
	}

	var answer any
	switch q.Type {
	case SingleChoice, MediaQuestion:
		if q.CorrectIndex != nil {
			answer = *q.CorrectIndex
		}
	case MultipleChoice:
		if len(q.CorrectIndices) > 0 {
			answer = q.CorrectIndices
		}
	case ShortAnswer, LongText:
		if q.CorrectText != "" {
			answer = q.CorrectText
		}
	case FillBlank, TextCompletion:
		if len(q.GapAnswers) > 0 {
			answer = q.GapAnswers
		}
	default:
		return nil, fmt.Errorf("question %s: unsupported question type %q", q.ID, q.Type)
	}

	if answer != nil {
		encoded, err := json.Marshal(answer)
		if err != nil {
			return nil, err
		}
		raw.CorrectAnswer = encoded
	}

	return json.Marshal(raw)
}
