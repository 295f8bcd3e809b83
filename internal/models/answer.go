package models

import (
	"encoding/json"
	"fmt"
)

// Selection is a learner's answer to a non-gapped question. Exactly one
// of the fields is set, matching the question type: Index for
// single_choice/media_question, Indices for multiple_choice, Text for
// short_answer/long_text. On the wire it is the bare scalar, not an
// object.
type Selection struct {
	Index   *int
	Indices []int
	Text    string
}

func IndexSelection(i int) Selection {
	return Selection{Index: &i}
}

func IndicesSelection(indices []int) Selection {
	return Selection{Indices: indices}
}

func TextSelection(text string) Selection {
	return Selection{Text: text}
}

func (s Selection) MarshalJSON() ([]byte, error) {
	switch {
	case s.Index != nil:
		return json.Marshal(*s.Index)
	case s.Indices != nil:
		return json.Marshal(s.Indices)
	default:
		return json.Marshal(s.Text)
	}
}

// DecodeSelection decodes a stored answer value into a Selection using
// the question's type. Stored attempts carry no type information, so
// restoring always consults the current quiz's question-type lookup.
func DecodeSelection(qt QuestionType, raw json.RawMessage) (Selection, error) {
	switch qt {
	case SingleChoice, MediaQuestion:
		var idx int
		if err := json.Unmarshal(raw, &idx); err != nil {
			return Selection{}, fmt.Errorf("decode index selection: %w", err)
		}
		return IndexSelection(idx), nil
	case MultipleChoice:
		var indices []int
		if err := json.Unmarshal(raw, &indices); err != nil {
			return Selection{}, fmt.Errorf("decode indices selection: %w", err)
		}
		return IndicesSelection(indices), nil
	case ShortAnswer, LongText:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return Selection{}, fmt.Errorf("decode text selection: %w", err)
		}
		return TextSelection(text), nil
	case FillBlank, TextCompletion:
		return Selection{}, fmt.Errorf("gapped question type %q does not use scalar selections", qt)
	default:
		return Selection{}, fmt.Errorf("unsupported question type %q", qt)
	}
}

// AnswerState holds everything the learner has entered: a selection map
// for non-gapped questions and a gap map for fill_blank/text_completion
// indexed by gap position, both keyed by question id. It is owned and
// mutated exclusively by the quiz player on a single goroutine.
type AnswerState struct {
	Selections map[string]Selection
	Gaps       map[string][]string
}

func NewAnswerState() *AnswerState {
	return &AnswerState{
		Selections: make(map[string]Selection),
		Gaps:       make(map[string][]string),
	}
}

func (st *AnswerState) SetSelection(questionID string, sel Selection) {
	st.Selections[questionID] = sel
}

func (st *AnswerState) SetGapAnswer(questionID string, gapIndex int, value string) {
	answers := st.Gaps[questionID]
	for len(answers) <= gapIndex {
		answers = append(answers, "")
	}
	answers[gapIndex] = value
	st.Gaps[questionID] = answers
}

func (st *AnswerState) SetGapAnswers(questionID string, values []string) {
	st.Gaps[questionID] = values
}

// Answered reports whether the learner has entered anything for the
// question.
func (st *AnswerState) Answered(questionID string) bool {
	if _, ok := st.Selections[questionID]; ok {
		return true
	}
	_, ok := st.Gaps[questionID]
	return ok
}
