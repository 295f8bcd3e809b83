package attempts

import (
	"encoding/json"
	"fmt"

	"github.com/n0psw/lms-quiz-engine/internal/models"
)

// Stored answers are an ordered list of [question_id, value] pairs: a
// plain list survives JSON round-trips where a map would not, and the
// order follows the quiz's question order. The value is the bare
// selection scalar for regular questions and a string list for gapped
// ones; which is which is recovered from the current quiz's
// question-type lookup, never stored in the attempt itself.

// EncodeAnswers merges both answer maps into the pair list, following
// quiz question order. Unanswered questions are omitted.
func EncodeAnswers(quiz *models.Quiz, st *models.AnswerState) ([]byte, error) {
	pairs := make([][2]json.RawMessage, 0, len(quiz.Questions))

	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		var value any
		if q.IsGapped() {
			answers, ok := st.Gaps[q.ID]
			if !ok {
				continue
			}
			value = answers
		} else {
			sel, ok := st.Selections[q.ID]
			if !ok {
				continue
			}
			value = sel
		}

		key, err := json.Marshal(q.ID)
		if err != nil {
			return nil, fmt.Errorf("encode answer key %q: %w", q.ID, err)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode answer value for %q: %w", q.ID, err)
		}
		pairs = append(pairs, [2]json.RawMessage{key, encoded})
	}

	return json.Marshal(pairs)
}

// DecodeAnswers splits a stored pair list back into the two answer
// maps. Pairs referencing questions no longer present in the quiz are
// skipped; structurally broken data is an error so callers can treat
// the whole attempt as absent.
func DecodeAnswers(quiz *models.Quiz, data []byte) (*models.AnswerState, error) {
	var pairs [][]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("decode stored answers: %w", err)
	}

	st := models.NewAnswerState()
	for _, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("decode stored answers: pair has %d elements", len(pair))
		}

		var questionID string
		if err := json.Unmarshal(pair[0], &questionID); err != nil {
			return nil, fmt.Errorf("decode stored answer key: %w", err)
		}

		q := quiz.QuestionByID(questionID)
		if q == nil {
			continue
		}

		if q.IsGapped() {
			var answers []string
			if err := json.Unmarshal(pair[1], &answers); err != nil {
				return nil, fmt.Errorf("decode gap answers for %q: %w", questionID, err)
			}
			st.SetGapAnswers(questionID, answers)
			continue
		}

		sel, err := models.DecodeSelection(q.Type, pair[1])
		if err != nil {
			return nil, fmt.Errorf("decode selection for %q: %w", questionID, err)
		}
		st.SetSelection(questionID, sel)
	}

	return st, nil
}
