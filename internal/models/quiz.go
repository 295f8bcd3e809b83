package models

type DisplayMode string

const (
	DisplayOneByOne  DisplayMode = "one_by_one"
	DisplayAllAtOnce DisplayMode = "all_at_once"
)

type QuizMediaType string

const (
	QuizMediaAudio QuizMediaType = "audio"
	QuizMediaPDF   QuizMediaType = "pdf"
	QuizMediaText  QuizMediaType = "text"
)

// Quiz is the content payload stored on a lesson step: an ordered
// question list plus presentation metadata. A quiz is loaded once per
// step activation.
type Quiz struct {
	Title            string        `json:"title"`
	Questions        []Question    `json:"questions"`
	TimeLimitMinutes *int          `json:"time_limit_minutes,omitempty"`
	DisplayMode      DisplayMode   `json:"display_mode"`
	QuizMediaURL     string        `json:"quiz_media_url,omitempty"`
	QuizMediaType    QuizMediaType `json:"quiz_media_type,omitempty"`
}

// QuestionByID returns the question with the given id, or nil.
func (qz *Quiz) QuestionByID(id string) *Question {
	for i := range qz.Questions {
		if qz.Questions[i].ID == id {
			return &qz.Questions[i]
		}
	}
	return nil
}

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Privileged reports whether the role bypasses the pass gate on
// next-step navigation.
func (r UserRole) Privileged() bool {
	return r == RoleTeacher || r == RoleAdmin
}
