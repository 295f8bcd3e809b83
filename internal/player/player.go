// Package player drives a quiz run through its states: title screen,
// one-by-one question/result loop or the all-at-once feed, and
// completion with retry and review. The player owns the answer state;
// the surrounding UI only calls transitions and renders whatever state
// the player reports.
package player

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/n0psw/lms-quiz-engine/internal/attempts"
	"github.com/n0psw/lms-quiz-engine/internal/models"
	"github.com/n0psw/lms-quiz-engine/internal/scoring"
)

type State string

const (
	StateTitle     State = "title"
	StateQuestion  State = "question"
	StateResult    State = "result"
	StateFeed      State = "feed"
	StateCompleted State = "completed"
)

var (
	ErrInvalidTransition = errors.New("transition not allowed in current state")
	ErrReadOnly          = errors.New("quiz is in read-only review mode")
	ErrUnknownQuestion   = errors.New("question not part of this quiz")
	ErrWrongDisplayMode  = errors.New("transition not allowed in this display mode")
)

// AttemptStore is the slice of the attempt service the player needs.
type AttemptStore interface {
	SaveAttempt(ctx context.Context, quiz *models.Quiz, req attempts.SaveRequest, st *models.AnswerState) (*models.QuizAttempt, error)
	LoadLatestAttempt(ctx context.Context, stepID string, quiz *models.Quiz) (*models.QuizAttempt, *models.AnswerState, error)
}

// Session identifies whose run on which step is being played.
type Session struct {
	StepID   string
	CourseID string
	LessonID string
	UserID   string
	Role     models.UserRole
}

// Player is the quiz progression state machine. It is single-goroutine
// by design: answer state has exactly one writer and no locks.
type Player struct {
	quiz    *models.Quiz
	session Session
	store   AttemptStore
	logger  *slog.Logger

	state   State
	cursor  int
	answers *models.AnswerState

	startedAt time.Time
	readOnly  bool
	persisted bool
	abandoned bool

	stats  scoring.Statistics
	score  float64
	passed bool
	scored bool

	now func() time.Time
}

func New(quiz *models.Quiz, session Session, store AttemptStore, logger *slog.Logger) *Player {
	return &Player{
		quiz:    quiz,
		session: session,
		store:   store,
		logger:  logger,
		state:   StateTitle,
		answers: models.NewAnswerState(),
		now:     time.Now,
	}
}

// Load restores the most recent attempt before anything else happens.
// It must complete (or find nothing) before the player renders, so a
// learner never sees empty answers flash and then fill in. A learner
// who already finished lands directly in completed.
func (p *Player) Load(ctx context.Context) error {
	if p.state != StateTitle {
		return ErrInvalidTransition
	}

	attempt, restored, err := p.store.LoadLatestAttempt(ctx, p.session.StepID, p.quiz)
	if err != nil {
		// Treated as no prior attempt; the run is not blocked.
		p.logger.Error("Failed to fetch prior attempt, starting fresh",
			"step_id", p.session.StepID,
			"error", err)
		return nil
	}

	// The step may have been deactivated while the fetch was in
	// flight; a stale result must not touch state.
	if p.abandoned {
		p.logger.Debug("Ignoring attempt fetch for abandoned step", "step_id", p.session.StepID)
		return nil
	}

	if attempt == nil {
		return nil
	}

	p.answers = restored
	p.state = StateCompleted
	p.score = attempt.ScorePercentage
	p.passed = attempt.ScorePercentage >= scoring.PassThreshold
	p.scored = true
	p.persisted = true

	p.logger.Info("Restored prior quiz attempt",
		"step_id", p.session.StepID,
		"score", p.score,
		"passed", p.passed)

	return nil
}

// Abandon marks the player's step as no longer active. An in-flight
// attempt fetch that resolves afterwards is discarded.
func (p *Player) Abandon() {
	p.abandoned = true
}

// Start leaves the title screen: one_by_one mode enters the first
// question, all_at_once enters the feed. The session clock starts here.
func (p *Player) Start() error {
	if p.state != StateTitle {
		return ErrInvalidTransition
	}

	p.startedAt = p.now()
	p.cursor = 0
	if p.quiz.DisplayMode == models.DisplayAllAtOnce {
		p.state = StateFeed
	} else {
		p.state = StateQuestion
	}

	p.logger.Info("Quiz started",
		"step_id", p.session.StepID,
		"display_mode", p.quiz.DisplayMode,
		"questions", len(p.quiz.Questions))

	return nil
}

// SubmitSelection records a learner's answer to a non-gapped question.
// No state transition happens; valid while answering in either mode.
func (p *Player) SubmitSelection(questionID string, sel models.Selection) error {
	if err := p.checkAnswerable(questionID); err != nil {
		return err
	}
	p.answers.SetSelection(questionID, sel)
	return nil
}

// SubmitGapAnswer records one gap value by position within a gapped
// question.
func (p *Player) SubmitGapAnswer(questionID string, gapIndex int, value string) error {
	if err := p.checkAnswerable(questionID); err != nil {
		return err
	}
	p.answers.SetGapAnswer(questionID, gapIndex, value)
	return nil
}

func (p *Player) checkAnswerable(questionID string) error {
	if p.state != StateQuestion && p.state != StateFeed {
		return ErrInvalidTransition
	}
	if p.readOnly {
		return ErrReadOnly
	}
	if p.quiz.QuestionByID(questionID) == nil {
		return ErrUnknownQuestion
	}
	return nil
}

// CheckAnswer reveals the per-question result in one_by_one mode.
// Nothing is scored or persisted yet.
func (p *Player) CheckAnswer() error {
	if p.quiz.DisplayMode != models.DisplayOneByOne {
		return ErrWrongDisplayMode
	}
	if p.state != StateQuestion {
		return ErrInvalidTransition
	}
	p.state = StateResult
	return nil
}

// NextQuestion advances past a revealed result. On the last question it
// computes the final score, persists the attempt and completes the run.
func (p *Player) NextQuestion(ctx context.Context) error {
	if p.state != StateResult {
		return ErrInvalidTransition
	}

	if p.cursor+1 < len(p.quiz.Questions) {
		p.cursor++
		p.state = StateQuestion
		return nil
	}

	return p.complete(ctx)
}

// FinishQuiz ends an all_at_once run. Completion is reached regardless
// of pass or fail; only next-step navigation is gated on passing.
func (p *Player) FinishQuiz(ctx context.Context) error {
	if p.quiz.DisplayMode != models.DisplayAllAtOnce {
		return ErrWrongDisplayMode
	}
	if p.state != StateFeed {
		return ErrInvalidTransition
	}
	if p.readOnly {
		return ErrReadOnly
	}

	return p.complete(ctx)
}

// ResetQuiz starts a retry from the completed state. Previously entered
// answers are kept so the learner can inspect and amend them; the next
// completion persists a fresh attempt.
func (p *Player) ResetQuiz() error {
	if p.state != StateCompleted {
		return ErrInvalidTransition
	}

	if p.quiz.DisplayMode == models.DisplayAllAtOnce {
		p.state = StateFeed
	} else {
		p.state = StateTitle
	}
	p.cursor = 0
	p.readOnly = false
	p.persisted = false
	p.scored = false

	p.logger.Info("Quiz reset for retry", "step_id", p.session.StepID)
	return nil
}

// ReviewQuiz re-enters the feed read-only so a finished learner can
// look over their answers without changing them.
func (p *Player) ReviewQuiz() error {
	if p.quiz.DisplayMode != models.DisplayAllAtOnce {
		return ErrWrongDisplayMode
	}
	if p.state != StateCompleted {
		return ErrInvalidTransition
	}

	p.state = StateFeed
	p.readOnly = true
	return nil
}

// CanProceed reports whether the session's user may advance to the next
// lesson step.
func (p *Player) CanProceed() bool {
	return scoring.CanProceed(p.session.Role, p.score)
}

func (p *Player) complete(ctx context.Context) error {
	stats, err := scoring.Aggregate(p.quiz, p.answers)
	if err != nil {
		return err
	}

	p.stats = stats
	p.score = stats.Score()
	p.passed = stats.Passed()
	p.scored = true
	p.state = StateCompleted

	// One attempt per terminal completion. The locally computed score
	// is authoritative for this session: a failed save is logged and
	// the learner continues.
	if !p.persisted {
		p.persisted = true
		req := attempts.SaveRequest{
			StepID:         p.session.StepID,
			CourseID:       p.session.CourseID,
			LessonID:       p.session.LessonID,
			UserID:         p.session.UserID,
			ElapsedSeconds: p.elapsedSeconds(),
		}
		if _, err := p.store.SaveAttempt(ctx, p.quiz, req, p.answers); err != nil {
			p.logger.Error("Failed to save quiz attempt",
				"step_id", p.session.StepID,
				"error", err)
		}
	}

	p.logger.Info("Quiz completed",
		"step_id", p.session.StepID,
		"score", p.score,
		"passed", p.passed)

	return nil
}

func (p *Player) elapsedSeconds() int {
	if p.startedAt.IsZero() {
		return 0
	}
	return int(p.now().Sub(p.startedAt) / time.Second)
}

// ===== ACCESSORS =====

func (p *Player) State() State { return p.state }

// CurrentQuestion returns the question under the cursor in one_by_one
// mode, or nil outside question/result states.
func (p *Player) CurrentQuestion() *models.Question {
	if p.state != StateQuestion && p.state != StateResult {
		return nil
	}
	if p.cursor >= len(p.quiz.Questions) {
		return nil
	}
	return &p.quiz.Questions[p.cursor]
}

// Answers exposes the player-owned answer state for rendering.
func (p *Player) Answers() *models.AnswerState { return p.answers }

func (p *Player) Score() float64                  { return p.score }
func (p *Player) Passed() bool                    { return p.passed }
func (p *Player) Scored() bool                    { return p.scored }
func (p *Player) Statistics() scoring.Statistics  { return p.stats }
func (p *Player) IsReadOnly() bool                { return p.readOnly }
