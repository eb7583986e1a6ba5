package services

import (
	"errors"
	"math/rand"

	"quiz-stake-system/models"
)

// SessionState is the quiz session lifecycle state.
type SessionState string

const (
	StateAwaitingAnswer SessionState = "awaiting_answer"
	StateCompleted      SessionState = "completed"
	StateGameOver       SessionState = "game_over"
)

// ErrSessionOver is returned when an answer is submitted to a terminal session.
var ErrSessionOver = errors.New("session has ended")

// PlayerState is the snapshot of mutable player fields the engine drives.
type PlayerState struct {
	Life              int
	Score             float64
	Answered          int
	AssignedQuestions int
}

// Decision is the pure outcome of judging one submission: the next player
// state, the next session state, and the mutation the store must apply before
// any of it becomes real. Nothing is mutated until Apply.
type Decision struct {
	Correct    bool
	Next       PlayerState
	NextState  SessionState
	Advance    bool   // move to the next question in the sequence
	AnsweredID string // question id to add to the answered set, if correct
}

// QuizSession holds one playthrough: a fixed shuffled sequence over the
// eligible questions and the player counters. It is not safe for concurrent
// use; each player drives their own session serially.
type QuizSession struct {
	player   PlayerState
	sequence []models.Question
	index    int
	state    SessionState
}

// NewQuizSession builds a session from the full question bank minus the
// player's already-answered set. The ordering is a uniform Fisher–Yates
// shuffle computed once; it is never rederived mid-session. An empty eligible
// set yields a session already in StateCompleted.
func NewQuizSession(player PlayerState, bank []models.Question, answered map[string]bool, rng *rand.Rand) *QuizSession {
	eligible := make([]models.Question, 0, len(bank))
	for _, q := range bank {
		if !answered[q.ID] {
			eligible = append(eligible, q)
		}
	}

	for i := len(eligible) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		eligible[i], eligible[j] = eligible[j], eligible[i]
	}

	s := &QuizSession{
		player:   player,
		sequence: eligible,
		state:    StateAwaitingAnswer,
	}
	if len(eligible) == 0 {
		s.state = StateCompleted
	}
	return s
}

// State returns the current session state.
func (s *QuizSession) State() SessionState { return s.state }

// Player returns the current in-session player counters.
func (s *QuizSession) Player() PlayerState { return s.player }

// Current returns the question awaiting an answer, if the session is live.
func (s *QuizSession) Current() (models.Question, bool) {
	if s.state != StateAwaitingAnswer || s.index >= len(s.sequence) {
		return models.Question{}, false
	}
	return s.sequence[s.index], true
}

// Remaining reports how many questions are left in the sequence, including
// the current one.
func (s *QuizSession) Remaining() int {
	if s.state != StateAwaitingAnswer {
		return 0
	}
	return len(s.sequence) - s.index
}

// Decide judges a submission against the current question without mutating
// anything. The caller persists the decision's mutation first, then calls
// Apply — a failed write leaves both the store and the session untouched.
func (s *QuizSession) Decide(submitted string) (Decision, error) {
	current, ok := s.Current()
	if !ok {
		return Decision{}, ErrSessionOver
	}

	next := s.player
	if NormalizeAnswer(submitted) == NormalizeAnswer(current.Answer) {
		next.Score += 1
		next.Answered += 1
		d := Decision{
			Correct:    true,
			Next:       next,
			AnsweredID: current.ID,
		}
		if next.Answered >= next.AssignedQuestions || s.index+1 >= len(s.sequence) {
			d.NextState = StateCompleted
		} else {
			d.NextState = StateAwaitingAnswer
			d.Advance = true
		}
		return d, nil
	}

	next.Score -= 0.25
	next.Life -= 1
	d := Decision{
		Correct: false,
		Next:    next,
	}
	if next.Life <= 0 {
		d.NextState = StateGameOver
	} else {
		// Same question stays up for resubmission.
		d.NextState = StateAwaitingAnswer
	}
	return d, nil
}

// Apply commits a decision to the in-memory session. Call only after the
// store mutation for the same decision succeeded.
func (s *QuizSession) Apply(d Decision) {
	s.player = d.Next
	s.state = d.NextState
	if d.Advance {
		s.index++
	}
}
