package services

import (
	"errors"
	"math/rand"
	"testing"

	"quiz-stake-system/models"
)

func testBank(n int) []models.Question {
	bank := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		bank = append(bank, models.Question{
			ID:       string(rune('a' + i)),
			Question: "q",
			Answer:   "answer" + string(rune('a'+i)),
		})
	}
	return bank
}

func newTestSession(player PlayerState, bank []models.Question, answered map[string]bool) *QuizSession {
	return NewQuizSession(player, bank, answered, rand.New(rand.NewSource(1)))
}

func TestNewQuizSessionExcludesAnswered(t *testing.T) {
	bank := testBank(5)
	answered := map[string]bool{"a": true, "c": true}

	s := newTestSession(PlayerState{Life: 5, AssignedQuestions: 20}, bank, answered)

	if got := s.Remaining(); got != 3 {
		t.Fatalf("Remaining() = %d, want 3", got)
	}
	seen := map[string]bool{}
	for {
		q, ok := s.Current()
		if !ok {
			break
		}
		if answered[q.ID] {
			t.Fatalf("already-answered question %s appeared in the sequence", q.ID)
		}
		if seen[q.ID] {
			t.Fatalf("question %s presented twice", q.ID)
		}
		seen[q.ID] = true

		d, err := s.Decide(q.Answer)
		if err != nil {
			t.Fatalf("Decide: %v", err)
		}
		s.Apply(d)
	}
	if len(seen) != 3 {
		t.Fatalf("saw %d distinct questions, want 3", len(seen))
	}
}

func TestNewQuizSessionEmptyEligible(t *testing.T) {
	bank := testBank(2)
	answered := map[string]bool{"a": true, "b": true}

	s := newTestSession(PlayerState{Life: 5, AssignedQuestions: 20}, bank, answered)

	if s.State() != StateCompleted {
		t.Fatalf("State() = %s, want %s", s.State(), StateCompleted)
	}
	if _, err := s.Decide("anything"); !errors.Is(err, ErrSessionOver) {
		t.Fatalf("Decide on completed session = %v, want ErrSessionOver", err)
	}
}

func TestDecideCorrectAnswer(t *testing.T) {
	bank := testBank(5)
	s := newTestSession(PlayerState{Life: 5, Score: 2, Answered: 1, AssignedQuestions: 20}, bank, nil)

	current, _ := s.Current()
	d, err := s.Decide(current.Answer)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if !d.Correct {
		t.Fatal("decision not marked correct")
	}
	if d.Next.Score != 3 {
		t.Fatalf("Next.Score = %v, want 3", d.Next.Score)
	}
	if d.Next.Answered != 2 {
		t.Fatalf("Next.Answered = %d, want 2", d.Next.Answered)
	}
	if d.Next.Life != 5 {
		t.Fatalf("Next.Life = %d, want 5 (unchanged)", d.Next.Life)
	}
	if d.AnsweredID != current.ID {
		t.Fatalf("AnsweredID = %s, want %s", d.AnsweredID, current.ID)
	}
	if !d.Advance || d.NextState != StateAwaitingAnswer {
		t.Fatalf("expected advance within a live session, got advance=%v state=%s", d.Advance, d.NextState)
	}

	s.Apply(d)
	next, ok := s.Current()
	if !ok {
		t.Fatal("no current question after advancing")
	}
	if next.ID == current.ID {
		t.Fatal("session did not advance past the answered question")
	}
}

func TestDecideCorrectAnswerIsCaseInsensitive(t *testing.T) {
	bank := []models.Question{{ID: "a", Question: "q", Answer: "paris"}}
	s := newTestSession(PlayerState{Life: 5, AssignedQuestions: 20}, bank, nil)

	d, err := s.Decide("PaRiS")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !d.Correct {
		t.Fatal("case variant of the right answer judged incorrect")
	}
}

func TestDecideIncorrectAnswerKeepsQuestion(t *testing.T) {
	bank := testBank(3)
	s := newTestSession(PlayerState{Life: 5, Score: 1, AssignedQuestions: 20}, bank, nil)

	current, _ := s.Current()
	d, err := s.Decide("wrong")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if d.Correct {
		t.Fatal("wrong answer judged correct")
	}
	if d.Next.Score != 0.75 {
		t.Fatalf("Next.Score = %v, want 0.75", d.Next.Score)
	}
	if d.Next.Life != 4 {
		t.Fatalf("Next.Life = %d, want 4", d.Next.Life)
	}
	if d.Next.Answered != 0 {
		t.Fatalf("Next.Answered = %d, want 0 (only correct answers count)", d.Next.Answered)
	}
	if d.AnsweredID != "" {
		t.Fatalf("AnsweredID = %q, want empty for an incorrect answer", d.AnsweredID)
	}
	if d.Advance {
		t.Fatal("session advanced past an unanswered question")
	}

	s.Apply(d)
	still, ok := s.Current()
	if !ok || still.ID != current.ID {
		t.Fatal("same question must stay up after an incorrect answer")
	}
}

func TestLifeExhaustionEndsGame(t *testing.T) {
	bank := testBank(3)
	s := newTestSession(PlayerState{Life: 2, AssignedQuestions: 20}, bank, nil)

	d, _ := s.Decide("wrong")
	s.Apply(d)
	if s.State() != StateAwaitingAnswer {
		t.Fatalf("State() = %s after first miss, want %s", s.State(), StateAwaitingAnswer)
	}

	d, _ = s.Decide("wrong")
	if d.NextState != StateGameOver {
		t.Fatalf("NextState = %s on last life, want %s", d.NextState, StateGameOver)
	}
	s.Apply(d)

	if _, err := s.Decide("wrong"); !errors.Is(err, ErrSessionOver) {
		t.Fatalf("Decide after game over = %v, want ErrSessionOver", err)
	}
}

func TestAssignedQuestionsCompletesSession(t *testing.T) {
	bank := testBank(10)
	s := newTestSession(PlayerState{Life: 5, AssignedQuestions: 3}, bank, nil)

	for i := 0; i < 3; i++ {
		current, ok := s.Current()
		if !ok {
			t.Fatalf("session ended after %d answers, want 3", i)
		}
		d, err := s.Decide(current.Answer)
		if err != nil {
			t.Fatalf("Decide: %v", err)
		}
		s.Apply(d)
	}

	if s.State() != StateCompleted {
		t.Fatalf("State() = %s after the assigned count, want %s", s.State(), StateCompleted)
	}
	if got := s.Player().Answered; got != 3 {
		t.Fatalf("Answered = %d, want 3", got)
	}
}

func TestSequenceExhaustionCompletesSession(t *testing.T) {
	bank := testBank(2)
	s := newTestSession(PlayerState{Life: 5, AssignedQuestions: 20}, bank, nil)

	for i := 0; i < 2; i++ {
		current, _ := s.Current()
		d, err := s.Decide(current.Answer)
		if err != nil {
			t.Fatalf("Decide: %v", err)
		}
		s.Apply(d)
	}

	if s.State() != StateCompleted {
		t.Fatalf("State() = %s after exhausting the bank, want %s", s.State(), StateCompleted)
	}
}

func TestApplyOrderingLeavesSessionUntouchedOnSkippedApply(t *testing.T) {
	bank := testBank(3)
	s := newTestSession(PlayerState{Life: 5, AssignedQuestions: 20}, bank, nil)

	before, _ := s.Current()
	if _, err := s.Decide(before.Answer); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	// Decide without Apply models a failed persistence write.
	after, _ := s.Current()
	if after.ID != before.ID {
		t.Fatal("Decide mutated the session before Apply")
	}
	if s.Player().Score != 0 {
		t.Fatalf("Score = %v before Apply, want 0", s.Player().Score)
	}
}
