package services

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
)

func TestConcurrentSessionStarts(t *testing.T) {
	s := &QuizService{
		sessions: make(map[string]*QuizSession),
		rng:      rand.New(rand.NewSource(1)),
	}
	bank := testBank(10)

	// Session starts arrive on concurrent handler goroutines; the shuffle
	// draws from the shared generator and must be serialized by newSession.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.newSession(fmt.Sprintf("player-%d", i), PlayerState{Life: 5, AssignedQuestions: 20}, bank, nil)
		}(i)
	}
	wg.Wait()

	if len(s.sessions) != 8 {
		t.Fatalf("registered %d sessions, want 8", len(s.sessions))
	}
	for name, session := range s.sessions {
		if session.Remaining() != 10 {
			t.Fatalf("session %s has %d remaining, want 10", name, session.Remaining())
		}
	}
}
