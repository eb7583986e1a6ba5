package services

import (
	"errors"
	"sync"
	"testing"
)

func newGateOnlyStakingService() *StakingService {
	return &StakingService{
		PlayerStakeAmount: 1,
		PricePerQuestion:  0.001,
		gates:             make(map[string]StakeState),
	}
}

func TestGateRejectsSecondInFlightStake(t *testing.T) {
	s := newGateOnlyStakingService()
	key := playerGateKey("alice")

	if err := s.begin(key); err != nil {
		t.Fatalf("first begin: %v", err)
	}
	if err := s.begin(key); !errors.Is(err, ErrAlreadyInProgress) {
		t.Fatalf("second begin = %v, want ErrAlreadyInProgress", err)
	}
}

func TestGateAllowsRetryAfterFailure(t *testing.T) {
	s := newGateOnlyStakingService()
	key := playerGateKey("alice")

	if err := s.begin(key); err != nil {
		t.Fatalf("begin: %v", err)
	}
	s.settle(key, StakeFailed)

	if got := s.GateState(key); got != StakeFailed {
		t.Fatalf("GateState = %s after failure, want %s", got, StakeFailed)
	}
	if err := s.begin(key); err != nil {
		t.Fatalf("begin after failure = %v, want a fresh attempt to be allowed", err)
	}
}

func TestGateStatesAreIndependentPerParticipant(t *testing.T) {
	s := newGateOnlyStakingService()

	if err := s.begin(playerGateKey("alice")); err != nil {
		t.Fatalf("begin alice: %v", err)
	}
	if err := s.begin(playerGateKey("bob")); err != nil {
		t.Fatalf("begin bob blocked by alice's in-flight stake: %v", err)
	}
	// Same username under the other role is a distinct participant.
	if err := s.begin(companyGateKey("alice")); err != nil {
		t.Fatalf("begin company alice blocked by player alice: %v", err)
	}
}

func TestGateStakedIsTerminal(t *testing.T) {
	s := newGateOnlyStakingService()
	key := companyGateKey("acme")

	if err := s.begin(key); err != nil {
		t.Fatalf("begin: %v", err)
	}
	s.settle(key, StakeStaked)

	if err := s.begin(key); !errors.Is(err, ErrAlreadyStaked) {
		t.Fatalf("begin after a confirmed stake = %v, want ErrAlreadyStaked", err)
	}
}

func TestGateDefaultsToUnstaked(t *testing.T) {
	s := newGateOnlyStakingService()
	if got := s.GateState(playerGateKey("nobody")); got != StakeUnstaked {
		t.Fatalf("GateState for unseen key = %s, want %s", got, StakeUnstaked)
	}
}

func TestGateConcurrentBeginAdmitsExactlyOne(t *testing.T) {
	s := newGateOnlyStakingService()
	key := companyGateKey("acme")

	const attempts = 16
	var wg sync.WaitGroup
	admitted := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.begin(key); err == nil {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	if count != 1 {
		t.Fatalf("%d concurrent begins admitted, want exactly 1", count)
	}
}
