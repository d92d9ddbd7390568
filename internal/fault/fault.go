// Package fault injects the simulated mechanical faults of a car: a stuck
// door timer that halts the car and doors that stick for a few attempts.
package fault

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
)

// Source yields uniform integers in [ROLL_MIN, ROLL_MAX].
type Source interface {
	Roll() int
}

func TimerFault(roll int) bool {
	return roll <= elevconsts.TIMER_FAULT_THRESHOLD
}

func DoorStuck(roll int) bool {
	return roll <= elevconsts.DOOR_STUCK_THRESHOLD
}

type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom seeds a PCG generator. Seed 0 picks a time based seed.
func NewRandom(seed uint64) *Random {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Random) Roll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(elevconsts.ROLL_MAX-elevconsts.ROLL_MIN+1) + elevconsts.ROLL_MIN
}

// Sequence replays a fixed schedule of rolls. Once exhausted the last value
// repeats; an empty schedule always rolls ROLL_MAX (never a fault).
type Sequence struct {
	mu     sync.Mutex
	values []int
	next   int
}

func NewSequence(values ...int) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Roll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		s.next++
		return elevconsts.ROLL_MAX
	}
	i := s.next
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	s.next++
	return s.values[i]
}

// Draws is the number of rolls taken so far.
func (s *Sequence) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryWhileStuck keeps retrying while the roll is at or below threshold,
// drawing a fresh roll from src after each delay. It returns the number of
// attempts, the successful one included.
func RetryWhileStuck(ctx context.Context, src Source, first, threshold int, delay time.Duration, onStuck func(attempt int)) (int, error) {
	roll := first
	attempts := 1
	for roll <= threshold {
		if onStuck != nil {
			onStuck(attempts)
		}
		if err := Sleep(ctx, delay); err != nil {
			return attempts, err
		}
		roll = src.Roll()
		attempts++
	}
	return attempts, nil
}
