package scheduler

import (
	"fmt"
	"sync"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/request"
)

const (
	SELECTOR_FIXED       = "fixed"
	SELECTOR_ROUND_ROBIN = "round_robin"
	SELECTOR_NEAREST     = "nearest"
)

// Selector picks the index of the elevator that serves req.
type Selector interface {
	Select(req request.Request, elevators int) int
}

// Observer is implemented by selectors that learn from elevator statuses.
type Observer interface {
	Observe(status request.Request)
}

func NewSelector(name string) (Selector, error) {
	switch name {
	case "", SELECTOR_FIXED:
		return FixedSelector{Elevator: 0}, nil
	case SELECTOR_ROUND_ROBIN:
		return &RoundRobinSelector{}, nil
	case SELECTOR_NEAREST:
		return NewNearestSelector(), nil
	default:
		return nil, fmt.Errorf("unknown selector %q", name)
	}
}

// FixedSelector sends everything to one elevator.
type FixedSelector struct {
	Elevator int
}

func (f FixedSelector) Select(request.Request, int) int {
	return f.Elevator
}

type RoundRobinSelector struct {
	mu   sync.Mutex
	next int
}

func (r *RoundRobinSelector) Select(_ request.Request, elevators int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elevators <= 0 {
		return 0
	}
	index := r.next % elevators
	r.next = index + 1
	return index
}

// NearestSelector picks the running elevator last seen closest to the
// request origin. Elevators never heard from are assumed on the ground
// floor; ties go to the lowest index.
type NearestSelector struct {
	mu     sync.Mutex
	floors map[int]int
	halted map[int]bool
}

func NewNearestSelector() *NearestSelector {
	return &NearestSelector{
		floors: make(map[int]int),
		halted: make(map[int]bool),
	}
}

func (n *NearestSelector) Observe(status request.Request) {
	if !status.Assigned() {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	switch {
	case status.Location:
		n.floors[status.Elevator] = status.Origin
	case status.TimerFault:
		n.halted[status.Elevator] = true
	case status.Complete:
		n.floors[status.Elevator] = status.Destination
	}
}

func (n *NearestSelector) Select(req request.Request, elevators int) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	best, bestDistance := 0, -1
	for i := 0; i < elevators; i++ {
		if n.halted[i] {
			continue
		}
		floor, seen := n.floors[i]
		if !seen {
			floor = elevconsts.GROUND_FLOOR
		}
		distance := floor - req.Origin
		if distance < 0 {
			distance = -distance
		}
		if bestDistance < 0 || distance < bestDistance {
			best, bestDistance = i, distance
		}
	}
	return best
}
