// Package request holds the ride request passed between the floor source,
// the scheduler and the elevators, together with its two serialisations:
// the workload text line and the fixed-size binary wire record.
package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
)

// NoElevator marks a request the scheduler has not assigned yet.
const NoElevator = -1

const TIMESTAMP_LAYOUT = "15:04:05.000"

type Request struct {
	ID          uuid.UUID
	Timestamp   string //canonical H:M:S.f text, kept as read
	Origin      int
	Destination int
	Direction   elevconsts.Direction

	Elevator   int
	TimerFault bool
	Complete   bool
	Location   bool //location update: Origin is the car's floor, Destination its target
}

// New builds an unassigned request. The id is left zero; the floor source
// stamps one before sending.
func New(timestamp string, origin int, direction elevconsts.Direction, destination int) Request {
	return Request{
		Timestamp:   timestamp,
		Origin:      origin,
		Destination: destination,
		Direction:   direction,
		Elevator:    NoElevator,
	}
}

// NewLocationUpdate is the status an elevator broadcasts after every floor
// it passes on its way to destination.
func NewLocationUpdate(elevatorID, floor, destination int, direction elevconsts.Direction, at time.Time) Request {
	return Request{
		Timestamp:   at.Format(TIMESTAMP_LAYOUT),
		Origin:      floor,
		Destination: destination,
		Direction:   direction,
		Elevator:    elevatorID,
		Location:    true,
	}
}

// DirectionBetween is the travel direction implied by origin -> destination.
func DirectionBetween(origin, destination int) elevconsts.Direction {
	if destination < origin {
		return elevconsts.Down
	}
	return elevconsts.Up
}

func (r Request) Assigned() bool {
	return r.Elevator != NoElevator
}

func (r *Request) SetElevator(id int) {
	r.Elevator = id
}

func (r *Request) MarkComplete() {
	r.Complete = true
}

func (r *Request) SetTimerFault() {
	r.TimerFault = true
}

func (r Request) String() string {
	if r.Location {
		return fmt.Sprintf("Elevator #%d at floor %d going to %d", r.Elevator, r.Origin, r.Destination)
	}
	s := fmt.Sprintf("Timestamp: %s Direction: %v To: %d From: %d", r.Timestamp, r.Direction, r.Destination, r.Origin)
	if r.Assigned() {
		s += fmt.Sprintf(" Elevator: %d", r.Elevator)
	}
	if r.Complete {
		s += " [complete]"
	}
	if r.TimerFault {
		s += " [timer fault]"
	}
	return s
}
