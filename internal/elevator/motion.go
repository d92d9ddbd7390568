package elevator

import (
	"context"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/fault"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/request"
)

// MoveTo travels to destination one floor at a time, sending a location
// update after every floor. It reports false when the travel timer sticks;
// the car is then Halted and every request it held is reported faulted.
func (e *Elevator) MoveTo(ctx context.Context, destination, roll int) (bool, error) {
	e.queue.Remove(destination)

	if destination == e.floor {
		e.state = elevconsts.Idle
		return true, nil
	}

	Log.Info().Int("elevator", e.id).Msgf("Elevator #%d moving from floor %d to %d", e.id, e.floor, destination)

	if fault.TimerFault(roll) {
		Log.Error().Int("elevator", e.id).Msgf("Elevator #%d timer is stuck. Shutting down elevator...", e.id)
		e.state = elevconsts.Halted
		return false, e.reportStranded(ctx)
	}

	e.direction = request.DirectionBetween(e.floor, destination)
	for e.floor != destination {
		if err := fault.Sleep(ctx, e.floorTravelTime); err != nil {
			return false, err
		}

		if e.direction == elevconsts.Up {
			e.floor++
		} else {
			e.floor--
		}

		if err := e.sendLocationUpdate(ctx, destination); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (e *Elevator) sendLocationUpdate(ctx context.Context, destination int) error {
	Log.Info().Int("elevator", e.id).Msgf("Elevator #%d at floor %d and going to %d", e.id, e.floor, destination)
	return e.sendStatus(ctx, request.NewLocationUpdate(e.id, e.floor, destination, e.direction, e.now()))
}

// reportStranded flags the current request, and everything else accepted
// since the last completion, with a timer fault.
func (e *Elevator) reportStranded(ctx context.Context) error {
	stranded := e.pending
	if len(stranded) == 0 && e.current != nil {
		stranded = []request.Request{*e.current}
	}
	for _, req := range stranded {
		req.SetTimerFault()
		if err := e.sendStatus(ctx, req); err != nil {
			return err
		}
	}
	e.pending = nil
	return nil
}

func (e *Elevator) OpenDoors(ctx context.Context, roll int) error {
	Log.Info().Int("elevator", e.id).Msgf("Elevator #%d opening doors.", e.id)
	return e.operateDoors(ctx, roll, "stuck closed", "opened")
}

func (e *Elevator) CloseDoors(ctx context.Context, roll int) error {
	Log.Info().Int("elevator", e.id).Msgf("Elevator #%d closing doors.", e.id)
	return e.operateDoors(ctx, roll, "stuck open", "closed")
}

func (e *Elevator) operateDoors(ctx context.Context, roll int, stuck, done string) error {
	_, err := fault.RetryWhileStuck(ctx, e.faults, roll, elevconsts.DOOR_STUCK_THRESHOLD, 0, func(attempt int) {
		Log.Warn().Int("elevator", e.id).Int("attempt", attempt).Msgf("Elevator #%d door is %s. Trying again...", e.id, stuck)
	})
	if err != nil {
		return err
	}
	if err := fault.Sleep(ctx, e.doorDelay); err != nil {
		return err
	}
	Log.Info().Int("elevator", e.id).Msgf("Elevator #%d door %s", e.id, done)
	return nil
}
