// Package elevator simulates one car: a state machine fed with assigned
// requests by the scheduler, reporting its location, completions and faults
// back to it.
package elevator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/fault"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/floorqueue"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/logger"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/request"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/transport"
)

var Log = logger.GetLogger()

type Config struct {
	ID              int
	Scheduler       transport.Endpoint //where status messages go
	FloorTravelTime time.Duration
	DoorDelay       time.Duration
	IdlePollTimeout time.Duration
}

func DefaultConfig(id int) Config {
	return Config{
		ID:              id,
		Scheduler:       elevconsts.SCHEDULER_PORT,
		FloorTravelTime: elevconsts.FLOOR_TRAVEL_TIME,
		DoorDelay:       elevconsts.DOOR_DELAY,
		IdlePollTimeout: elevconsts.IDLE_POLL_TIMEOUT,
	}
}

type Elevator struct {
	id        int
	conn      transport.Conn
	scheduler transport.Endpoint
	faults    fault.Source

	floorTravelTime time.Duration
	doorDelay       time.Duration
	idlePollTimeout time.Duration

	floor     int
	direction elevconsts.Direction
	state     elevconsts.ElevatorState
	queue     *floorqueue.FloorQueue
	current   *request.Request
	pending   []request.Request //accepted since the last completion

	now func() time.Time
}

func New(cfg Config, conn transport.Conn, faults fault.Source) *Elevator {
	return &Elevator{
		id:              cfg.ID,
		conn:            conn,
		scheduler:       cfg.Scheduler,
		faults:          faults,
		floorTravelTime: cfg.FloorTravelTime,
		doorDelay:       cfg.DoorDelay,
		idlePollTimeout: cfg.IdlePollTimeout,
		floor:           elevconsts.GROUND_FLOOR,
		direction:       elevconsts.Up,
		state:           elevconsts.Idle,
		queue:           floorqueue.New(),
		now:             time.Now,
	}
}

func (e *Elevator) ID() int {
	return e.id
}

// The accessors below read loop state and are only meaningful while the
// loop is not running.

func (e *Elevator) Floor() int {
	return e.floor
}

func (e *Elevator) Direction() elevconsts.Direction {
	return e.direction
}

func (e *Elevator) State() elevconsts.ElevatorState {
	return e.state
}

func (e *Elevator) QueuedFloors() []int {
	return e.queue.Floors()
}

// Run is the blocking control loop. It returns nil once the car halts or
// ctx ends, and the transport or decode error that stopped it otherwise.
func (e *Elevator) Run(ctx context.Context) error {
	Log.Info().Int("elevator", e.id).Msgf("Elevator #%d started on endpoint %v", e.id, e.conn.Endpoint())

	for {
		if ctx.Err() != nil {
			return nil
		}

		//one roll per iteration, used by whatever this state does
		roll := e.faults.Roll()

		var err error
		switch e.state {
		case elevconsts.Idle:
			err = e.handleIdle(ctx)
		case elevconsts.Moving:
			err = e.handleMoving(ctx, roll)
		case elevconsts.DoorsOpen:
			if err = e.OpenDoors(ctx, roll); err == nil {
				e.state = elevconsts.DoorsClosed
			}
		case elevconsts.DoorsClosed:
			err = e.handleDoorsClosed(ctx, roll)
		case elevconsts.Halted:
			Log.Warn().Int("elevator", e.id).Msgf("Elevator #%d shut down at floor %d", e.id, e.floor)
			return nil
		default:
			return fmt.Errorf("elevator %d in unknown state %v", e.id, e.state)
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (e *Elevator) handleIdle(ctx context.Context) error {
	//keep serving queued floors while still picking up new requests
	var timeout time.Duration
	if !e.queue.Empty() {
		timeout = e.idlePollTimeout
	}

	Log.Debug().Int("elevator", e.id).Msgf("Elevator #%d: Waiting for new elevator request...", e.id)
	packet, err := e.conn.Receive(ctx, timeout)
	if errors.Is(err, transport.ErrTimeout) {
		e.state = elevconsts.Moving
		return nil
	}
	if err != nil {
		return fmt.Errorf("elevator %d receive: %w", e.id, err)
	}

	req, err := request.Decode(packet.Data)
	if err != nil {
		return fmt.Errorf("elevator %d: %w", e.id, err)
	}
	e.Accept(req)
	return nil
}

// Accept queues the origin and destination of req and makes it current.
func (e *Elevator) Accept(req request.Request) {
	Log.Info().Int("elevator", e.id).Msgf("Elevator #%d received %v", e.id, req)

	e.queue.Add(req.Origin)
	e.queue.Add(req.Destination)
	e.current = &req
	e.pending = append(e.pending, req)
}

func (e *Elevator) handleMoving(ctx context.Context, roll int) error {
	next, ok := e.NextFloor()
	if !ok {
		e.ToggleDirection()
		next, ok = e.NextFloor()
	}
	if !ok {
		//only the floor we are standing on can be left
		if !e.queue.Contains(e.floor) {
			e.state = elevconsts.Idle
			return nil
		}
		next = e.floor
	}

	moved, err := e.MoveTo(ctx, next, roll)
	if err != nil {
		return err
	}
	if moved {
		e.state = elevconsts.DoorsOpen
	} else {
		e.state = elevconsts.Halted
	}
	return nil
}

func (e *Elevator) handleDoorsClosed(ctx context.Context, roll int) error {
	if err := e.CloseDoors(ctx, roll); err != nil {
		return err
	}

	if !e.queue.Empty() {
		e.state = elevconsts.Moving
		return nil
	}

	for _, req := range e.pending {
		req.MarkComplete()
		Log.Info().Int("elevator", e.id).Msgf("Elevator #%d completed %v", e.id, req)
		if err := e.sendStatus(ctx, req); err != nil {
			return err
		}
	}
	e.pending = nil
	e.current = nil

	e.state = elevconsts.Idle
	return nil
}

// NextFloor is the nearest queued floor strictly beyond the current floor
// in the current direction.
func (e *Elevator) NextFloor() (int, bool) {
	switch e.direction {
	case elevconsts.Up:
		return e.queue.Higher(e.floor)
	case elevconsts.Down:
		return e.queue.Lower(e.floor)
	default:
		return 0, false
	}
}

func (e *Elevator) ToggleDirection() {
	e.direction = e.direction.Opposite()
}

func (e *Elevator) sendStatus(ctx context.Context, status request.Request) error {
	buf, err := request.Encode(status)
	if err != nil {
		return fmt.Errorf("elevator %d encode %v: %w", e.id, status, err)
	}
	if err := e.conn.Send(ctx, e.scheduler, buf); err != nil {
		return fmt.Errorf("elevator %d send status: %w", e.id, err)
	}
	return nil
}
