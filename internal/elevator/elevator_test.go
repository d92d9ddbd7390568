package elevator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/fault"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/floorqueue"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/logger"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/request"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/transport"
)

const (
	TEST_ELEVATOR_ENDPOINT = transport.Endpoint(2010)
	TEST_DELAY             = 100 * time.Millisecond
)

func newTestElevator(t *testing.T, rolls ...int) (*Elevator, transport.Conn, *fault.Sequence) {
	t.Helper()
	_ = logger.GetLoggerConfigured(zerolog.Disabled)

	hub := transport.NewHub()
	conn, err := hub.Open(TEST_ELEVATOR_ENDPOINT)
	require.NoError(t, err)
	scheduler, err := hub.Open(elevconsts.SCHEDULER_PORT)
	require.NoError(t, err)

	cfg := DefaultConfig(0)
	cfg.FloorTravelTime = 0
	cfg.DoorDelay = 0
	cfg.IdlePollTimeout = 5 * time.Millisecond

	faults := fault.NewSequence(rolls...)
	return New(cfg, conn, faults), scheduler, faults
}

// collect drains statuses until nothing arrives for TEST_DELAY.
func collect(t *testing.T, conn transport.Conn) []request.Request {
	t.Helper()
	var statuses []request.Request
	for {
		packet, err := conn.Receive(context.Background(), TEST_DELAY)
		if errors.Is(err, transport.ErrTimeout) {
			return statuses
		}
		require.NoError(t, err)
		status, err := request.Decode(packet.Data)
		require.NoError(t, err)
		statuses = append(statuses, status)
	}
}

func send(t *testing.T, from transport.Conn, req request.Request) {
	t.Helper()
	buf, err := request.Encode(req)
	require.NoError(t, err)
	require.NoError(t, from.Send(context.Background(), TEST_ELEVATOR_ENDPOINT, buf))
}

// runInBackground starts the control loop; the returned func stops it and
// yields what Run returned.
func runInBackground(e *Elevator) func() error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()
	return func() error {
		cancel()
		return <-done
	}
}

func newAssigned(origin, destination int) request.Request {
	req := request.New("14:05:15.2", origin, request.DirectionBetween(origin, destination), destination)
	req.ID = uuid.New()
	req.SetElevator(0)
	return req
}

func TestInitialState(t *testing.T) {
	e, _, _ := newTestElevator(t)
	assert.Equal(t, 0, e.ID())
	assert.Equal(t, elevconsts.GROUND_FLOOR, e.Floor())
	assert.Equal(t, elevconsts.Up, e.Direction())
	assert.Equal(t, elevconsts.Idle, e.State())
	assert.Empty(t, e.QueuedFloors())
}

func TestNextFloor(t *testing.T) {
	t.Run("should visit queued floors in order going up", func(t *testing.T) {
		e, _, _ := newTestElevator(t)
		e.queue = floorqueue.New(2, 4, 7)

		var visited []int
		for {
			next, ok := e.NextFloor()
			if !ok {
				break
			}
			visited = append(visited, next)
			e.queue.Remove(next)
			e.floor = next
		}
		assert.Equal(t, []int{2, 4, 7}, visited)
	})

	t.Run("should never return the current floor", func(t *testing.T) {
		e, _, _ := newTestElevator(t)
		e.floor = 3
		e.queue = floorqueue.New(3)

		_, ok := e.NextFloor()
		assert.False(t, ok)
		e.ToggleDirection()
		_, ok = e.NextFloor()
		assert.False(t, ok)
	})

	t.Run("should pick the nearest floor below going down", func(t *testing.T) {
		e, _, _ := newTestElevator(t)
		e.floor = 6
		e.direction = elevconsts.Down
		e.queue = floorqueue.New(1, 4, 5, 9)

		next, ok := e.NextFloor()
		assert.True(t, ok)
		assert.Equal(t, 5, next)
	})
}

func TestToggleDirectionTwice(t *testing.T) {
	e, _, _ := newTestElevator(t)
	for _, start := range []elevconsts.Direction{elevconsts.Up, elevconsts.Down} {
		e.direction = start
		e.ToggleDirection()
		assert.Equal(t, start.Opposite(), e.Direction())
		e.ToggleDirection()
		assert.Equal(t, start, e.Direction())
	}
}

func TestMoveTo(t *testing.T) {
	ctx := context.Background()

	t.Run("should succeed in place without a location update", func(t *testing.T) {
		e, scheduler, _ := newTestElevator(t)
		e.state = elevconsts.Moving
		e.queue.Add(1)

		moved, err := e.MoveTo(ctx, 1, 100)
		require.NoError(t, err)
		assert.True(t, moved)
		assert.Equal(t, elevconsts.Idle, e.State())
		assert.Empty(t, e.QueuedFloors())
		assert.Empty(t, collect(t, scheduler))
	})

	t.Run("should halt on a stuck timer without moving", func(t *testing.T) {
		e, scheduler, _ := newTestElevator(t)
		req := newAssigned(2, 5)
		e.Accept(req)

		moved, err := e.MoveTo(ctx, 5, elevconsts.TIMER_FAULT_THRESHOLD)
		require.NoError(t, err)
		assert.False(t, moved)
		assert.Equal(t, elevconsts.Halted, e.State())
		assert.Equal(t, 1, e.Floor())

		statuses := collect(t, scheduler)
		require.Len(t, statuses, 1)
		assert.True(t, statuses[0].TimerFault)
		assert.Equal(t, req.ID, statuses[0].ID)
		assert.Equal(t, 0, statuses[0].Elevator)
	})

	t.Run("should send one location update per floor", func(t *testing.T) {
		e, scheduler, _ := newTestElevator(t)
		e.queue.Add(4)

		moved, err := e.MoveTo(ctx, 4, elevconsts.TIMER_FAULT_THRESHOLD+1)
		require.NoError(t, err)
		assert.True(t, moved)
		assert.Equal(t, 4, e.Floor())

		statuses := collect(t, scheduler)
		require.Len(t, statuses, 3)
		for i, status := range statuses {
			assert.True(t, status.Location)
			assert.Equal(t, 2+i, status.Origin)
			assert.Equal(t, 4, status.Destination)
			assert.Equal(t, 0, status.Elevator)
		}
	})

	t.Run("should travel down toward a lower floor", func(t *testing.T) {
		e, scheduler, _ := newTestElevator(t)
		e.floor = 5

		moved, err := e.MoveTo(ctx, 2, 50)
		require.NoError(t, err)
		assert.True(t, moved)
		assert.Equal(t, 2, e.Floor())
		assert.Equal(t, elevconsts.Down, e.Direction())
		assert.Len(t, collect(t, scheduler), 3)
	})

	t.Run("should stop travelling when the context ends", func(t *testing.T) {
		e, _, _ := newTestElevator(t)
		e.floorTravelTime = time.Hour

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := e.MoveTo(cancelled, 3, 50)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, e.Floor())
	})
}

func TestDoorsRetryWhileStuck(t *testing.T) {
	ctx := context.Background()

	t.Run("should retry until the first unstuck roll", func(t *testing.T) {
		e, _, faults := newTestElevator(t, 30, 1, 31, 2)
		require.NoError(t, e.OpenDoors(ctx, 10))
		assert.Equal(t, 3, faults.Draws())
	})

	t.Run("should not retry when the first roll is unstuck", func(t *testing.T) {
		e, _, faults := newTestElevator(t, 1)
		require.NoError(t, e.CloseDoors(ctx, 31))
		assert.Equal(t, 0, faults.Draws())
	})
}

func TestRunServesRequest(t *testing.T) {
	e, scheduler, _ := newTestElevator(t)
	req := newAssigned(2, 4)
	send(t, scheduler, req)

	stop := runInBackground(e)
	statuses := collect(t, scheduler)
	require.NoError(t, stop())

	var floors []int
	var completed []request.Request
	for _, status := range statuses {
		switch {
		case status.Location:
			floors = append(floors, status.Origin)
		case status.Complete:
			completed = append(completed, status)
		}
	}

	assert.Equal(t, []int{2, 3, 4}, floors)
	require.Len(t, completed, 1)
	assert.Equal(t, req.ID, completed[0].ID)
	assert.Equal(t, 2, completed[0].Origin)
	assert.Equal(t, 4, completed[0].Destination)
	assert.Equal(t, 0, completed[0].Elevator)

	assert.Equal(t, elevconsts.Idle, e.State())
	assert.Equal(t, 4, e.Floor())
}

func TestRunCompletesEveryPendingRequest(t *testing.T) {
	e, scheduler, _ := newTestElevator(t)
	first, second := newAssigned(2, 4), newAssigned(3, 5)
	send(t, scheduler, first)
	send(t, scheduler, second)

	stop := runInBackground(e)
	statuses := collect(t, scheduler)
	require.NoError(t, stop())

	var ids []uuid.UUID
	for _, status := range statuses {
		if status.Complete {
			ids = append(ids, status.ID)
		}
	}
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, ids)
	assert.Equal(t, 5, e.Floor())
}

func TestRunHaltsOnTimerFault(t *testing.T) {
	//receive, idle timeout, then a stuck timer on the first move
	e, scheduler, _ := newTestElevator(t, 100, 100, elevconsts.TIMER_FAULT_THRESHOLD, 100)
	req := newAssigned(2, 4)
	send(t, scheduler, req)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, elevconsts.Halted, e.State())
	assert.Equal(t, 1, e.Floor())

	statuses := collect(t, scheduler)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].TimerFault)
	assert.Equal(t, req.ID, statuses[0].ID)
}

func TestRunFailsOnUndecodableRequest(t *testing.T) {
	e, scheduler, _ := newTestElevator(t)
	require.NoError(t, scheduler.Send(context.Background(), TEST_ELEVATOR_ENDPOINT, []byte{1, 2, 3}))

	err := e.Run(context.Background())
	assert.ErrorIs(t, err, request.ErrShortBuffer)
}

func TestRunReturnsOnCancel(t *testing.T) {
	e, _, _ := newTestElevator(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, e.Run(ctx))
}

func TestIdleBlocksWithEmptyQueue(t *testing.T) {
	e, scheduler, faults := newTestElevator(t)

	//several poll periods pass without a message
	ctx, cancel := context.WithTimeout(context.Background(), 12*e.idlePollTimeout)
	defer cancel()
	require.NoError(t, e.Run(ctx))

	assert.Equal(t, 1, faults.Draws(), "the only receive never timed out")
	assert.Equal(t, elevconsts.Idle, e.State())
	assert.Empty(t, collect(t, scheduler))
}

func TestIdlePollsWithQueuedFloors(t *testing.T) {
	e, _, faults := newTestElevator(t)
	e.queue = floorqueue.New(3)

	stop := runInBackground(e)
	time.Sleep(TEST_DELAY)
	require.NoError(t, stop())

	assert.Equal(t, 3, e.Floor(), "the idle timeout sent the car to the queued floor")
	assert.Greater(t, faults.Draws(), 1)
	assert.Empty(t, e.QueuedFloors())
}

func TestRunFailsOnFloorBelowGround(t *testing.T) {
	e, scheduler, _ := newTestElevator(t)
	send(t, scheduler, newAssigned(-2, 2))

	err := e.Run(context.Background())
	assert.ErrorIs(t, err, request.ErrBadFloor)
	assert.Equal(t, elevconsts.GROUND_FLOOR, e.Floor())
	assert.Empty(t, e.QueuedFloors())
}
