package elevconsts

import "time"

const (
	BUFFER_LEN = 100 //size of every message on the wire

	GROUND_FLOOR = 1

	TIMER_FAULT_THRESHOLD = 5  //roll <= threshold halts the car
	DOOR_STUCK_THRESHOLD  = 30 //roll <= threshold keeps the door stuck
	ROLL_MIN              = 1
	ROLL_MAX              = 100

	FLOOR_TRAVEL_TIME = 2 * time.Second
	DOOR_DELAY        = time.Millisecond
	IDLE_POLL_TIMEOUT = 50 * time.Millisecond
)

const (
	SCHEDULER_PORT     = 2002
	FLOOR_PORT         = 2001
	ELEVATOR_BASE_PORT = 2010
)

type Direction int32

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "Up"
	case Down:
		return "Down"
	default:
		return "Undefined"
	}
}

func (d Direction) Opposite() Direction {
	if d == Up {
		return Down
	}
	return Up
}

func (d Direction) Valid() bool {
	return d == Up || d == Down
}

// ParseDirection accepts the literal tokens used in workload files.
func ParseDirection(token string) (Direction, bool) {
	switch token {
	case "Up":
		return Up, true
	case "Down":
		return Down, true
	}
	return Up, false
}

type ElevatorState int

const (
	Idle ElevatorState = iota
	Moving
	DoorsOpen
	DoorsClosed
	Halted
)

func (s ElevatorState) String() string {
	switch s {
	case Idle:
		return "ES_Idle"
	case Moving:
		return "ES_Moving"
	case DoorsOpen:
		return "ES_DoorsOpen"
	case DoorsClosed:
		return "ES_DoorsClosed"
	case Halted:
		return "ES_Halted"
	default:
		return "ES_UNDEFINED"
	}
}

type SchedulerState int

const (
	SchedulerIdle SchedulerState = iota
	SchedulerThinking
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerIdle:
		return "SS_Idle"
	case SchedulerThinking:
		return "SS_Thinking"
	default:
		return "SS_UNDEFINED"
	}
}
