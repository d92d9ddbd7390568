package elevconsts

import "testing"

func TestDirectionString(t *testing.T) {
	directions := []Direction{Up, Down, Direction(7)}
	expected := []string{"Up", "Down", "Undefined"}

	for index, direction := range directions {
		if direction.String() != expected[index] {
			t.Errorf("Direction.String() returned %v, expected %v", direction.String(), expected[index])
		}
	}
}

func TestDirectionOpposite(t *testing.T) {
	for _, direction := range []Direction{Up, Down} {
		if direction.Opposite() == direction {
			t.Errorf("%v.Opposite() returned itself", direction)
		}
		if direction.Opposite().Opposite() != direction {
			t.Errorf("%v.Opposite().Opposite() = %v", direction, direction.Opposite().Opposite())
		}
	}
}

func TestParseDirection(t *testing.T) {
	if d, ok := ParseDirection("Up"); !ok || d != Up {
		t.Errorf("ParseDirection(\"Up\") = %v, %v", d, ok)
	}
	if d, ok := ParseDirection("Down"); !ok || d != Down {
		t.Errorf("ParseDirection(\"Down\") = %v, %v", d, ok)
	}
	for _, token := range []string{"up", "DOWN", "", "Sideways"} {
		if _, ok := ParseDirection(token); ok {
			t.Errorf("ParseDirection(%q) accepted an invalid token", token)
		}
	}
}

func TestStateStrings(t *testing.T) {
	states := []ElevatorState{Idle, Moving, DoorsOpen, DoorsClosed, Halted, ElevatorState(42)}
	expected := []string{"ES_Idle", "ES_Moving", "ES_DoorsOpen", "ES_DoorsClosed", "ES_Halted", "ES_UNDEFINED"}

	for index, state := range states {
		if state.String() != expected[index] {
			t.Errorf("ElevatorState.String() returned %v, expected %v", state.String(), expected[index])
		}
	}

	if SchedulerIdle.String() != "SS_Idle" || SchedulerThinking.String() != "SS_Thinking" {
		t.Errorf("unexpected scheduler state names %v %v", SchedulerIdle, SchedulerThinking)
	}
}
