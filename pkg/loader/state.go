package loader

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidTransition = errors.New("invalid load transition")

type State int

const (
	StateIdle State = iota
	StateCleared
	StateAreasLoaded
	StateRoutesLoaded
	StateRolledUp
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCleared:
		return "cleared"
	case StateAreasLoaded:
		return "areas_loaded"
	case StateRoutesLoaded:
		return "routes_loaded"
	case StateRolledUp:
		return "rolled_up"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists the states each state may be entered from.
var transitions = map[State][]State{
	StateCleared:      {StateIdle},
	StateAreasLoaded:  {StateCleared},
	StateRoutesLoaded: {StateAreasLoaded},
	StateRolledUp:     {StateRoutesLoaded},
	StateDone:         {StateRoutesLoaded, StateRolledUp},
}

func checkTransition(from, to State) error {
	if !slices.Contains(transitions[to], from) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
