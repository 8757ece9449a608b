package state

import (
	"errors"
	"fmt"
	"sync"
)

// Status is the room lifecycle state; values are the wire strings.
type Status string

const (
	Waiting    Status = "waiting"
	RoundStart Status = "round_start"
	RoundEnd   Status = "round_end"
	GameOver   Status = "game_over"
)

// StateMachine guards status changes against a transition whitelist.
type StateMachine interface {
	ChangeState(to Status) error
	GetCurrentState() Status
	AddTransition(from Status, to Status, condition func() bool) error
}

var (
	// ErrTransitionNotAllowed is returned when a state transition is not allowed.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	// ErrConditionNotMet is a registered transition whose guard refused it.
	ErrConditionNotMet = fmt.Errorf("%w: condition not met", ErrTransitionNotAllowed)
)

// BaseStateMachine only permits registered transitions. A nil condition
// always passes.
type BaseStateMachine struct {
	currentState Status
	transitions  map[Status]map[Status]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState Status) *BaseStateMachine {
	return &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[Status]map[Status]func() bool),
	}
}

// NewRoomMachine returns the room lifecycle: waiting is initial, game_over
// is terminal. canStart guards every move into round_start; nil allows it.
func NewRoomMachine(canStart func() bool) *BaseStateMachine {
	sm := NewBaseStateMachine(Waiting)
	sm.AddTransition(Waiting, RoundStart, canStart)
	sm.AddTransition(Waiting, RoundEnd, nil)
	sm.AddTransition(Waiting, GameOver, nil)
	sm.AddTransition(RoundStart, RoundEnd, nil)
	sm.AddTransition(RoundStart, GameOver, nil)
	sm.AddTransition(RoundEnd, RoundStart, canStart)
	sm.AddTransition(RoundEnd, GameOver, nil)
	return sm
}

func (sm *BaseStateMachine) ChangeState(to Status) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.currentState == to {
		return nil
	}

	conditions, exists := sm.transitions[sm.currentState]
	if !exists {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, sm.currentState, to)
	}
	condition, exists := conditions[to]
	if !exists {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, sm.currentState, to)
	}
	if condition != nil && !condition() {
		return fmt.Errorf("%w: %s -> %s", ErrConditionNotMet, sm.currentState, to)
	}

	sm.currentState = to
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() Status {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from Status, to Status, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[Status]func() bool)
	}

	sm.transitions[from][to] = condition
	return nil
}
