// Package fsm is a finite state machine that reports its lifecycle through an
// embedded hub. Listeners subscribe with On/Once and receive:
//
//	exit       (from State)
//	transition (from State, trigger Trigger, to State)
//	enter      (to State)
package fsm

import (
	"context"
	"fmt"

	"go-event-hub/internal/core"
	"go-event-hub/internal/hub"
)

// Events emitted by a Machine.
const (
	EventExit       = "exit"
	EventTransition = "transition"
	EventEnter      = "enter"
)

// State represents a state identifier.
type State string

// Trigger names an input that may cause a transition.
type Trigger string

// Transition defines a state change caused by a trigger.
type Transition struct {
	From    State
	Trigger Trigger
	To      State
	Action  func(ctx context.Context) error
}

// Machine is a simple finite state machine. Like the hub it embeds, it is
// owned by a single goroutine.
type Machine struct {
	hub.Hub

	id          string
	initial     State
	current     State
	transitions map[State]map[Trigger]Transition
}

// New creates a machine in the initial state.
func New(id string, initial State) *Machine {
	return &Machine{
		id:          id,
		initial:     initial,
		current:     initial,
		transitions: make(map[State]map[Trigger]Transition),
	}
}

// ID returns the machine identifier.
func (m *Machine) ID() string { return m.id }

// State returns the current state.
func (m *Machine) State() State { return m.current }

// AddTransition registers a transition, replacing any previous one for the
// same state and trigger.
func (m *Machine) AddTransition(t Transition) {
	if _, ok := m.transitions[t.From]; !ok {
		m.transitions[t.From] = make(map[Trigger]Transition)
	}
	m.transitions[t.From][t.Trigger] = t
}

// ValidateTransitions checks that every transition names both states and that
// every source state is reachable from the initial state.
func (m *Machine) ValidateTransitions() error {
	for from, ts := range m.transitions {
		for _, t := range ts {
			if from == "" || t.To == "" {
				return fmt.Errorf("invalid transition %v", t)
			}
		}
	}
	reachable := map[State]bool{m.initial: true}
	queue := []State{m.initial}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, t := range m.transitions[s] {
			if !reachable[t.To] {
				reachable[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}
	for from := range m.transitions {
		if !reachable[from] {
			return fmt.Errorf("state %s unreachable", from)
		}
	}
	return nil
}

// Trigger moves the machine according to t. Unknown triggers are ignored.
// An error from an exit listener or from the transition action leaves the
// machine in its current state. Errors from transition and enter listeners
// are returned after the state has changed.
func (m *Machine) Trigger(ctx context.Context, t Trigger) error {
	trans, ok := m.transitions[m.current][t]
	if !ok {
		return nil
	}
	from := m.current
	if err := m.Emit(EventExit, from); err != nil {
		return err
	}
	if trans.Action != nil {
		if err := trans.Action(ctx); err != nil {
			return fmt.Errorf("%s: %s -> %s: %w", m.id, from, trans.To, err)
		}
	}
	m.current = trans.To
	if err := m.Emit(EventTransition, from, t, trans.To); err != nil {
		return err
	}
	return m.Emit(EventEnter, trans.To)
}

var _ core.Observable = (*Machine)(nil)
