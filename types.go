// Package skillagent implements a multi-skill, slot-filling dialog
// orchestrator. Each registered skill declares the slots it needs; the
// orchestrator routes free-text user turns to a skill, asks a chat model to
// extract missing slot values, decides per turn whether the user is still
// answering the pending question or has switched topics, and invokes the
// skill's handler once every slot is known.
package skillagent

import "context"

// Status of a skill's dialog state.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusReady      Status = "ready"
)

// ActionType identifies what the orchestrator should do next for a skill.
type ActionType string

const (
	ActionAskSlot ActionType = "ask_slot"
	ActionReady   ActionType = "ready"
)

// Action is the outcome of DialogState.NextAction. Slot is set only when
// Type is ActionAskSlot.
type Action struct {
	Type ActionType
	Slot *Slot
}

// Slot describes one piece of information a skill needs before it can
// complete. Slots are registered once and never mutated.
type Slot struct {
	// Name is the key of the slot, unique within a skill.
	Name string
	// Description tells the model what the slot means.
	Description string
	// Question is shown to the user when the slot is missing.
	Question string
}

// HandlerResult is what a skill handler produces once all slots are filled.
// When Message is non-empty it is returned to the user verbatim; otherwise
// Data is serialized and rendered into prose through the skill's FinalPrompt.
type HandlerResult struct {
	Message string
	Data    any
}

// Handler is the business callback of a skill. Failures (errors or panics)
// are caught by the orchestrator and never crash a turn.
type Handler func(ctx context.Context, values map[string]string) (*HandlerResult, error)

// Skill is a registered conversation topic. Skills are configuration:
// created at startup, read-only afterwards.
type Skill struct {
	// Name is the routing key, unique across the registry.
	Name string
	// Description is used for intent classification.
	Description string
	// Slots, in the order they should be asked. A skill with no slots is
	// purely conversational: the user message is answered directly through
	// FinalPrompt.
	Slots []Slot
	// FinalPrompt is the system instruction used to phrase the final answer.
	FinalPrompt string
	// OnReady is invoked once every slot has a value. Optional.
	OnReady Handler
}

// Slot returns the skill's slot with the given name, or nil.
func (s *Skill) Slot(name string) *Slot {
	for i := range s.Slots {
		if s.Slots[i].Name == name {
			return &s.Slots[i]
		}
	}
	return nil
}

// Command is a session-level control keyword recognized before any routing.
type Command string

const (
	CommandNone  Command = "none"
	CommandReset Command = "reset"
)

// CommandParser recognizes control commands in raw user input.
type CommandParser interface {
	ParseCommand(ctx context.Context, input string) (Command, error)
}
