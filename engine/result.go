package engine

import (
	"fmt"

	"github.com/TarikAI/RevoForms-sub004/config"
)

// Snapshot maps field ids to the values the respondent has entered so far.
// A missing key means the field was never touched.
type Snapshot map[string]interface{}

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, value := range s {
		out[id] = value
	}
	return out
}

// EventKind identifies the session event that triggered an evaluation.
type EventKind string

const (
	// EventLoad is raised once when a form-filling session starts.
	EventLoad EventKind = "load"
	// EventChange is raised when a field value changes.
	EventChange EventKind = "change"
	// EventBlur is raised when a field loses focus.
	EventBlur EventKind = "blur"
	// EventSubmit is raised when the respondent submits the form.
	EventSubmit EventKind = "submit"
)

// Event describes one external trigger entering the scheduler.
type Event struct {
	Kind  EventKind
	Field string
}

// LoadEvent returns the session-start event.
func LoadEvent() Event { return Event{Kind: EventLoad} }

// ChangeEvent returns a change event for the given field.
func ChangeEvent(field string) Event { return Event{Kind: EventChange, Field: field} }

// BlurEvent returns a blur event for the given field.
func BlurEvent(field string) Event { return Event{Kind: EventBlur, Field: field} }

// SubmitEvent returns the submit event.
func SubmitEvent() Event { return Event{Kind: EventSubmit} }

// FieldState is the derived, per-field presentation state computed by a pass.
type FieldState struct {
	Visible  bool
	Required bool
	Enabled  bool
	Value    interface{}
	HasValue bool
}

// NavigationTarget records the page or field the session should jump to.
type NavigationTarget struct {
	Target string
	Rule   string
	Action config.ActionType
}

// Warning describes a non-fatal runtime issue encountered during evaluation.
// Warnings are intended for the form author's debugging view, never shown to
// respondents.
type Warning struct {
	Rule      string
	Condition string
	Action    string
	Field     string
	Code      string
	Message   string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: rule %s: %s", w.Code, w.Rule, w.Message)
}

// Result is the outcome of one evaluation pass.
type Result struct {
	States     map[string]FieldState
	Navigation *NavigationTarget
	Warnings   []Warning
}
