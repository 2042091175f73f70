package engine

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TarikAI/RevoForms-sub004/telemetry"
)

// Session binds one respondent's form-filling state to a compiled graph. It
// owns the entered-value snapshot and is single-threaded: each event is
// processed to completion before the next one is accepted. Any number of
// sessions may share the same graph.
type Session struct {
	id        string
	graph     *Graph
	logger    zerolog.Logger
	collector telemetry.Collector
	values    Snapshot
}

// NewSession creates a session for the given compiled graph.
func NewSession(graph *Graph, logger zerolog.Logger, collector telemetry.Collector) (*Session, error) {
	if graph == nil {
		return nil, errors.New("graph must not be nil")
	}
	if collector == nil {
		collector = telemetry.Noop()
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		graph:     graph,
		logger:    logger.With().Str("component", "session").Str("session", id).Logger(),
		collector: collector,
		values:    Snapshot{},
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Values returns a copy of the entered-value snapshot.
func (s *Session) Values() Snapshot {
	return s.values.clone()
}

// OnLoad runs the session-start evaluation: every rule with an immediate
// trigger fires in graph order.
func (s *Session) OnLoad() Result {
	return s.dispatch(LoadEvent())
}

// OnChange stores the entered value and evaluates the change trigger.
func (s *Session) OnChange(field string, value interface{}) Result {
	s.values[field] = value
	return s.dispatch(ChangeEvent(field))
}

// OnBlur evaluates the blur trigger for the given field.
func (s *Session) OnBlur(field string) Result {
	return s.dispatch(BlurEvent(field))
}

// OnSubmit evaluates the submit trigger. A navigation action fired here
// overrides the form's normal next-page progression.
func (s *Session) OnSubmit() Result {
	return s.dispatch(SubmitEvent())
}

func (s *Session) dispatch(event Event) Result {
	result := s.graph.Evaluate(event, s.values)

	trigger := string(event.Kind)
	s.collector.IncEvaluation(s.graph.formID, trigger)
	s.collector.IncRuleWarnings(s.graph.formID, trigger, uint64(len(result.Warnings)))

	entry := s.logger.Trace().Str("event", trigger)
	if event.Field != "" {
		entry = entry.Str("field", event.Field)
	}
	if result.Navigation != nil {
		entry = entry.Str("navigation", result.Navigation.Target)
	}
	entry.Int("warnings", len(result.Warnings)).Msg("evaluation completed")

	for _, warning := range result.Warnings {
		s.logger.Debug().
			Str("rule", warning.Rule).
			Str("field", warning.Field).
			Str("code", warning.Code).
			Msg(warning.Message)
	}
	return result
}
