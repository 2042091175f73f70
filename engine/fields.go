package engine

import (
	"fmt"

	"github.com/TarikAI/RevoForms-sub004/config"
)

// fieldStore holds the validated field catalogue the graph compiles against.
// It is read-only after construction and shared by every session.
type fieldStore struct {
	fields map[string]*config.FieldConfig
	order  []string
}

func newFieldStore(cfgs []config.FieldConfig) (*fieldStore, error) {
	store := &fieldStore{fields: make(map[string]*config.FieldConfig, len(cfgs))}
	for i := range cfgs {
		cfg := cfgs[i]
		if cfg.ID == "" {
			return nil, fmt.Errorf("field id must not be empty")
		}
		if _, ok := store.fields[cfg.ID]; ok {
			return nil, fmt.Errorf("duplicate field id %q", cfg.ID)
		}
		if cfg.Type == "" {
			return nil, fmt.Errorf("field %s missing type", cfg.ID)
		}
		store.fields[cfg.ID] = &cfg
		store.order = append(store.order, cfg.ID)
	}
	return store, nil
}

func (s *fieldStore) get(id string) (*config.FieldConfig, bool) {
	field, ok := s.fields[id]
	return field, ok
}

func (s *fieldStore) ids() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// defaults builds the derived state every pass starts from: visible and
// enabled, required per schema, value unset.
func (s *fieldStore) defaults() map[string]FieldState {
	states := make(map[string]FieldState, len(s.fields))
	for id, field := range s.fields {
		states[id] = FieldState{
			Visible:  true,
			Required: field.Required,
			Enabled:  true,
		}
	}
	return states
}

// hasOption reports whether the field declares an option with the given id.
func hasOption(field *config.FieldConfig, option string) bool {
	for _, opt := range field.Options {
		if opt.ID == option {
			return true
		}
	}
	return false
}

// isChoiceField reports whether the field carries a fixed option set.
func isChoiceField(t config.FieldType) bool {
	switch t {
	case config.FieldTypeSelect, config.FieldTypeMultiSelect, config.FieldTypeRadio, config.FieldTypeCheckbox:
		return true
	default:
		return false
	}
}
