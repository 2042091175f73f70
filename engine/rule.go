package engine

import (
	"github.com/TarikAI/RevoForms-sub004/config"
)

type compiledGroup struct {
	cfg        config.ConditionGroupConfig
	conditions []*compiledCondition
	operator   config.LogicOperator
}

// evaluate folds the group's conditions with its logical operator,
// short-circuiting at the first decisive result.
func (g *compiledGroup) evaluate(snapshot Snapshot) (bool, []Warning) {
	var warnings []Warning
	if g.operator == config.LogicOr {
		for _, cond := range g.conditions {
			held, warning := cond.evaluate(snapshot)
			if warning != nil {
				warnings = append(warnings, *warning)
			}
			if held {
				return true, warnings
			}
		}
		return false, warnings
	}
	for _, cond := range g.conditions {
		held, warning := cond.evaluate(snapshot)
		if warning != nil {
			warnings = append(warnings, *warning)
		}
		if !held {
			return false, warnings
		}
	}
	return true, warnings
}

type compiledAction struct {
	cfg        config.ActionConfig
	target     *config.FieldConfig
	expression *compiledExpression
}

func (a *compiledAction) isNavigation() bool {
	return a.cfg.Type == config.ActionSkipTo || a.cfg.Type == config.ActionJumpTo
}

type compiledRule struct {
	id            string
	cfg           config.RuleConfig
	trigger       config.Trigger
	groups        []*compiledGroup
	groupOperator config.LogicOperator
	actions       []*compiledAction

	reads    []string
	readSet  map[string]struct{}
	writes   []string
	writeSet map[string]struct{}

	order      int
	downstream []*compiledRule
}

// evaluate folds the rule's condition groups with the group operator. A rule
// with zero groups is unconditionally true: this is the documented policy for
// always-on actions such as default value-setting.
func (r *compiledRule) evaluate(snapshot Snapshot) (bool, []Warning) {
	if len(r.groups) == 0 {
		return true, nil
	}

	var warnings []Warning
	if r.groupOperator == config.LogicOr {
		for _, group := range r.groups {
			held, groupWarnings := group.evaluate(snapshot)
			warnings = appendRuleWarnings(warnings, r.id, groupWarnings)
			if held {
				return true, warnings
			}
		}
		return false, warnings
	}
	for _, group := range r.groups {
		held, groupWarnings := group.evaluate(snapshot)
		warnings = appendRuleWarnings(warnings, r.id, groupWarnings)
		if !held {
			return false, warnings
		}
	}
	return true, warnings
}

func (r *compiledRule) readsField(id string) bool {
	_, ok := r.readSet[id]
	return ok
}

func appendRuleWarnings(dst []Warning, rule string, src []Warning) []Warning {
	for _, warning := range src {
		warning.Rule = rule
		dst = append(dst, warning)
	}
	return dst
}
