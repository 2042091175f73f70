package engine

import (
	"fmt"

	"github.com/TarikAI/RevoForms-sub004/config"
)

// pass applies the actions of every rule whose conditions hold, in graph
// order, onto a fresh copy of the schema defaults. Restarting from defaults
// on every pass is what lets a rule's effect revert cleanly once its
// condition stops holding.
type pass struct {
	graph    *Graph
	snapshot Snapshot
	states   map[string]FieldState

	// hide and disable are sticky within a pass: the most restrictive
	// outcome wins for respondent-facing forms, regardless of rule order.
	hidden   map[string]struct{}
	disabled map[string]struct{}

	navigation *NavigationTarget
	warnings   []Warning
}

func newPass(g *Graph, working Snapshot) *pass {
	return &pass{
		graph:    g,
		snapshot: working,
		states:   g.fields.defaults(),
		hidden:   make(map[string]struct{}),
		disabled: make(map[string]struct{}),
	}
}

func (p *pass) run(rules []*compiledRule) {
	for _, rule := range rules {
		held, warnings := rule.evaluate(p.snapshot)
		p.warnings = append(p.warnings, warnings...)
		if !held {
			continue
		}
		for _, action := range rule.actions {
			p.apply(rule, action)
		}
	}
}

func (p *pass) apply(rule *compiledRule, action *compiledAction) {
	target := action.cfg.Target
	switch action.cfg.Type {
	case config.ActionShow:
		if _, locked := p.hidden[target]; locked {
			return
		}
		state := p.states[target]
		state.Visible = true
		p.states[target] = state
	case config.ActionHide:
		p.hidden[target] = struct{}{}
		state := p.states[target]
		state.Visible = false
		p.states[target] = state
	case config.ActionRequire:
		state := p.states[target]
		state.Required = true
		p.states[target] = state
	case config.ActionOptional:
		state := p.states[target]
		state.Required = false
		p.states[target] = state
	case config.ActionEnable:
		if _, locked := p.disabled[target]; locked {
			return
		}
		state := p.states[target]
		state.Enabled = true
		p.states[target] = state
	case config.ActionDisable:
		p.disabled[target] = struct{}{}
		state := p.states[target]
		state.Enabled = false
		p.states[target] = state
	case config.ActionSetValue:
		p.setValue(rule, action, action.cfg.Value)
	case config.ActionCalculate:
		result, code, message := action.expression.run(p.snapshot)
		if code != "" {
			p.warnings = append(p.warnings, Warning{
				Rule:    rule.id,
				Action:  action.cfg.ID,
				Field:   target,
				Code:    code,
				Message: message,
			})
			return
		}
		p.setValue(rule, action, result)
	case config.ActionSkipTo, config.ActionJumpTo:
		// Both address an absolute page or field target; the last
		// navigation action in graph order wins.
		p.navigation = &NavigationTarget{Target: target, Rule: rule.id, Action: action.cfg.Type}
	}
}

// setValue records a value instruction on the derived state and makes the
// value visible to downstream rules through the working snapshot. The
// source-of-truth store is never written by the engine; the rendering surface
// receives the value as part of the derived state.
func (p *pass) setValue(rule *compiledRule, action *compiledAction, value interface{}) {
	coerced, err := coerceFieldValue(action.target, value)
	if err != nil {
		p.warnings = append(p.warnings, Warning{
			Rule:    rule.id,
			Action:  action.cfg.ID,
			Field:   action.cfg.Target,
			Code:    warnActionInvalidValue,
			Message: fmt.Sprintf("value for field %s: %v", action.cfg.Target, err),
		})
		return
	}
	state := p.states[action.cfg.Target]
	state.Value = coerced
	state.HasValue = true
	p.states[action.cfg.Target] = state
	p.snapshot[action.cfg.Target] = coerced
}
