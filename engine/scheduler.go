package engine

import (
	"sort"

	"github.com/TarikAI/RevoForms-sub004/config"
)

// Evaluate processes one trigger event against a value snapshot. It runs the
// rules the event selects, then one full re-evaluation of every enabled rule
// so the returned derived state is a fixed point for this trigger. Evaluate
// is a pure function of (graph, event, snapshot): it never fails and holds no
// state between calls.
func (g *Graph) Evaluate(event Event, snapshot Snapshot) Result {
	working := Snapshot{}
	if snapshot != nil {
		working = snapshot.clone()
	}

	batch := newPass(g, working)
	batch.run(g.selectRules(event))

	// The batch may have produced values via set_value/calculate; the full
	// pass re-reads them through the shared working snapshot.
	full := newPass(g, working)
	full.run(g.rules)

	return Result{
		States:     full.states,
		Navigation: batch.navigation,
		Warnings:   dedupeWarnings(append(batch.warnings, full.warnings...)),
	}
}

// selectRules picks the rules a trigger event makes eligible, in graph order.
func (g *Graph) selectRules(event Event) []*compiledRule {
	switch event.Kind {
	case EventLoad:
		return g.rulesWithTrigger(config.TriggerImmediate)
	case EventChange:
		return g.changeClosure(event.Field)
	case EventBlur:
		// Blur rules are terminal: no downstream cascade.
		var selected []*compiledRule
		for _, rule := range g.rules {
			if rule.trigger == config.TriggerOnBlur && rule.readsField(event.Field) {
				selected = append(selected, rule)
			}
		}
		return selected
	case EventSubmit:
		return g.rulesWithTrigger(config.TriggerOnSubmit)
	default:
		return nil
	}
}

func (g *Graph) rulesWithTrigger(trigger config.Trigger) []*compiledRule {
	var selected []*compiledRule
	for _, rule := range g.rules {
		if rule.trigger == trigger {
			selected = append(selected, rule)
		}
	}
	return selected
}

// changeClosure selects every on_change rule reading the changed field plus,
// transitively, every rule downstream of one: an upstream set_value or
// calculate may have changed their inputs as well.
func (g *Graph) changeClosure(field string) []*compiledRule {
	seen := make(map[*compiledRule]struct{})
	var queue []*compiledRule
	for _, rule := range g.rules {
		if rule.trigger == config.TriggerOnChange && rule.readsField(field) {
			seen[rule] = struct{}{}
			queue = append(queue, rule)
		}
	}
	for len(queue) > 0 {
		rule := queue[0]
		queue = queue[1:]
		for _, succ := range rule.downstream {
			if _, ok := seen[succ]; ok {
				continue
			}
			seen[succ] = struct{}{}
			queue = append(queue, succ)
		}
	}

	selected := make([]*compiledRule, 0, len(seen))
	for rule := range seen {
		selected = append(selected, rule)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].order < selected[j].order })
	return selected
}

func dedupeWarnings(warnings []Warning) []Warning {
	if len(warnings) == 0 {
		return nil
	}
	seen := make(map[Warning]struct{}, len(warnings))
	out := make([]Warning, 0, len(warnings))
	for _, warning := range warnings {
		if _, ok := seen[warning]; ok {
			continue
		}
		seen[warning] = struct{}{}
		out = append(out, warning)
	}
	return out
}
