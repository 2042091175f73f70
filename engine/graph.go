package engine

import (
	"fmt"
	"sort"

	"github.com/TarikAI/RevoForms-sub004/config"
)

// Graph is the compiled, read-only form of a rule set: every field and rule
// reference resolved, every calculation expression compiled, and the rules
// arranged so that no rule reads a value before the rule producing it has
// run. A Graph is built once per rule-set version and may be shared by any
// number of concurrent sessions because it is never mutated after Compile.
type Graph struct {
	formID string
	fields *fieldStore
	rules  []*compiledRule
	byID   map[string]*compiledRule
}

// Compile validates the rule set against the field schema and builds the
// dependency-ordered graph. Disabled rules are excluded entirely. Dangling
// field references, empty condition groups, malformed calculation expressions
// and dependency cycles are compile-time errors.
func Compile(fields []config.FieldConfig, rules []config.RuleConfig) (*Graph, error) {
	return compile("", fields, rules)
}

// CompileConfig compiles the rule set of a loaded form definition.
func CompileConfig(cfg *config.Config) (*Graph, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	return compile(cfg.ID, cfg.Fields, cfg.Rules)
}

func compile(formID string, fields []config.FieldConfig, rules []config.RuleConfig) (*Graph, error) {
	store, err := newFieldStore(fields)
	if err != nil {
		return nil, err
	}

	compiled := make([]*compiledRule, 0, len(rules))
	byID := make(map[string]*compiledRule, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, ruleCfg := range rules {
		if ruleCfg.ID == "" {
			return nil, fmt.Errorf("rule id must not be empty")
		}
		// Disabled rules still reserve their id.
		if _, exists := seen[ruleCfg.ID]; exists {
			return nil, fmt.Errorf("duplicate rule id %q", ruleCfg.ID)
		}
		seen[ruleCfg.ID] = struct{}{}
		if !ruleCfg.IsEnabled() {
			continue
		}
		rule, err := prepareRule(ruleCfg, store)
		if err != nil {
			return nil, err
		}
		byID[rule.id] = rule
		compiled = append(compiled, rule)
	}

	ordered, err := orderRules(compiled)
	if err != nil {
		return nil, err
	}
	for idx, rule := range ordered {
		rule.order = idx
	}
	linkDownstream(ordered)

	return &Graph{formID: formID, fields: store, rules: ordered, byID: byID}, nil
}

// prepareRule resolves a single rule against the schema and derives its read
// and write sets. The read set covers every condition field plus the fields
// referenced inside calculation expressions; the write set covers every
// action target except navigation targets, which address a page rather than
// mutating it.
func prepareRule(cfg config.RuleConfig, store *fieldStore) (*compiledRule, error) {
	rule := &compiledRule{
		id:            cfg.ID,
		cfg:           cfg,
		trigger:       cfg.EffectiveTrigger(),
		groupOperator: cfg.GroupOperator,
		readSet:       make(map[string]struct{}),
		writeSet:      make(map[string]struct{}),
	}
	if rule.groupOperator == "" {
		rule.groupOperator = config.LogicAnd
	}

	for _, groupCfg := range cfg.Groups {
		if len(groupCfg.Conditions) == 0 {
			return nil, EmptyGroupError{Rule: cfg.ID, Group: groupCfg.ID}
		}
		group := &compiledGroup{cfg: groupCfg, operator: groupCfg.Operator}
		if group.operator == "" {
			group.operator = config.LogicAnd
		}
		for _, condCfg := range groupCfg.Conditions {
			field, ok := store.get(condCfg.Field)
			if !ok {
				return nil, DanglingFieldError{Rule: cfg.ID, Field: condCfg.Field}
			}
			group.conditions = append(group.conditions, &compiledCondition{cfg: condCfg, field: field})
			rule.readSet[condCfg.Field] = struct{}{}
		}
		rule.groups = append(rule.groups, group)
	}

	for _, actionCfg := range cfg.Actions {
		target, ok := store.get(actionCfg.Target)
		if !ok {
			return nil, DanglingFieldError{Rule: cfg.ID, Field: actionCfg.Target}
		}
		action := &compiledAction{cfg: actionCfg, target: target}
		if actionCfg.Type == config.ActionCalculate {
			expression, err := compileExpression(actionCfg.Expression)
			if err != nil {
				return nil, ExpressionError{Rule: cfg.ID, Action: actionCfg.ID, Err: err}
			}
			for _, operand := range expression.operands {
				if _, ok := store.get(operand); !ok {
					return nil, DanglingFieldError{Rule: cfg.ID, Field: operand}
				}
				rule.readSet[operand] = struct{}{}
			}
			action.expression = expression
		}
		if !action.isNavigation() {
			rule.writeSet[actionCfg.Target] = struct{}{}
		}
		rule.actions = append(rule.actions, action)
	}

	rule.reads = sortedKeys(rule.readSet)
	rule.writes = sortedKeys(rule.writeSet)
	return rule, nil
}

// orderRules performs a stable topological sort: rule A precedes rule B when
// A writes a field B reads. Rules without ordering constraints between them
// are sorted by rule id so conflict resolution stays reproducible.
func orderRules(rules []*compiledRule) ([]*compiledRule, error) {
	writers := make(map[string][]*compiledRule)
	for _, rule := range rules {
		for _, field := range rule.writes {
			writers[field] = append(writers[field], rule)
		}
	}

	inDegree := make(map[*compiledRule]int, len(rules))
	edges := make(map[*compiledRule][]*compiledRule, len(rules))
	for _, rule := range rules {
		for _, field := range rule.reads {
			for _, writer := range writers[field] {
				if writer == rule {
					continue
				}
				edges[writer] = append(edges[writer], rule)
				inDegree[rule]++
			}
		}
	}

	queue := make([]*compiledRule, 0, len(rules))
	for _, rule := range rules {
		if inDegree[rule] == 0 {
			queue = append(queue, rule)
		}
	}
	sortByID(queue)

	ordered := make([]*compiledRule, 0, len(rules))
	for len(queue) > 0 {
		rule := queue[0]
		queue = queue[1:]
		ordered = append(ordered, rule)
		for _, succ := range edges[rule] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
		sortByID(queue)
	}

	if len(ordered) != len(rules) {
		return nil, CycleError{Rules: cyclicRules(rules, edges)}
	}
	return ordered, nil
}

// cyclicRules returns the ids of the rules that actually sit on a dependency
// cycle, so rules that are merely downstream of one are not blamed. Tarjan's
// algorithm; components of size one cannot be cyclic because self-edges are
// never recorded.
func cyclicRules(rules []*compiledRule, edges map[*compiledRule][]*compiledRule) []string {
	index := make(map[*compiledRule]int, len(rules))
	low := make(map[*compiledRule]int, len(rules))
	onStack := make(map[*compiledRule]bool, len(rules))
	var stack []*compiledRule
	next := 0
	var cyclic []string

	var connect func(rule *compiledRule)
	connect = func(rule *compiledRule) {
		index[rule] = next
		low[rule] = next
		next++
		stack = append(stack, rule)
		onStack[rule] = true

		for _, succ := range edges[rule] {
			if _, visited := index[succ]; !visited {
				connect(succ)
				if low[succ] < low[rule] {
					low[rule] = low[succ]
				}
			} else if onStack[succ] && index[succ] < low[rule] {
				low[rule] = index[succ]
			}
		}

		if low[rule] != index[rule] {
			return
		}
		var component []*compiledRule
		for {
			member := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[member] = false
			component = append(component, member)
			if member == rule {
				break
			}
		}
		if len(component) > 1 {
			for _, member := range component {
				cyclic = append(cyclic, member.id)
			}
		}
	}

	for _, rule := range rules {
		if _, visited := index[rule]; !visited {
			connect(rule)
		}
	}
	sort.Strings(cyclic)
	return cyclic
}

// linkDownstream records, per rule, the rules that read what it writes. The
// scheduler uses this to cascade change events through value-producing rules.
func linkDownstream(ordered []*compiledRule) {
	readers := make(map[string][]*compiledRule)
	for _, rule := range ordered {
		for _, field := range rule.reads {
			readers[field] = append(readers[field], rule)
		}
	}
	for _, rule := range ordered {
		seen := make(map[*compiledRule]struct{})
		for _, field := range rule.writes {
			for _, reader := range readers[field] {
				if reader == rule {
					continue
				}
				if _, ok := seen[reader]; ok {
					continue
				}
				seen[reader] = struct{}{}
				rule.downstream = append(rule.downstream, reader)
			}
		}
		sortByID(rule.downstream)
	}
}

// FormID returns the id of the form this graph was compiled for.
func (g *Graph) FormID() string { return g.formID }

// RuleIDs returns the rule ids in graph order.
func (g *Graph) RuleIDs() []string {
	out := make([]string, len(g.rules))
	for i, rule := range g.rules {
		out[i] = rule.id
	}
	return out
}

// FieldIDs returns the schema field ids in declaration order.
func (g *Graph) FieldIDs() []string {
	return g.fields.ids()
}

// ReadSet returns the sorted read set of a rule, if present in the graph.
func (g *Graph) ReadSet(rule string) ([]string, bool) {
	r, ok := g.byID[rule]
	if !ok {
		return nil, false
	}
	out := make([]string, len(r.reads))
	copy(out, r.reads)
	return out, true
}

// WriteSet returns the sorted write set of a rule, if present in the graph.
func (g *Graph) WriteSet(rule string) ([]string, bool) {
	r, ok := g.byID[rule]
	if !ok {
		return nil, false
	}
	out := make([]string, len(r.writes))
	copy(out, r.writes)
	return out, true
}

func sortByID(rules []*compiledRule) {
	sort.Slice(rules, func(i, j int) bool { return rules[i].id < rules[j].id })
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
