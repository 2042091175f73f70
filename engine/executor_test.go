package engine

import (
	"testing"

	"github.com/TarikAI/RevoForms-sub004/config"
)

func mustCompile(t *testing.T, fields []config.FieldConfig, rules []config.RuleConfig) *Graph {
	t.Helper()
	graph, err := Compile(fields, rules)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return graph
}

func conditionRule(id string, trigger config.Trigger, cond config.ConditionConfig, actions ...config.ActionConfig) config.RuleConfig {
	return config.RuleConfig{
		ID:      id,
		Trigger: trigger,
		Groups: []config.ConditionGroupConfig{{
			ID:         id + "_g1",
			Conditions: []config.ConditionConfig{cond},
		}},
		Actions: actions,
	}
}

func unconditionalRule(id string, trigger config.Trigger, actions ...config.ActionConfig) config.RuleConfig {
	return config.RuleConfig{ID: id, Trigger: trigger, Actions: actions}
}

func TestHideWinsOverShowRegardlessOfOrder(t *testing.T) {
	fields := []config.FieldConfig{
		{ID: "target", Type: config.FieldTypeText},
	}

	variants := [][]config.RuleConfig{
		{
			unconditionalRule("a_show", config.TriggerImmediate, config.ActionConfig{ID: "a1", Type: config.ActionShow, Target: "target"}),
			unconditionalRule("b_hide", config.TriggerImmediate, config.ActionConfig{ID: "a1", Type: config.ActionHide, Target: "target"}),
		},
		{
			unconditionalRule("a_hide", config.TriggerImmediate, config.ActionConfig{ID: "a1", Type: config.ActionHide, Target: "target"}),
			unconditionalRule("b_show", config.TriggerImmediate, config.ActionConfig{ID: "a1", Type: config.ActionShow, Target: "target"}),
		},
	}

	for _, rules := range variants {
		graph := mustCompile(t, fields, rules)
		result := graph.Evaluate(LoadEvent(), nil)
		if result.States["target"].Visible {
			t.Fatalf("target must stay hidden when any rule hides it")
		}
	}
}

func TestDisableWinsOverEnable(t *testing.T) {
	fields := []config.FieldConfig{{ID: "target", Type: config.FieldTypeText}}
	rules := []config.RuleConfig{
		unconditionalRule("a_disable", config.TriggerImmediate, config.ActionConfig{ID: "a1", Type: config.ActionDisable, Target: "target"}),
		unconditionalRule("b_enable", config.TriggerImmediate, config.ActionConfig{ID: "a1", Type: config.ActionEnable, Target: "target"}),
	}

	graph := mustCompile(t, fields, rules)
	result := graph.Evaluate(LoadEvent(), nil)
	if result.States["target"].Enabled {
		t.Fatalf("target must stay disabled when any rule disables it")
	}
}

func TestEffectsRevertWhenConditionStopsHolding(t *testing.T) {
	fields := []config.FieldConfig{
		{ID: "country", Type: config.FieldTypeSelect, Options: []config.OptionConfig{{ID: "us"}, {ID: "uk"}}},
		{ID: "state", Type: config.FieldTypeText},
	}
	rules := []config.RuleConfig{
		conditionRule("hide_state", config.TriggerOnChange,
			config.ConditionConfig{ID: "c1", Field: "country", Operator: config.OperatorNotEquals, Value: "us"},
			config.ActionConfig{ID: "a1", Type: config.ActionHide, Target: "state"},
			config.ActionConfig{ID: "a2", Type: config.ActionOptional, Target: "state"},
		),
		conditionRule("require_state", config.TriggerOnChange,
			config.ConditionConfig{ID: "c1", Field: "country", Operator: config.OperatorEquals, Value: "us"},
			config.ActionConfig{ID: "a1", Type: config.ActionRequire, Target: "state"},
		),
	}
	graph := mustCompile(t, fields, rules)

	result := graph.Evaluate(ChangeEvent("country"), Snapshot{"country": "uk"})
	if state := result.States["state"]; state.Visible || state.Required {
		t.Fatalf("uk: state = %+v, want hidden and optional", state)
	}

	// Switching back re-evaluates from schema defaults, the hide reverts.
	result = graph.Evaluate(ChangeEvent("country"), Snapshot{"country": "us"})
	if state := result.States["state"]; !state.Visible || !state.Required {
		t.Fatalf("us: state = %+v, want visible and required", state)
	}
}

func TestSetValueCoercesToFieldType(t *testing.T) {
	fields := []config.FieldConfig{
		{ID: "trigger_field", Type: config.FieldTypeCheckbox},
		{ID: "quantity", Type: config.FieldTypeNumber},
	}
	rules := []config.RuleConfig{
		conditionRule("preset", config.TriggerOnChange,
			config.ConditionConfig{ID: "c1", Field: "trigger_field", Operator: config.OperatorIsSelected},
			config.ActionConfig{ID: "a1", Type: config.ActionSetValue, Target: "quantity", Value: "5"},
		),
	}
	graph := mustCompile(t, fields, rules)

	result := graph.Evaluate(ChangeEvent("trigger_field"), Snapshot{"trigger_field": true})
	state := result.States["quantity"]
	if !state.HasValue {
		t.Fatalf("quantity must carry a value instruction")
	}
	if got, want := state.Value, 5.0; got != want {
		t.Fatalf("quantity value = %v (%T), want %v", got, got, want)
	}
}

func TestSetValueInvalidValueWarns(t *testing.T) {
	fields := []config.FieldConfig{
		{ID: "trigger_field", Type: config.FieldTypeCheckbox},
		{ID: "quantity", Type: config.FieldTypeNumber},
	}
	rules := []config.RuleConfig{
		conditionRule("preset", config.TriggerOnChange,
			config.ConditionConfig{ID: "c1", Field: "trigger_field", Operator: config.OperatorIsSelected},
			config.ActionConfig{ID: "a1", Type: config.ActionSetValue, Target: "quantity", Value: "not a number"},
		),
	}
	graph := mustCompile(t, fields, rules)

	result := graph.Evaluate(ChangeEvent("trigger_field"), Snapshot{"trigger_field": true})
	if result.States["quantity"].HasValue {
		t.Fatalf("quantity must stay unset on coercion failure")
	}
	if !hasWarningCode(result.Warnings, warnActionInvalidValue) {
		t.Fatalf("expected %s warning, got %v", warnActionInvalidValue, result.Warnings)
	}
}

func TestSetValueRejectsUndeclaredOption(t *testing.T) {
	fields := []config.FieldConfig{
		{ID: "trigger_field", Type: config.FieldTypeCheckbox},
		{ID: "plan", Type: config.FieldTypeSelect, Options: []config.OptionConfig{{ID: "basic"}, {ID: "pro"}}},
	}
	rules := []config.RuleConfig{
		conditionRule("upgrade", config.TriggerOnChange,
			config.ConditionConfig{ID: "c1", Field: "trigger_field", Operator: config.OperatorIsSelected},
			config.ActionConfig{ID: "a1", Type: config.ActionSetValue, Target: "plan", Value: "enterprise"},
		),
	}
	graph := mustCompile(t, fields, rules)

	result := graph.Evaluate(ChangeEvent("trigger_field"), Snapshot{"trigger_field": true})
	if result.States["plan"].HasValue {
		t.Fatalf("plan must stay unset for an undeclared option")
	}
	if !hasWarningCode(result.Warnings, warnActionInvalidValue) {
		t.Fatalf("expected %s warning, got %v", warnActionInvalidValue, result.Warnings)
	}
}

func TestCalculateProducesValue(t *testing.T) {
	fields := numberFields("price", "quantity", "total")
	rules := []config.RuleConfig{calcRule("total_rule", "total", "price * quantity")}
	graph := mustCompile(t, fields, rules)

	snapshot := Snapshot{"price": 10.0, "quantity": 3.0}
	result := graph.Evaluate(ChangeEvent("price"), snapshot)

	state := result.States["total"]
	if !state.HasValue {
		t.Fatalf("total must carry a calculated value")
	}
	if got, want := state.Value, 30.0; got != want {
		t.Fatalf("total = %v, want %v", got, want)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", result.Warnings)
	}

	// The caller's snapshot stays untouched.
	if _, ok := snapshot["total"]; ok {
		t.Fatalf("input snapshot must not be mutated")
	}
}

func TestCalculateMissingOperandWarnsAndSkips(t *testing.T) {
	fields := numberFields("price", "quantity", "total")
	rules := []config.RuleConfig{calcRule("total_rule", "total", "price * quantity")}
	graph := mustCompile(t, fields, rules)

	result := graph.Evaluate(ChangeEvent("price"), Snapshot{"price": 10.0})
	if result.States["total"].HasValue {
		t.Fatalf("total must stay unset while an operand is missing")
	}
	if !hasWarningCode(result.Warnings, warnCalcMissingOperand) {
		t.Fatalf("expected %s warning, got %v", warnCalcMissingOperand, result.Warnings)
	}
}

func TestCalculateDivideByZeroWarns(t *testing.T) {
	fields := numberFields("amount", "count", "average")
	rules := []config.RuleConfig{calcRule("avg_rule", "average", "amount / count")}
	graph := mustCompile(t, fields, rules)

	result := graph.Evaluate(ChangeEvent("count"), Snapshot{"amount": 10.0, "count": 0.0})
	if result.States["average"].HasValue {
		t.Fatalf("average must stay unset on division by zero")
	}
	if !hasWarningCode(result.Warnings, warnCalcDivideByZero) {
		t.Fatalf("expected %s warning, got %v", warnCalcDivideByZero, result.Warnings)
	}
}

func TestNavigationFollowsTheFiringRules(t *testing.T) {
	fields := []config.FieldConfig{
		{ID: "score", Type: config.FieldTypeNumber},
		{ID: "page3", Type: config.FieldTypePage},
		{ID: "page5", Type: config.FieldTypePage},
	}
	rules := []config.RuleConfig{
		conditionRule("a_skip", config.TriggerOnChange,
			config.ConditionConfig{ID: "c1", Field: "score", Operator: config.OperatorGreaterThan, Value: 0},
			config.ActionConfig{ID: "a1", Type: config.ActionSkipTo, Target: "page3"},
		),
		conditionRule("b_jump", config.TriggerOnChange,
			config.ConditionConfig{ID: "c1", Field: "score", Operator: config.OperatorGreaterThan, Value: 10},
			config.ActionConfig{ID: "a1", Type: config.ActionJumpTo, Target: "page5"},
		),
	}
	graph := mustCompile(t, fields, rules)

	result := graph.Evaluate(ChangeEvent("score"), Snapshot{"score": 50.0})
	if result.Navigation == nil {
		t.Fatalf("expected a navigation target")
	}
	if result.Navigation.Target != "page5" || result.Navigation.Action != config.ActionJumpTo {
		t.Fatalf("navigation = %+v, want jump to page5", result.Navigation)
	}

	// Below the jump rule's threshold only the skip fires.
	result = graph.Evaluate(ChangeEvent("score"), Snapshot{"score": 5.0})
	if result.Navigation == nil || result.Navigation.Target != "page3" {
		t.Fatalf("navigation = %+v, want skip to page3", result.Navigation)
	}
}

func TestLastNavigationInGraphOrderWins(t *testing.T) {
	fields := []config.FieldConfig{
		{ID: "age", Type: config.FieldTypeNumber},
		{ID: "page3", Type: config.FieldTypePage},
		{ID: "page5", Type: config.FieldTypePage},
	}
	rules := []config.RuleConfig{
		conditionRule("a_route", config.TriggerOnSubmit,
			config.ConditionConfig{ID: "c1", Field: "age", Operator: config.OperatorGreaterThan, Value: 0},
			config.ActionConfig{ID: "a1", Type: config.ActionJumpTo, Target: "page3"},
		),
		conditionRule("b_route", config.TriggerOnSubmit,
			config.ConditionConfig{ID: "c1", Field: "age", Operator: config.OperatorGreaterThan, Value: 0},
			config.ActionConfig{ID: "a1", Type: config.ActionJumpTo, Target: "page5"},
		),
	}
	graph := mustCompile(t, fields, rules)

	result := graph.Evaluate(SubmitEvent(), Snapshot{"age": 30.0})
	if result.Navigation == nil || result.Navigation.Target != "page5" {
		t.Fatalf("navigation = %+v, want jump to page5", result.Navigation)
	}
	if result.Navigation.Rule != "b_route" {
		t.Fatalf("navigation rule = %q, want b_route", result.Navigation.Rule)
	}
}

func hasWarningCode(warnings []Warning, code string) bool {
	for _, warning := range warnings {
		if warning.Code == code {
			return true
		}
	}
	return false
}
