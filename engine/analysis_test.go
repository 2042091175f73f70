package engine

import (
	"strings"
	"testing"

	"github.com/TarikAI/RevoForms-sub004/config"
)

func TestAnalyzeRulesResolvesDependencies(t *testing.T) {
	cfg := &config.Config{
		ID: "quote",
		Fields: []config.FieldConfig{
			{ID: "country", Type: config.FieldTypeSelect},
			{ID: "price", Type: config.FieldTypeNumber},
			{ID: "quantity", Type: config.FieldTypeNumber},
			{ID: "total", Type: config.FieldTypeNumber},
			{ID: "summary_page", Type: config.FieldTypePage},
		},
		Rules: []config.RuleConfig{{
			ID:   "quote_total",
			Name: "Quote total",
			Groups: []config.ConditionGroupConfig{{
				ID: "g1",
				Conditions: []config.ConditionConfig{
					{ID: "c1", Field: "country", Operator: config.OperatorIsNotEmpty},
				},
			}},
			Actions: []config.ActionConfig{
				{ID: "a1", Type: config.ActionCalculate, Target: "total", Expression: "price * quantity"},
				{ID: "a2", Type: config.ActionSkipTo, Target: "summary_page"},
			},
		}},
	}

	reports, err := AnalyzeRules(cfg)
	if err != nil {
		t.Fatalf("AnalyzeRules: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}

	report := reports[0]
	if len(report.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", report.Errors)
	}
	if report.Trigger != config.TriggerOnChange {
		t.Fatalf("trigger = %s, want default on_change", report.Trigger)
	}
	if got, want := len(report.Dependencies), 3; got != want {
		t.Fatalf("dependency count = %d, want %d", got, want)
	}

	byField := make(map[string]DependencyReport, len(report.Dependencies))
	for _, dep := range report.Dependencies {
		byField[dep.Field] = dep
	}
	if dep := byField["country"]; !dep.Resolved || !dep.InConditions || dep.InExpressions {
		t.Fatalf("country dependency = %+v", dep)
	}
	if dep := byField["price"]; !dep.Resolved || dep.InConditions || !dep.InExpressions {
		t.Fatalf("price dependency = %+v", dep)
	}

	if got, want := report.Writes, "total"; len(report.Writes) != 1 || report.Writes[0] != want {
		t.Fatalf("writes = %v, want [%s]", got, want)
	}
	if len(report.Navigations) != 1 || report.Navigations[0] != "summary_page" {
		t.Fatalf("navigations = %v, want [summary_page]", report.Navigations)
	}
}

func TestAnalyzeRulesCollectsAllProblems(t *testing.T) {
	disabled := false
	cfg := &config.Config{
		Fields: []config.FieldConfig{
			{ID: "a", Type: config.FieldTypeNumber},
			{ID: "b", Type: config.FieldTypeNumber},
		},
		Rules: []config.RuleConfig{
			{
				ID: "dangling",
				Groups: []config.ConditionGroupConfig{{
					ID: "g1",
					Conditions: []config.ConditionConfig{
						{ID: "c1", Field: "missing", Operator: config.OperatorIsEmpty},
					},
				}},
				Actions: []config.ActionConfig{{ID: "a1", Type: config.ActionHide, Target: "a"}},
			},
			{
				ID:      "off",
				Enabled: &disabled,
				Actions: []config.ActionConfig{{ID: "a1", Type: config.ActionHide, Target: "b"}},
			},
			calcRule("healthy", "b", "a + 1"),
		},
	}

	reports, err := AnalyzeRules(cfg)
	if err != nil {
		t.Fatalf("AnalyzeRules: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected one report per rule, got %d", len(reports))
	}

	byID := make(map[string]RuleReport, len(reports))
	for _, report := range reports {
		byID[report.ID] = report
	}

	if report := byID["dangling"]; len(report.Errors) == 0 {
		t.Fatalf("dangling rule must carry an error")
	}
	if report := byID["off"]; report.Enabled {
		t.Fatalf("disabled rule must be reported as disabled")
	}
	if report := byID["healthy"]; len(report.Errors) != 0 {
		t.Fatalf("healthy rule carries errors: %v", report.Errors)
	}
}

func TestAnalyzeRulesAttachesCycleToParticipants(t *testing.T) {
	cfg := &config.Config{
		Fields: []config.FieldConfig{
			{ID: "a", Type: config.FieldTypeNumber},
			{ID: "b", Type: config.FieldTypeNumber},
			{ID: "c", Type: config.FieldTypeNumber},
		},
		Rules: []config.RuleConfig{
			calcRule("rule_a", "b", "a + 1"),
			calcRule("rule_b", "a", "b + 1"),
			calcRule("independent", "c", "1 + 1"),
		},
	}

	reports, err := AnalyzeRules(cfg)
	if err != nil {
		t.Fatalf("AnalyzeRules: %v", err)
	}

	byID := make(map[string]RuleReport, len(reports))
	for _, report := range reports {
		byID[report.ID] = report
	}

	for _, id := range []string{"rule_a", "rule_b"} {
		report := byID[id]
		if len(report.Errors) == 0 {
			t.Fatalf("%s must carry the cycle error", id)
		}
		if !strings.Contains(report.Errors[0], "cycle") {
			t.Fatalf("%s error = %q, want cycle mention", id, report.Errors[0])
		}
	}
	if report := byID["independent"]; len(report.Errors) != 0 {
		t.Fatalf("independent rule must stay clean, got %v", report.Errors)
	}
}
