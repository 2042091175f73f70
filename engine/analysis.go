package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/TarikAI/RevoForms-sub004/config"
)

// DependencyReport describes one field a rule reads and where the reference
// comes from.
type DependencyReport struct {
	Field         string
	Type          config.FieldType
	InConditions  bool
	InExpressions bool
	Resolved      bool
	Source        config.ModuleReference
}

// RuleReport is the author-facing analysis of a single rule: its resolved
// dependencies, the fields it writes, and any compile problems. The form
// builder's debugging view renders these reports.
type RuleReport struct {
	ID           string
	Name         string
	Trigger      config.Trigger
	Enabled      bool
	Dependencies []DependencyReport
	Writes       []string
	Navigations  []string
	Errors       []string
	Source       config.ModuleReference
}

type dependencyMeta struct {
	field      *config.FieldConfig
	conditions bool
	expression bool
}

// AnalyzeRules inspects every rule of a form definition, including disabled
// ones, without aborting on the first problem. Cycle errors are attached to
// each participating rule's report.
func AnalyzeRules(cfg *config.Config) ([]RuleReport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	store, err := newFieldStore(cfg.Fields)
	if err != nil {
		return nil, err
	}

	reports := make([]RuleReport, 0, len(cfg.Rules))
	compiled := make([]*compiledRule, 0, len(cfg.Rules))
	reportIndex := make(map[string]int, len(cfg.Rules))

	for _, ruleCfg := range cfg.Rules {
		report := RuleReport{
			ID:      ruleCfg.ID,
			Name:    ruleCfg.Name,
			Trigger: ruleCfg.EffectiveTrigger(),
			Enabled: ruleCfg.IsEnabled(),
			Source:  ruleCfg.Source,
		}

		meta := collectDependencies(ruleCfg, store)
		report.Dependencies = buildDependencyReport(meta)

		for _, action := range ruleCfg.Actions {
			if action.Type == config.ActionSkipTo || action.Type == config.ActionJumpTo {
				report.Navigations = append(report.Navigations, action.Target)
			} else {
				report.Writes = append(report.Writes, action.Target)
			}
		}
		sort.Strings(report.Writes)

		rule, buildErr := prepareRule(ruleCfg, store)
		if buildErr != nil {
			report.Errors = append(report.Errors, buildErr.Error())
		} else if ruleCfg.IsEnabled() {
			compiled = append(compiled, rule)
		}

		reportIndex[ruleCfg.ID] = len(reports)
		reports = append(reports, report)
	}

	if _, orderErr := orderRules(compiled); orderErr != nil {
		var cycle CycleError
		if errors.As(orderErr, &cycle) {
			for _, id := range cycle.Rules {
				if idx, ok := reportIndex[id]; ok {
					reports[idx].Errors = append(reports[idx].Errors, cycle.Error())
				}
			}
		} else {
			return nil, orderErr
		}
	}

	return reports, nil
}

func collectDependencies(ruleCfg config.RuleConfig, store *fieldStore) map[string]*dependencyMeta {
	meta := make(map[string]*dependencyMeta)
	touch := func(id string) *dependencyMeta {
		entry, ok := meta[id]
		if !ok {
			entry = &dependencyMeta{}
			if field, resolved := store.get(id); resolved {
				entry.field = field
			}
			meta[id] = entry
		}
		return entry
	}

	for _, group := range ruleCfg.Groups {
		for _, cond := range group.Conditions {
			touch(cond.Field).conditions = true
		}
	}
	for _, action := range ruleCfg.Actions {
		if action.Type != config.ActionCalculate {
			continue
		}
		expression, err := compileExpression(action.Expression)
		if err != nil {
			continue
		}
		for _, operand := range expression.operands {
			touch(operand).expression = true
		}
	}
	return meta
}

func buildDependencyReport(meta map[string]*dependencyMeta) []DependencyReport {
	reports := make([]DependencyReport, 0, len(meta))
	for id, entry := range meta {
		if entry == nil {
			continue
		}
		dep := DependencyReport{
			Field:         id,
			InConditions:  entry.conditions,
			InExpressions: entry.expression,
		}
		if entry.field != nil {
			dep.Type = entry.field.Type
			dep.Resolved = true
			dep.Source = entry.field.Source
		}
		reports = append(reports, dep)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Field < reports[j].Field })
	return reports
}
