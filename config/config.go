package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// FieldType describes the input widget backing a form field.
type FieldType string

const (
	// FieldTypeText represents single-line text input.
	FieldTypeText FieldType = "text"
	// FieldTypeTextarea represents multi-line text input.
	FieldTypeTextarea FieldType = "textarea"
	// FieldTypeNumber represents numeric input.
	FieldTypeNumber FieldType = "number"
	// FieldTypeSelect represents a single-choice dropdown.
	FieldTypeSelect FieldType = "select"
	// FieldTypeMultiSelect represents a multi-choice list.
	FieldTypeMultiSelect FieldType = "multiselect"
	// FieldTypeCheckbox represents a boolean checkbox.
	FieldTypeCheckbox FieldType = "checkbox"
	// FieldTypeRadio represents a single-choice radio group.
	FieldTypeRadio FieldType = "radio"
	// FieldTypeDate represents calendar date input.
	FieldTypeDate FieldType = "date"
	// FieldTypeEmail represents email text input.
	FieldTypeEmail FieldType = "email"
	// FieldTypePage marks a page boundary usable as a navigation target.
	FieldTypePage FieldType = "page"
)

// Operator identifies a condition comparison.
type Operator string

const (
	OperatorEquals        Operator = "equals"
	OperatorNotEquals     Operator = "not_equals"
	OperatorContains      Operator = "contains"
	OperatorNotContains   Operator = "not_contains"
	OperatorStartsWith    Operator = "starts_with"
	OperatorEndsWith      Operator = "ends_with"
	OperatorGreaterThan   Operator = "greater_than"
	OperatorLessThan      Operator = "less_than"
	OperatorIsEmpty       Operator = "is_empty"
	OperatorIsNotEmpty    Operator = "is_not_empty"
	OperatorIsSelected    Operator = "is_selected"
	OperatorIsNotSelected Operator = "is_not_selected"
)

// LogicOperator combines conditions or condition groups.
type LogicOperator string

const (
	// LogicAnd requires every operand to hold.
	LogicAnd LogicOperator = "and"
	// LogicOr requires at least one operand to hold.
	LogicOr LogicOperator = "or"
)

// ActionType identifies the effect a fired rule applies.
type ActionType string

const (
	ActionShow      ActionType = "show"
	ActionHide      ActionType = "hide"
	ActionRequire   ActionType = "require"
	ActionOptional  ActionType = "optional"
	ActionEnable    ActionType = "enable"
	ActionDisable   ActionType = "disable"
	ActionSetValue  ActionType = "set_value"
	ActionSkipTo    ActionType = "skip_to"
	ActionJumpTo    ActionType = "jump_to"
	ActionCalculate ActionType = "calculate"
)

// Trigger identifies the session event that makes a rule eligible to run.
type Trigger string

const (
	// TriggerImmediate runs the rule when the session loads.
	TriggerImmediate Trigger = "immediate"
	// TriggerOnChange runs the rule when a field it reads changes.
	TriggerOnChange Trigger = "on_change"
	// TriggerOnBlur runs the rule when a field it reads loses focus.
	TriggerOnBlur Trigger = "on_blur"
	// TriggerOnSubmit runs the rule on form submission.
	TriggerOnSubmit Trigger = "on_submit"
)

// ModuleReference captures metadata about the definition source file of an entry.
type ModuleReference struct {
	File        string `json:"file,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// OptionConfig describes one selectable option on a choice field.
type OptionConfig struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// FieldConfig describes a single form field.
type FieldConfig struct {
	ID          string          `yaml:"id" json:"id"`
	Type        FieldType       `yaml:"type" json:"type"`
	Label       string          `yaml:"label,omitempty" json:"label,omitempty"`
	Required    bool            `yaml:"required,omitempty" json:"required,omitempty"`
	Options     []OptionConfig  `yaml:"options,omitempty" json:"options,omitempty"`
	Default     interface{}     `yaml:"default,omitempty" json:"default,omitempty"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Source      ModuleReference `yaml:"-" json:"-"`
}

// ConditionConfig describes a single comparison against a field value.
type ConditionConfig struct {
	ID       string      `yaml:"id" json:"id"`
	Field    string      `yaml:"field" json:"field"`
	Operator Operator    `yaml:"operator" json:"operator"`
	Value    interface{} `yaml:"value,omitempty" json:"value,omitempty"`
	Label    string      `yaml:"label,omitempty" json:"label,omitempty"`
}

// ConditionGroupConfig folds a non-empty set of conditions with one logical operator.
type ConditionGroupConfig struct {
	ID         string            `yaml:"id" json:"id"`
	Conditions []ConditionConfig `yaml:"conditions" json:"conditions"`
	Operator   LogicOperator     `yaml:"operator,omitempty" json:"operator,omitempty"`
}

// ActionConfig describes one effect applied when a rule fires.
type ActionConfig struct {
	ID         string      `yaml:"id" json:"id"`
	Type       ActionType  `yaml:"type" json:"type"`
	Target     string      `yaml:"target" json:"target"`
	Value      interface{} `yaml:"value,omitempty" json:"value,omitempty"`
	Expression string      `yaml:"expression,omitempty" json:"expression,omitempty"`
}

// RuleConfig describes a single logic rule owned by a form.
type RuleConfig struct {
	ID            string                 `yaml:"id" json:"id"`
	Name          string                 `yaml:"name,omitempty" json:"name,omitempty"`
	Enabled       *bool                  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Groups        []ConditionGroupConfig `yaml:"groups,omitempty" json:"groups,omitempty"`
	GroupOperator LogicOperator          `yaml:"group_operator,omitempty" json:"group_operator,omitempty"`
	Actions       []ActionConfig         `yaml:"actions" json:"actions"`
	Trigger       Trigger                `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	Source        ModuleReference        `yaml:"-" json:"-"`
}

// IsEnabled reports whether the rule participates in compilation. Rules are
// enabled unless explicitly switched off.
func (r RuleConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// EffectiveTrigger returns the configured trigger, defaulting to on_change.
func (r RuleConfig) EffectiveTrigger() Trigger {
	if r.Trigger == "" {
		return TriggerOnChange
	}
	return r.Trigger
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig configures runtime telemetry exporters.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider,omitempty"`
}

// Config is the root definition document for one form.
type Config struct {
	ID           string          `yaml:"id,omitempty"`
	Name         string          `yaml:"name,omitempty"`
	Description  string          `yaml:"description,omitempty"`
	Logging      LoggingConfig   `yaml:"logging"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
	Fields       []FieldConfig   `yaml:"fields"`
	Rules        []RuleConfig    `yaml:"rules"`
	HotReload    bool            `yaml:"hot_reload,omitempty"`
	PollInterval Duration        `yaml:"poll_interval,omitempty"`
	Source       ModuleReference `yaml:"-"`
}

// Load reads and decodes a form definition from disk. A directory is treated
// as a split definition: every .yaml/.yml file inside is decoded and merged
// in lexicographic order.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("definition path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve definition path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat definition path: %w", err)
	}

	var cfg *Config
	if info.IsDir() {
		cfg, err = loadDir(abs)
	} else {
		cfg, err = loadFile(abs)
	}
	if err != nil {
		return nil, err
	}
	if err := validateIdentifiers(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode definition %s: %w", path, err)
	}
	cfg.setSource(ModuleReference{File: path, Name: cfg.Name, Description: cfg.Description})
	return &cfg, nil
}

func loadDir(path string) (*Config, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read definition dir %s: %w", path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	result := &Config{}
	result.Source = ModuleReference{File: path}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		part, err := loadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		mergeConfig(result, part)
	}
	return result, nil
}

// SourceFiles lists every definition file that contributed to the config.
// The reload watcher polls these paths for changes.
func SourceFiles(cfg *Config) []string {
	if cfg == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(ref ModuleReference) {
		if ref.File == "" {
			return
		}
		if _, ok := seen[ref.File]; ok {
			return
		}
		if info, err := os.Stat(ref.File); err == nil && info.IsDir() {
			return
		}
		seen[ref.File] = struct{}{}
		out = append(out, ref.File)
	}
	add(cfg.Source)
	for _, field := range cfg.Fields {
		add(field.Source)
	}
	for _, rule := range cfg.Rules {
		add(rule.Source)
	}
	sort.Strings(out)
	return out
}

func mergeConfig(dst, src *Config) {
	if dst == nil || src == nil {
		return
	}
	if src.ID != "" {
		dst.ID = src.ID
	}
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
	if src.Logging.Loki.Enabled || src.Logging.Loki.URL != "" || len(src.Logging.Loki.Labels) > 0 {
		dst.Logging.Loki = src.Logging.Loki
	}
	if src.Telemetry.Enabled || src.Telemetry.Provider != "" {
		dst.Telemetry = src.Telemetry
	}
	if src.HotReload {
		dst.HotReload = true
	}
	if src.PollInterval.Duration > 0 {
		dst.PollInterval = src.PollInterval
	}
	dst.Fields = append(dst.Fields, src.Fields...)
	dst.Rules = append(dst.Rules, src.Rules...)
}

func (c *Config) setSource(meta ModuleReference) {
	if c == nil {
		return
	}
	if meta.File == "" {
		meta.File = c.Source.File
	}
	if meta.Name == "" {
		meta.Name = c.Name
	}
	if meta.Description == "" {
		meta.Description = c.Description
	}
	c.Source = meta
	for i := range c.Fields {
		c.Fields[i].Source = mergeInitialSource(c.Fields[i].Source, meta)
	}
	for i := range c.Rules {
		c.Rules[i].Source = mergeInitialSource(c.Rules[i].Source, meta)
	}
}

func mergeInitialSource(child, meta ModuleReference) ModuleReference {
	if child.File == "" && meta.File != "" {
		child.File = meta.File
	}
	if child.Name == "" && meta.Name != "" {
		child.Name = meta.Name
	}
	if child.Description == "" && meta.Description != "" {
		child.Description = meta.Description
	}
	return child
}

func ensureIdentifier(value, kind string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s identifier must not be empty", kind)
	}
	if strings.Contains(trimmed, ".") {
		return fmt.Errorf("%s %q must not contain '.'", kind, trimmed)
	}
	for idx, r := range trimmed {
		if idx == 0 && unicode.IsDigit(r) {
			return fmt.Errorf("%s %q must not start with a digit", kind, trimmed)
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return fmt.Errorf("%s %q contains invalid character %q", kind, trimmed, r)
		}
	}
	return nil
}

func validateIdentifiers(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	for _, field := range cfg.Fields {
		if err := ensureIdentifier(field.ID, "field"); err != nil {
			return err
		}
	}
	for _, rule := range cfg.Rules {
		if err := ensureIdentifier(rule.ID, "rule"); err != nil {
			return err
		}
	}
	return nil
}
