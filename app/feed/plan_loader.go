package feed

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxItems   = 100
	DefaultTimeout    = 30
	DefaultEmbedStyle = "shortcode"
)

// DefaultInclude lists the blog resources imported when a plan names none.
var DefaultInclude = []string{"posts", "pages", "theme"}

// PlanLoader reads and caches the import plan. A missing plan file yields
// the default plan.
type PlanLoader struct {
	path  string
	plan  *Plan
	feeds map[string]*Config
	mu    sync.RWMutex
}

func NewPlanLoader(path string) *PlanLoader {
	return &PlanLoader{
		path:  path,
		feeds: make(map[string]*Config),
	}
}

func (pl *PlanLoader) Run() error {
	plan, err := pl.LoadPlan()
	if err != nil {
		return err
	}

	slog.Debug("Import plan loaded", "path", pl.path, "include", plan.Include, "feeds", len(plan.Feeds), "embed_style", plan.EmbedStyle)
	return nil
}

func (pl *PlanLoader) LoadPlan() (*Plan, error) {
	plan, err := pl.parsePlan()
	if err != nil {
		return nil, err
	}

	if err := pl.validatePlan(plan); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", pl.path, err)
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.plan = plan
	pl.feeds = make(map[string]*Config, len(plan.Feeds))
	for _, feedConfig := range plan.Feeds {
		pl.feeds[feedConfig.Name] = feedConfig
	}

	return plan, nil
}

// GetPlan returns the loaded plan, or the default plan before Run.
func (pl *PlanLoader) GetPlan() *Plan {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	if pl.plan == nil {
		plan := &Plan{}
		applyDefaults(plan)
		return plan
	}
	return pl.plan
}

func (pl *PlanLoader) GetConfig(feedName string) (*Config, error) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	feedConfig, ok := pl.feeds[feedName]
	if !ok {
		return nil, fmt.Errorf("feed config with name '%s' not found", feedName)
	}
	return feedConfig, nil
}

// GetEnabledConfigs returns the enabled feeds in plan order.
func (pl *PlanLoader) GetEnabledConfigs() []*Config {
	plan := pl.GetPlan()

	enabled := make([]*Config, 0, len(plan.Feeds))
	for _, feedConfig := range plan.Feeds {
		if feedConfig.Settings.IsEnabled() {
			enabled = append(enabled, feedConfig)
		}
	}
	return enabled
}

func (pl *PlanLoader) parsePlan() (*Plan, error) {
	var plan Plan

	if pl.path != "" {
		data, err := os.ReadFile(pl.path)
		switch {
		case os.IsNotExist(err):
			slog.Debug("Plan file not found, using defaults", "path", pl.path)
		case err != nil:
			return nil, fmt.Errorf("failed to read file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &plan); err != nil {
				return nil, fmt.Errorf("failed to parse YAML: %w", err)
			}
		}
	}

	applyDefaults(&plan)
	return &plan, nil
}

func applyDefaults(plan *Plan) {
	if len(plan.Include) == 0 && len(plan.Feeds) == 0 {
		plan.Include = append([]string(nil), DefaultInclude...)
	}
	if plan.EmbedStyle == "" {
		plan.EmbedStyle = DefaultEmbedStyle
	}

	for i, feedConfig := range plan.Feeds {
		if feedConfig == nil {
			continue
		}
		if feedConfig.Name == "" {
			feedConfig.Name = fmt.Sprintf("feed-%d", i+1)
		}
		if feedConfig.Settings.MaxItems == 0 {
			feedConfig.Settings.MaxItems = DefaultMaxItems
		}
		if feedConfig.Settings.Timeout == 0 {
			feedConfig.Settings.Timeout = DefaultTimeout
		}
	}
}

func (pl *PlanLoader) validatePlan(plan *Plan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}

	validKinds := map[string]bool{
		"posts": true,
		"pages": true,
		"theme": true,
	}

	for _, kind := range plan.Include {
		if !validKinds[kind] {
			return fmt.Errorf("invalid include: %s", kind)
		}
	}

	names := make(map[string]bool, len(plan.Feeds))
	for i, feedConfig := range plan.Feeds {
		if err := pl.validateConfig(feedConfig); err != nil {
			return fmt.Errorf("feed at index %d: %w", i, err)
		}
		if names[feedConfig.Name] {
			return fmt.Errorf("duplicate feed name: %s", feedConfig.Name)
		}
		names[feedConfig.Name] = true
	}

	return nil
}

func (pl *PlanLoader) validateConfig(feedConfig *Config) error {
	if feedConfig == nil {
		return fmt.Errorf("feedConfig is nil")
	}

	if feedConfig.URL == "" {
		return fmt.Errorf("feed URL is required")
	}

	nonNegativeFields := map[string]int{
		"max items": feedConfig.Settings.MaxItems,
		"timeout":   feedConfig.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	validFields := map[string]bool{
		"title":       true,
		"description": true,
		"content":     true,
		"authors":     true,
		"link":        true,
		"categories":  true,
	}

	for i, filter := range feedConfig.Filters {
		if !validFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
