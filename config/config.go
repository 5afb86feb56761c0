package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/spiffcs/boardsync/internal/activity"
	"github.com/spiffcs/boardsync/internal/constants"
	"github.com/spiffcs/boardsync/internal/model"
)

// Environment variables read by Load.
const (
	EnvProjectID = "PROJECT_ID"
	EnvRepo      = "REPO"
	EnvLabels    = "BOARDSYNC_LABELS"
	EnvToken     = "GITHUB_TOKEN"
	EnvGHToken   = "GH_TOKEN"
)

// activitySuffix marks a label in BOARDSYNC_LABELS that computes activity.
const activitySuffix = ":activity"

// Config represents the application configuration
type Config struct {
	ProjectID     string        `yaml:"project_id,omitempty"`
	Repo          string        `yaml:"repo,omitempty"`
	Labels        []LabelConfig `yaml:"labels,omitempty"`
	DefaultFormat string        `yaml:"default_format,omitempty"`
	AuthorMatch   string        `yaml:"author_match,omitempty"`
	Workers       *int          `yaml:"workers,omitempty"`
	Schedule      string        `yaml:"schedule,omitempty"`

	Fields     *FieldsConfig     `yaml:"fields,omitempty"`
	Enrollment *EnrollmentConfig `yaml:"enrollment,omitempty"`
	Pacing     *PacingConfig     `yaml:"pacing,omitempty"`
	Timeouts   *TimeoutsConfig   `yaml:"timeouts,omitempty"`
	Retry      *RetryConfig      `yaml:"retry,omitempty"`
}

// LabelConfig is one label to synchronize.
type LabelConfig struct {
	Name            string `yaml:"name"`
	ComputeActivity bool   `yaml:"compute_activity,omitempty"`
}

// FieldsConfig binds each activity signal to a project field.
type FieldsConfig struct {
	DaysSinceUpdate              *model.FieldBinding `yaml:"days_since_update,omitempty"`
	DaysSinceLastCommentOrReview *model.FieldBinding `yaml:"days_since_last_comment_or_review,omitempty"`
	DaysSinceLastAuthorCommit    *model.FieldBinding `yaml:"days_since_last_author_commit,omitempty"`
}

// EnrollmentConfig controls how issues are added to the board.
type EnrollmentConfig struct {
	Dedupe *bool `yaml:"dedupe,omitempty"`
}

// PacingConfig controls the outbound request token bucket.
type PacingConfig struct {
	Interval         *time.Duration `yaml:"interval,omitempty"`
	Burst            *int           `yaml:"burst,omitempty"`
	MaxRateLimitWait *time.Duration `yaml:"max_rate_limit_wait,omitempty"`
}

// TimeoutsConfig bounds single requests and whole runs.
type TimeoutsConfig struct {
	Request *time.Duration `yaml:"request,omitempty"`
	Run     *time.Duration `yaml:"run,omitempty"`
}

// RetryConfig controls transport retries.
type RetryConfig struct {
	Attempts *int           `yaml:"attempts,omitempty"`
	Backoff  *time.Duration `yaml:"backoff,omitempty"`
}

// Pacing is the resolved pacing configuration.
type Pacing struct {
	Interval         time.Duration
	Burst            int
	MaxRateLimitWait time.Duration
}

// Retry is the resolved retry configuration.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

// Timeouts is the resolved timeout configuration.
type Timeouts struct {
	Request time.Duration
	Run     time.Duration
}

// ConfigurationError reports a missing or malformed setting. It is fatal
// and raised before any network call.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// DefaultConfigDir returns the default config directory
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".boardsync"
	}
	return filepath.Join(configDir, "boardsync")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LocalConfigPath returns the path to the local config file in the current directory
func LocalConfigPath() string {
	return ".boardsync.yaml"
}

// EnvFilePath is the dotenv file loaded from the current directory.
func EnvFilePath() string {
	return ".env"
}

// Load loads the configuration from disk and the environment.
// It first loads the global config from the user config directory, then
// merges any local .boardsync.yaml on top (local values take precedence),
// then loads .env and applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath(), LocalConfigPath(), EnvFilePath())
}

// LoadFrom is Load with explicit paths. Missing files are skipped.
func LoadFrom(globalPath, localPath, envPath string) (*Config, error) {
	cfg := &Config{}

	global, err := readFile(globalPath)
	if err != nil {
		return nil, err
	}
	if global != nil {
		cfg = global
	}

	local, err := readFile(localPath)
	if err != nil {
		return nil, err
	}
	if local != nil {
		cfg = mergeConfig(cfg, local)
	}

	// godotenv never overrides variables already set in the environment.
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigurationError{Field: envPath, Message: "failed to load env file", Err: err}
		}
	}

	cfg.applyEnv()

	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = "table"
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &ConfigurationError{Field: path, Message: "failed to read config file", Err: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{Field: path, Message: "failed to parse config file", Err: err}
	}
	return &cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvProjectID); v != "" {
		c.ProjectID = v
	}
	if v := os.Getenv(EnvRepo); v != "" {
		c.Repo = v
	}
	if v := os.Getenv(EnvLabels); v != "" {
		c.Labels = ParseLabels(v)
	}
}

// ParseLabels parses a comma separated label list. A ":activity" suffix
// turns on activity computation for that label.
func ParseLabels(s string) []LabelConfig {
	var labels []LabelConfig
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		compute := false
		if trimmed, ok := strings.CutSuffix(name, activitySuffix); ok {
			name = strings.TrimSpace(trimmed)
			compute = true
		}
		if name == "" {
			continue
		}
		labels = append(labels, LabelConfig{Name: name, ComputeActivity: compute})
	}
	return labels
}

// mergeConfig merges local config on top of global config.
// Local values take precedence; unset local values preserve global values.
func mergeConfig(global, local *Config) *Config {
	result := *global

	if local.ProjectID != "" {
		result.ProjectID = local.ProjectID
	}
	if local.Repo != "" {
		result.Repo = local.Repo
	}
	if local.DefaultFormat != "" {
		result.DefaultFormat = local.DefaultFormat
	}
	if local.AuthorMatch != "" {
		result.AuthorMatch = local.AuthorMatch
	}
	if local.Schedule != "" {
		result.Schedule = local.Schedule
	}
	if local.Workers != nil {
		result.Workers = local.Workers
	}

	// Label lists are replaced, not merged.
	if len(local.Labels) > 0 {
		result.Labels = local.Labels
	}

	result.Fields = mergeFields(global.Fields, local.Fields)
	result.Enrollment = mergeEnrollment(global.Enrollment, local.Enrollment)
	result.Pacing = mergePacing(global.Pacing, local.Pacing)
	result.Timeouts = mergeTimeouts(global.Timeouts, local.Timeouts)
	result.Retry = mergeRetry(global.Retry, local.Retry)

	return &result
}

func mergeFields(global, local *FieldsConfig) *FieldsConfig {
	if global == nil && local == nil {
		return nil
	}
	result := &FieldsConfig{}
	if global != nil {
		*result = *global
	}
	if local != nil {
		if local.DaysSinceUpdate != nil {
			result.DaysSinceUpdate = local.DaysSinceUpdate
		}
		if local.DaysSinceLastCommentOrReview != nil {
			result.DaysSinceLastCommentOrReview = local.DaysSinceLastCommentOrReview
		}
		if local.DaysSinceLastAuthorCommit != nil {
			result.DaysSinceLastAuthorCommit = local.DaysSinceLastAuthorCommit
		}
	}
	return result
}

func mergeEnrollment(global, local *EnrollmentConfig) *EnrollmentConfig {
	if global == nil && local == nil {
		return nil
	}
	result := &EnrollmentConfig{}
	if global != nil {
		*result = *global
	}
	if local != nil && local.Dedupe != nil {
		result.Dedupe = local.Dedupe
	}
	return result
}

func mergePacing(global, local *PacingConfig) *PacingConfig {
	if global == nil && local == nil {
		return nil
	}
	result := &PacingConfig{}
	if global != nil {
		*result = *global
	}
	if local != nil {
		if local.Interval != nil {
			result.Interval = local.Interval
		}
		if local.Burst != nil {
			result.Burst = local.Burst
		}
		if local.MaxRateLimitWait != nil {
			result.MaxRateLimitWait = local.MaxRateLimitWait
		}
	}
	return result
}

func mergeTimeouts(global, local *TimeoutsConfig) *TimeoutsConfig {
	if global == nil && local == nil {
		return nil
	}
	result := &TimeoutsConfig{}
	if global != nil {
		*result = *global
	}
	if local != nil {
		if local.Request != nil {
			result.Request = local.Request
		}
		if local.Run != nil {
			result.Run = local.Run
		}
	}
	return result
}

func mergeRetry(global, local *RetryConfig) *RetryConfig {
	if global == nil && local == nil {
		return nil
	}
	result := &RetryConfig{}
	if global != nil {
		*result = *global
	}
	if local != nil {
		if local.Attempts != nil {
			result.Attempts = local.Attempts
		}
		if local.Backoff != nil {
			result.Backoff = local.Backoff
		}
	}
	return result
}

// GetGitHubToken returns the token from GITHUB_TOKEN, falling back to GH_TOKEN.
// Tokens are only read from the environment, never from config files.
func (c *Config) GetGitHubToken() string {
	if v := os.Getenv(EnvToken); v != "" {
		return v
	}
	return os.Getenv(EnvGHToken)
}

// FieldBindings returns the configured signal to field bindings. Signals
// without a binding are absent.
func (c *Config) FieldBindings() map[model.Signal]model.FieldBinding {
	bindings := make(map[model.Signal]model.FieldBinding)
	if c.Fields == nil {
		return bindings
	}
	add := func(s model.Signal, b *model.FieldBinding) {
		if b == nil || !b.Bound() {
			return
		}
		binding := *b
		if binding.Kind == "" {
			binding.Kind = model.FieldKindNumber
		}
		bindings[s] = binding
	}
	add(model.SignalDaysSinceUpdate, c.Fields.DaysSinceUpdate)
	add(model.SignalDaysSinceLastCommentOrReview, c.Fields.DaysSinceLastCommentOrReview)
	add(model.SignalDaysSinceLastAuthorCommit, c.Fields.DaysSinceLastAuthorCommit)
	return bindings
}

// Dedupe reports whether the board pre-check is enabled. Defaults to true.
func (c *Config) Dedupe() bool {
	if c.Enrollment == nil || c.Enrollment.Dedupe == nil {
		return true
	}
	return *c.Enrollment.Dedupe
}

// GetWorkers returns the annotation concurrency, defaulting to one.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return constants.DefaultWorkers
	}
	return *c.Workers
}

// GetSchedule returns the cron schedule, defaulting to hourly.
func (c *Config) GetSchedule() string {
	if c.Schedule == "" {
		return constants.DefaultSchedule
	}
	return c.Schedule
}

// GetPacing returns pacing settings with defaults applied.
func (c *Config) GetPacing() Pacing {
	p := Pacing{
		Interval:         constants.DefaultPacingInterval,
		Burst:            constants.DefaultPacingBurst,
		MaxRateLimitWait: constants.DefaultMaxRateLimitWait,
	}
	if c.Pacing != nil {
		if c.Pacing.Interval != nil {
			p.Interval = *c.Pacing.Interval
		}
		if c.Pacing.Burst != nil {
			p.Burst = *c.Pacing.Burst
		}
		if c.Pacing.MaxRateLimitWait != nil {
			p.MaxRateLimitWait = *c.Pacing.MaxRateLimitWait
		}
	}
	return p
}

// GetRetry returns retry settings with defaults applied.
func (c *Config) GetRetry() Retry {
	r := Retry{Attempts: constants.DefaultRetryAttempts, Backoff: constants.DefaultRetryBackoff}
	if c.Retry != nil {
		if c.Retry.Attempts != nil {
			r.Attempts = *c.Retry.Attempts
		}
		if c.Retry.Backoff != nil {
			r.Backoff = *c.Retry.Backoff
		}
	}
	return r
}

// GetTimeouts returns timeout settings with defaults applied.
func (c *Config) GetTimeouts() Timeouts {
	t := Timeouts{Request: constants.DefaultRequestTimeout, Run: constants.DefaultRunTimeout}
	if c.Timeouts != nil {
		if c.Timeouts.Request != nil {
			t.Request = *c.Timeouts.Request
		}
		if c.Timeouts.Run != nil {
			t.Run = *c.Timeouts.Run
		}
	}
	return t
}

// Validate checks every setting a run needs and returns all problems
// joined, each a *ConfigurationError.
func (c *Config) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.ProjectID == "" {
		fail("project_id", "required (or set %s)", EnvProjectID)
	}
	if c.Repo == "" {
		fail("repo", "required (or set %s)", EnvRepo)
	} else if owner, name, ok := strings.Cut(c.Repo, "/"); !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		fail("repo", "must be owner/name, got %q", c.Repo)
	}
	if c.GetGitHubToken() == "" {
		fail("token", "set %s or %s", EnvToken, EnvGHToken)
	}

	if len(c.Labels) == 0 {
		fail("labels", "at least one label is required (or set %s)", EnvLabels)
	}
	seen := make(map[string]bool)
	activityRequested := false
	for i, l := range c.Labels {
		if strings.TrimSpace(l.Name) == "" {
			fail(fmt.Sprintf("labels[%d]", i), "name is required")
			continue
		}
		if seen[l.Name] {
			fail(fmt.Sprintf("labels[%d]", i), "duplicate label %q", l.Name)
		}
		seen[l.Name] = true
		activityRequested = activityRequested || l.ComputeActivity
	}

	if c.Fields != nil {
		for name, b := range map[string]*model.FieldBinding{
			"fields.days_since_update":                 c.Fields.DaysSinceUpdate,
			"fields.days_since_last_comment_or_review": c.Fields.DaysSinceLastCommentOrReview,
			"fields.days_since_last_author_commit":     c.Fields.DaysSinceLastAuthorCommit,
		} {
			if b != nil && b.Kind != "" && !b.Kind.Valid() {
				fail(name, "kind must be %q or %q, got %q", model.FieldKindNumber, model.FieldKindDate, b.Kind)
			}
		}
	}
	if activityRequested && len(c.FieldBindings()) == 0 {
		fail("fields", "a label computes activity but no field is bound")
	}

	if _, err := activity.MatcherFor(c.AuthorMatch); err != nil {
		fail("author_match", "%v", err)
	}
	if w := c.GetWorkers(); w < 1 || w > constants.MaxWorkers {
		fail("workers", "must be between 1 and %d, got %d", constants.MaxWorkers, w)
	}

	p := c.GetPacing()
	if p.Interval < 0 {
		fail("pacing.interval", "must not be negative")
	}
	if p.Burst < 1 {
		fail("pacing.burst", "must be at least 1")
	}
	if r := c.GetRetry(); r.Attempts < 1 {
		fail("retry.attempts", "must be at least 1")
	}
	if t := c.GetTimeouts(); t.Request <= 0 || t.Run <= 0 {
		fail("timeouts", "request and run timeouts must be positive")
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			fail("schedule", "invalid cron expression: %v", err)
		}
	}

	switch c.DefaultFormat {
	case "", "table", "json", "markdown":
	default:
		fail("default_format", "must be table, json or markdown, got %q", c.DefaultFormat)
	}

	return errors.Join(errs...)
}

// ToYAML returns the config as a YAML string
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// ToJSON returns the config as indented JSON. It goes through the YAML
// form so keys keep their file names and durations stay readable ("2s").
func (c *Config) ToJSON() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	var view map[string]any
	if err := yaml.Unmarshal(data, &view); err != nil {
		return "", fmt.Errorf("failed to convert config: %w", err)
	}
	if view == nil {
		view = map[string]any{}
	}
	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to JSON: %w", err)
	}
	return string(out), nil
}

// DefaultConfig returns a fully populated config with all default values.
// This is useful for generating a complete config file template.
func DefaultConfig() *Config {
	dedupe := true
	workers := constants.DefaultWorkers
	p := (&Config{}).GetPacing()
	r := (&Config{}).GetRetry()
	t := (&Config{}).GetTimeouts()

	return &Config{
		ProjectID:     "PVT_xxxxxxxxxxxx",
		Repo:          "owner/name",
		DefaultFormat: "table",
		AuthorMatch:   activity.MatchByDisplayName,
		Workers:       &workers,
		Schedule:      constants.DefaultSchedule,
		Labels: []LabelConfig{
			{Name: "good first issue"},
			{Name: "help wanted"},
			{Name: "Community PR", ComputeActivity: true},
		},
		Fields: &FieldsConfig{
			DaysSinceUpdate:              &model.FieldBinding{ID: "PVTF_update", Kind: model.FieldKindNumber},
			DaysSinceLastCommentOrReview: &model.FieldBinding{ID: "PVTF_comment", Kind: model.FieldKindNumber},
			DaysSinceLastAuthorCommit:    &model.FieldBinding{ID: "PVTF_commit", Kind: model.FieldKindNumber},
		},
		Enrollment: &EnrollmentConfig{Dedupe: &dedupe},
		Pacing: &PacingConfig{
			Interval:         &p.Interval,
			Burst:            &p.Burst,
			MaxRateLimitWait: &p.MaxRateLimitWait,
		},
		Timeouts: &TimeoutsConfig{Request: &t.Request, Run: &t.Run},
		Retry:    &RetryConfig{Attempts: &r.Attempts, Backoff: &r.Backoff},
	}
}

// ConfigPathInfo contains information about config file paths
type ConfigPathInfo struct {
	GlobalPath   string
	GlobalExists bool
	LocalPath    string
	LocalExists  bool
}

// GetConfigPaths returns path info for both global and local configs
func GetConfigPaths() ConfigPathInfo {
	globalPath := ConfigPath()
	localPath := LocalConfigPath()

	absLocalPath, err := filepath.Abs(localPath)
	if err != nil {
		absLocalPath = localPath
	}

	_, globalErr := os.Stat(globalPath)
	_, localErr := os.Stat(localPath)

	return ConfigPathInfo{
		GlobalPath:   globalPath,
		GlobalExists: globalErr == nil,
		LocalPath:    absLocalPath,
		LocalExists:  localErr == nil,
	}
}

// MinimalConfig returns a minimal config template with comments
func MinimalConfig() string {
	return `# boardsync configuration file
# See: boardsync config show --defaults  (for all available options)
# The token is read from GITHUB_TOKEN (or GH_TOKEN), never from this file.

# Project (v2) node id and repository to synchronize.
project_id: PVT_xxxxxxxxxxxx
repo: owner/name

# Labels are processed in order.
labels:
  - name: good first issue
  - name: help wanted
  - name: Community PR
    compute_activity: true

# Project field ids for the activity signals. Unbound signals are not written.
fields:
  days_since_update:
    id: PVTF_xxxxxxxxxxxx
  days_since_last_comment_or_review:
    id: PVTF_xxxxxxxxxxxx
  # days_since_last_author_commit:
  #   id: PVTF_xxxxxxxxxxxx
  #   kind: date

# How a commit is attributed to the issue author: display-name or noreply-email
# author_match: display-name

# pacing:
#   interval: 2s
#   burst: 1
`
}

// SaveTo writes content to a specific path, creating directories as needed
func SaveTo(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}
