package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"githubtray/logger"
	"githubtray/models"
)

// Settings keys as they appear in the config file.
const (
	KeyGitHubToken          = "github_token"
	KeyUsername             = "github_username"
	KeySortBy               = "sort_by"
	KeySortOrder            = "sort_order"
	KeyMaxRepos             = "max_repos"
	KeyShowNotifications    = "show_notifications"
	KeyNotificationInterval = "notification_interval"
	KeyDesktopNotifications = "desktop_notifications"
	KeyNotifyMentions       = "notify_mentions"
	KeyNotifyAssignments    = "notify_assignments"
	KeyNotifyPRComments     = "notify_pr_comments"
	KeyNotifyIssueComments  = "notify_issue_comments"
	KeyNotifyReviewRequests = "notify_review_requests"
	KeyNotifyWorkflowStart  = "notify_workflow_started"
	KeyNotifyWorkflowOK     = "notify_workflow_success"
	KeyNotifyWorkflowFail   = "notify_workflow_failure"
	KeyNotifyWorkflowCancel = "notify_workflow_cancelled"
	KeyWorkflowRunsMax      = "workflow_runs_max_display"
	KeyLocalEditor          = "local_editor"
	KeyLocalProjects        = "local_projects"
	KeyLogLevel             = "log_level"
	KeyLogFile              = "log_file"
	KeyHistoryDriver        = "history_driver"
	KeyHistoryDSN           = "history_dsn"
	KeyHistoryRetention     = "history_retention"
	KeyRequestsPerSecond    = "requests_per_second"
)

const minNotificationInterval = 10 * time.Second

// NotifyToggles switches individual notification categories on or off
type NotifyToggles struct {
	Mentions          bool `yaml:"mentions"`
	Assignments       bool `yaml:"assignments"`
	PRComments        bool `yaml:"pr_comments"`
	IssueComments     bool `yaml:"issue_comments"`
	ReviewRequests    bool `yaml:"review_requests"`
	WorkflowStarted   bool `yaml:"workflow_started"`
	WorkflowSuccess   bool `yaml:"workflow_success"`
	WorkflowFailure   bool `yaml:"workflow_failure"`
	WorkflowCancelled bool `yaml:"workflow_cancelled"`
}

// Config holds all configuration for the application
type Config struct {
	GitHubToken          string        `yaml:"github_token"`
	Username             string        `yaml:"github_username"`
	SortBy               string        `yaml:"sort_by"`
	SortOrder            string        `yaml:"sort_order"`
	MaxRepos             int           `yaml:"max_repos"`
	ShowNotifications    bool          `yaml:"show_notifications"`
	NotificationInterval time.Duration `yaml:"notification_interval"`
	DesktopNotifications bool          `yaml:"desktop_notifications"`
	Notify               NotifyToggles `yaml:"notify"`
	WorkflowRunsMax      int           `yaml:"workflow_runs_max_display"`
	LocalEditor          string        `yaml:"local_editor"`
	LocalProjects        LocalProjects `yaml:"local_projects"`
	LogLevel             string        `yaml:"log_level"`
	LogFile              string        `yaml:"log_file"`
	HistoryDriver        string        `yaml:"history_driver"`
	HistoryDSN           string        `yaml:"history_dsn"`
	HistoryRetention     time.Duration `yaml:"history_retention"`
	RequestsPerSecond    float64       `yaml:"requests_per_second"`
}

// HasCredentials reports whether both token and username are set.
func (c *Config) HasCredentials() bool {
	return c.GitHubToken != "" && c.Username != ""
}

// SortPrefs returns the normalized repository ordering.
func (c *Config) SortPrefs() models.SortPrefs {
	return models.NewSortPrefs(c.SortBy, c.SortOrder, c.MaxRepos)
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.GitHubToken != "" {
		out.GitHubToken = "********"
	}
	return &out
}

// DefaultDir is where the config file and history database live by default.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".githubtray"
	}
	return filepath.Join(dir, "githubtray")
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeySortBy, string(models.SortUpdated))
	v.SetDefault(KeySortOrder, string(models.OrderDesc))
	v.SetDefault(KeyMaxRepos, models.DefaultMaxRepos)
	v.SetDefault(KeyShowNotifications, true)
	v.SetDefault(KeyNotificationInterval, 60)
	v.SetDefault(KeyDesktopNotifications, true)
	for _, k := range []string{
		KeyNotifyMentions, KeyNotifyAssignments, KeyNotifyPRComments, KeyNotifyIssueComments,
		KeyNotifyReviewRequests, KeyNotifyWorkflowStart, KeyNotifyWorkflowOK, KeyNotifyWorkflowFail,
		KeyNotifyWorkflowCancel,
	} {
		v.SetDefault(k, true)
	}
	v.SetDefault(KeyWorkflowRunsMax, 10)
	v.SetDefault(KeyLocalEditor, "code")
	v.SetDefault(KeyLocalProjects, "{}")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyHistoryDriver, "sqlite")
	v.SetDefault(KeyHistoryDSN, filepath.Join(DefaultDir(), "history.db"))
	v.SetDefault(KeyHistoryRetention, "720h")
	v.SetDefault(KeyRequestsPerSecond, 5.0)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GITHUBTRAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	mustBindEnv(v, KeyGitHubToken, "GITHUBTRAY_GITHUB_TOKEN", "GITHUB_TOKEN")
	return v
}

// mustBindEnv panics on a malformed binding.
func mustBindEnv(v *viper.Viper, input ...string) {
	if err := v.BindEnv(input...); err != nil {
		panic(fmt.Sprintf("config: bind env %v: %v", input, err))
	}
}

// decode reads typed values out of v and validates them
func decode(v *viper.Viper) (*Config, error) {
	c := &Config{
		GitHubToken:          strings.TrimSpace(v.GetString(KeyGitHubToken)),
		Username:             strings.TrimSpace(v.GetString(KeyUsername)),
		SortBy:               v.GetString(KeySortBy),
		SortOrder:            v.GetString(KeySortOrder),
		MaxRepos:             v.GetInt(KeyMaxRepos),
		ShowNotifications:    v.GetBool(KeyShowNotifications),
		NotificationInterval: time.Duration(v.GetInt(KeyNotificationInterval)) * time.Second,
		DesktopNotifications: v.GetBool(KeyDesktopNotifications),
		Notify: NotifyToggles{
			Mentions:          v.GetBool(KeyNotifyMentions),
			Assignments:       v.GetBool(KeyNotifyAssignments),
			PRComments:        v.GetBool(KeyNotifyPRComments),
			IssueComments:     v.GetBool(KeyNotifyIssueComments),
			ReviewRequests:    v.GetBool(KeyNotifyReviewRequests),
			WorkflowStarted:   v.GetBool(KeyNotifyWorkflowStart),
			WorkflowSuccess:   v.GetBool(KeyNotifyWorkflowOK),
			WorkflowFailure:   v.GetBool(KeyNotifyWorkflowFail),
			WorkflowCancelled: v.GetBool(KeyNotifyWorkflowCancel),
		},
		WorkflowRunsMax:   v.GetInt(KeyWorkflowRunsMax),
		LocalEditor:       v.GetString(KeyLocalEditor),
		LocalProjects:     ParseLocalProjects(v.GetString(KeyLocalProjects)),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFile:           v.GetString(KeyLogFile),
		HistoryDriver:     v.GetString(KeyHistoryDriver),
		HistoryDSN:        v.GetString(KeyHistoryDSN),
		HistoryRetention:  v.GetDuration(KeyHistoryRetention),
		RequestsPerSecond: v.GetFloat64(KeyRequestsPerSecond),
	}

	switch models.SortKey(c.SortBy) {
	case models.SortUpdated, models.SortStars, models.SortName, models.SortCreated, models.SortPushed:
	default:
		return nil, fmt.Errorf("%w: %s must be one of updated, stars, name, created, pushed, got %q", ErrInvalidConfig, KeySortBy, c.SortBy)
	}
	switch models.SortOrder(c.SortOrder) {
	case models.OrderAsc, models.OrderDesc:
	default:
		return nil, fmt.Errorf("%w: %s must be asc or desc, got %q", ErrInvalidConfig, KeySortOrder, c.SortOrder)
	}
	if c.MaxRepos < 1 {
		return nil, fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, KeyMaxRepos)
	}
	switch c.HistoryDriver {
	case "", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("%w: %s must be sqlite, postgres or empty, got %q", ErrInvalidConfig, KeyHistoryDriver, c.HistoryDriver)
	}
	if c.NotificationInterval < minNotificationInterval {
		c.NotificationInterval = minNotificationInterval
	}
	if c.WorkflowRunsMax < 1 {
		c.WorkflowRunsMax = 10
	}
	return c, nil
}

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = fmt.Errorf("invalid configuration")

// Source owns the live configuration and notifies listeners on change.
type Source struct {
	v *viper.Viper

	mu        sync.RWMutex
	current   *Config
	listeners []func(old, new *Config)
}

// Load reads path (or the default location when empty), applying defaults
// and GITHUBTRAY_* environment overrides. A missing file is not an error.
func Load(path string) (*Source, error) {
	v := newViper()
	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Source{v: v, current: cfg}, nil
}

// NewStatic wraps a fixed Config, e.g. for tests.
func NewStatic(cfg *Config) *Source {
	return &Source{v: newViper(), current: cfg}
}

// Current returns the active configuration. Callers must not modify it.
func (s *Source) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Path is the config file in use.
func (s *Source) Path() string {
	return s.v.ConfigFileUsed()
}

// OnChange registers fn to run after every successful reload.
func (s *Source) OnChange(fn func(old, new *Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update applies fn to a copy of the current config and publishes it.
func (s *Source) Update(fn func(c *Config)) {
	s.mu.RLock()
	next := *s.current
	s.mu.RUnlock()
	next.LocalProjects = next.LocalProjects.Clone()
	fn(&next)
	s.publish(&next)
}

func (s *Source) publish(next *Config) {
	s.mu.Lock()
	old := s.current
	s.current = next
	listeners := append([]func(old, new *Config){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(old, next)
	}
}

// Watch reloads the config whenever the file changes. Invalid edits are
// logged and the previous configuration stays active.
func (s *Source) Watch() {
	s.v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		cfg, err := decode(s.v)
		if err != nil {
			logger.Warn("Ignoring invalid config change", zap.Error(err))
			return
		}
		s.publish(cfg)
	})
	s.v.WatchConfig()
}

// SaveLocalProjects persists the mapping into the config file without
// touching any other key and publishes the result.
func (s *Source) SaveLocalProjects(lp LocalProjects) error {
	path := s.Path()
	if path == "" {
		path = DefaultPath()
	}

	fv := viper.New()
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	fv.Set(KeyLocalProjects, lp.Encode())

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := fv.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	s.Update(func(c *Config) { c.LocalProjects = lp.Clone() })
	return nil
}

// Changed lists the keys whose values differ between old and new.
func Changed(old, new *Config) []string {
	if old == nil || new == nil {
		return nil
	}
	var keys []string
	add := func(key string, differs bool) {
		if differs {
			keys = append(keys, key)
		}
	}
	add(KeyGitHubToken, old.GitHubToken != new.GitHubToken)
	add(KeyUsername, old.Username != new.Username)
	add(KeySortBy, old.SortBy != new.SortBy)
	add(KeySortOrder, old.SortOrder != new.SortOrder)
	add(KeyMaxRepos, old.MaxRepos != new.MaxRepos)
	add(KeyShowNotifications, old.ShowNotifications != new.ShowNotifications)
	add(KeyNotificationInterval, old.NotificationInterval != new.NotificationInterval)
	add(KeyDesktopNotifications, old.DesktopNotifications != new.DesktopNotifications)
	add("notify", old.Notify != new.Notify)
	add(KeyWorkflowRunsMax, old.WorkflowRunsMax != new.WorkflowRunsMax)
	add(KeyLocalEditor, old.LocalEditor != new.LocalEditor)
	add(KeyLocalProjects, !old.LocalProjects.Equal(new.LocalProjects))
	return keys
}
