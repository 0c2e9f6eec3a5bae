package cfg

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
)

type Config struct {
	HTTPListenAddr            string `toml:"http_server_listen_addr"`
	HTTPSListenAddr           string `toml:"https_server_listen_addr"`
	HTTPSCertFile             string `toml:"https_ssl_cert_file"`
	HTTPSKeyFile              string `toml:"https_ssl_key_file"`
	HTTPGithubWebhookEndpoint string `toml:"github_webhook_endpoint"`
	GithubWebHookSecret       string `toml:"github_webhook_secret"`
	GithubAPIToken            string `toml:"github_api_token"`
	LogFormat                 string `toml:"log_format"`
	LogTimeKey                string `toml:"log_time_key"`
	LogLevel                  string `toml:"log_level"`
	DatabasePath              string `toml:"database_path"`
	// TemplateFetchMode selects how template repositories are fetched,
	// "api" (default) reads trees and blobs via the github API, "clone"
	// shallow-clones into CloneScratchDir.
	TemplateFetchMode string    `toml:"template_fetch_mode"`
	CloneScratchDir   string    `toml:"clone_scratch_dir"`
	Queue             Queue     `toml:"queue"`
	Targets           []*Target `toml:"target"`
}

// Queue configures the job queue and its worker pool.
// Durations are specified in seconds, zero values fall back to defaults.
type Queue struct {
	Workers              int `toml:"workers"`
	PollIntervalSeconds  int `toml:"poll_interval_seconds"`
	BaseDelaySeconds     int `toml:"base_delay_seconds"`
	MaxAttempts          int `toml:"max_attempts"`
	DebounceDelaySeconds int `toml:"debounce_delay_seconds"`
}

const (
	DefWorkers       = 4
	DefPollInterval  = 5 * time.Second
	DefBaseDelay     = 30 * time.Second
	DefMaxAttempts   = 3
	DefDebounceDelay = 2 * time.Minute
)

func (q *Queue) WorkerCount() int {
	if q.Workers <= 0 {
		return DefWorkers
	}

	return q.Workers
}

func (q *Queue) PollInterval() time.Duration {
	if q.PollIntervalSeconds <= 0 {
		return DefPollInterval
	}

	return time.Duration(q.PollIntervalSeconds) * time.Second
}

func (q *Queue) BaseDelay() time.Duration {
	if q.BaseDelaySeconds <= 0 {
		return DefBaseDelay
	}

	return time.Duration(q.BaseDelaySeconds) * time.Second
}

func (q *Queue) MaxAttemptCount() int {
	if q.MaxAttempts <= 0 {
		return DefMaxAttempts
	}

	return q.MaxAttempts
}

func (q *Queue) DebounceDelay() time.Duration {
	if q.DebounceDelaySeconds <= 0 {
		return DefDebounceDelay
	}

	return time.Duration(q.DebounceDelaySeconds) * time.Second
}

// Target configures one repository that is kept in sync with template
// repositories.
type Target struct {
	Owner      string `toml:"owner"`
	Repository string `toml:"repository"`
	// AutoUpdate enables scheduling sync jobs on template pushes.
	// Manual triggers work independently of it.
	AutoUpdate bool `toml:"auto_update"`
	// FilterQuery is an optional jq expression evaluated against the raw
	// push event JSON, the push is only considered when it evaluates to
	// true.
	FilterQuery string      `toml:"filter_query"`
	Templates   []*Template `toml:"template"`
	// TemplateURLs is the shorthand form of Templates, a plain list of
	// source URLs. Both forms can be combined, shorthand entries are
	// appended after the table entries.
	TemplateURLs    []string `toml:"templates"`
	MergeStrategy   string   `toml:"merge_strategy"`
	Rules           []*Rule  `toml:"rule"`
	ExcludePatterns []string `toml:"exclude_patterns"`
	Plugins         []string `toml:"plugins"`
}

type Template struct {
	URL          string `toml:"url"`
	Name         string `toml:"name"`
	Branch       string `toml:"branch"`
	SubDirectory string `toml:"sub_directory"`
}

type Rule struct {
	Patterns      []string `toml:"patterns"`
	Category      string   `toml:"category"`
	Strategy      string   `toml:"strategy"`
	Priority      int      `toml:"priority"`
	PrimarySource string   `toml:"primary_source"`
}

func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	if result.LogFormat == "" {
		result.LogFormat = "logfmt"
	}

	if result.LogLevel == "" {
		result.LogLevel = "info"
	}

	if result.TemplateFetchMode == "" {
		result.TemplateFetchMode = "api"
	}

	for _, target := range result.Targets {
		for _, url := range target.TemplateURLs {
			target.Templates = append(target.Templates, &Template{URL: url})
		}

		target.TemplateURLs = nil
	}

	if err := result.validate(); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Config) validate() error {
	if c.TemplateFetchMode != "api" && c.TemplateFetchMode != "clone" {
		return fmt.Errorf("unsupported template_fetch_mode: %q, must be 'api' or 'clone'", c.TemplateFetchMode)
	}

	for _, target := range c.Targets {
		if target.Owner == "" || target.Repository == "" {
			return errors.New("target: missing field: 'owner' or 'repository'")
		}

		if len(target.Templates) == 0 {
			return fmt.Errorf("target %s/%s: missing array field: 'template'", target.Owner, target.Repository)
		}

		for _, tmpl := range target.Templates {
			if tmpl.URL == "" {
				return fmt.Errorf("target %s/%s: template: missing field: 'url'", target.Owner, target.Repository)
			}
		}

		for i, rule := range target.Rules {
			if len(rule.Patterns) != 0 && rule.Category != "" {
				return fmt.Errorf(
					"target %s/%s: rule %d: 'patterns' and 'category' are mutually exclusive",
					target.Owner, target.Repository, i,
				)
			}

			if rule.Strategy == "" {
				return fmt.Errorf(
					"target %s/%s: rule %d: missing field: 'strategy'",
					target.Owner, target.Repository, i,
				)
			}
		}
	}

	return nil
}

func (c *Config) Marshal(writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(c)
}

// FindTarget returns the target configuration for owner/repository or nil.
func (c *Config) FindTarget(owner, repository string) *Target {
	for _, target := range c.Targets {
		if target.Owner == owner && target.Repository == repository {
			return target
		}
	}

	return nil
}
