package config

import (
	"time"

	"git.home.luguber.info/inful/getbuf/internal/compiler"
	"git.home.luguber.info/inful/getbuf/internal/hooks"
	"git.home.luguber.info/inful/getbuf/internal/retry"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "getbuf.yaml"

// Config is the getbuf application configuration.
type Config struct {
	// ProjectRoot bounds every clean. Empty means auto-detect.
	ProjectRoot string                  `yaml:"project_root"`
	Compiler    CompilerConfig          `yaml:"compiler"`
	Workspace   WorkspaceConfig         `yaml:"workspace"`
	Plugins     PluginsConfig           `yaml:"plugins"`
	Hooks       map[string][]HookConfig `yaml:"hooks" validate:"dive,keys,oneof=before-clean after-clean before-generate after-generate,endkeys,dive"`
	Notify      NotifyConfig            `yaml:"notify"`
	Artifacts   ArtifactsConfig         `yaml:"artifacts"`
	Metrics     MetricsConfig           `yaml:"metrics"`
	History     HistoryConfig           `yaml:"history"`
	Watch       WatchConfig             `yaml:"watch"`
	Retry       RetryConfig             `yaml:"retry"`

	// path is the file the configuration was read from; empty for defaults.
	path string
}

// CompilerConfig controls the external code generator.
type CompilerConfig struct {
	Binary    string            `yaml:"binary" validate:"required"`
	ExtraArgs []string          `yaml:"extra_args"`
	Env       map[string]string `yaml:"env"`
	// Timeout bounds a single invocation, e.g. "5m". Empty disables it.
	Timeout string `yaml:"timeout" validate:"omitempty,duration"`
}

// WorkspaceConfig lists subdirectories created inside the output directory.
type WorkspaceConfig struct {
	Subdirs []string `yaml:"subdirs" validate:"dive,required,relpath"`
}

// PluginsConfig is the plugin admission policy.
type PluginsConfig struct {
	Allow       []string `yaml:"allow"`
	AllowRemote *bool    `yaml:"allow_remote"`
}

// HookConfig declares a command hook.
type HookConfig struct {
	Name string            `yaml:"name"`
	Run  []string          `yaml:"run" validate:"required,min=1,dive,required"`
	Dir  string            `yaml:"dir"`
	Env  map[string]string `yaml:"env"`
}

// NotifyConfig configures result notifications.
type NotifyConfig struct {
	NATS *NATSConfig `yaml:"nats"`
}

// NATSConfig publishes run reports to a NATS subject.
type NATSConfig struct {
	URL     string `yaml:"url" validate:"required,url"`
	Subject string `yaml:"subject" validate:"required"`
}

// ArtifactsConfig configures diagnostics uploads.
type ArtifactsConfig struct {
	S3 *S3Config `yaml:"s3"`
}

// UploadWhen selects which runs upload diagnostics.
type UploadWhen string

const (
	UploadAlways  UploadWhen = "always"
	UploadFailure UploadWhen = "failure"
)

// S3Config uploads run diagnostics to an S3 compatible bucket.
type S3Config struct {
	Endpoint  string     `yaml:"endpoint" validate:"required,hostname_port|hostname"`
	Region    string     `yaml:"region"`
	Bucket    string     `yaml:"bucket" validate:"required"`
	AccessKey string     `yaml:"access_key"`
	SecretKey string     `yaml:"secret_key" validate:"required_with=AccessKey"`
	UseSSL    bool       `yaml:"use_ssl"`
	Prefix    string     `yaml:"prefix"`
	When      UploadWhen `yaml:"when" validate:"oneof=always failure"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	// Path of the SQLite database. "off" disables history.
	Path string `yaml:"path"`
}

// Enabled reports whether run history is recorded.
func (h HistoryConfig) Enabled() bool { return h.Path != "" && h.Path != "off" }

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce string `yaml:"debounce" validate:"duration"`
	// Interval triggers periodic regeneration. Empty or "0" disables it.
	Interval string `yaml:"interval" validate:"omitempty,duration"`
}

// RetryConfig is the backoff applied to outbound hooks (NATS, S3).
type RetryConfig struct {
	Backoff    string `yaml:"backoff" validate:"omitempty,oneof=fixed linear exponential"`
	Initial    string `yaml:"initial" validate:"omitempty,duration"`
	Max        string `yaml:"max" validate:"omitempty,duration"`
	MaxRetries *int   `yaml:"max_retries" validate:"omitempty,min=0,max=10"`
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string { return c.path }

// CompilerTimeout returns the parsed compiler timeout (0 when unset).
func (c *Config) CompilerTimeout() time.Duration { return mustDuration(c.Compiler.Timeout) }

// WatchDebounce returns the parsed watch debounce.
func (c *Config) WatchDebounce() time.Duration { return mustDuration(c.Watch.Debounce) }

// WatchInterval returns the parsed periodic interval (0 when disabled).
func (c *Config) WatchInterval() time.Duration { return mustDuration(c.Watch.Interval) }

// RetryPolicy converts the retry section into a backoff policy.
func (c *Config) RetryPolicy() retry.Policy {
	n := -1
	if c.Retry.MaxRetries != nil {
		n = *c.Retry.MaxRetries
	}
	return retry.NewPolicy(retry.ParseMode(c.Retry.Backoff), mustDuration(c.Retry.Initial), mustDuration(c.Retry.Max), n)
}

// PluginPolicy converts the plugins section into a compiler policy.
func (c *Config) PluginPolicy() compiler.Policy {
	p := compiler.DefaultPolicy()
	p.Allow = append([]string(nil), c.Plugins.Allow...)
	if c.Plugins.AllowRemote != nil {
		p.AllowRemote = *c.Plugins.AllowRemote
	}
	return p
}

// CommandSpecs converts the hooks section into command hook specs.
func (c *Config) CommandSpecs() map[string][]hooks.CommandSpec {
	if len(c.Hooks) == 0 {
		return nil
	}
	out := make(map[string][]hooks.CommandSpec, len(c.Hooks))
	for stage, list := range c.Hooks {
		for _, h := range list {
			out[stage] = append(out[stage], hooks.CommandSpec{Name: h.Name, Run: h.Run, Dir: h.Dir, Env: h.Env})
		}
	}
	return out
}

// mustDuration parses a validated duration; invalid input yields 0.
func mustDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
