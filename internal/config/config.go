package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name used when none is given.
const DefaultConfigFile = "ditabuilder.yaml"

// Config represents the ditabuilder configuration file.
type Config struct {
	Toolkit     ToolkitConfig     `yaml:"toolkit"`
	Transform   TransformConfig   `yaml:"transform"`
	Retry       RetryConfig       `yaml:"retry,omitempty"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics,omitempty"`
	Check       CheckConfig       `yaml:"check,omitempty"`
	Metrics     MetricsConfig     `yaml:"metrics,omitempty"`
	Events      EventsConfig      `yaml:"events,omitempty"`
	History     HistoryConfig     `yaml:"history,omitempty"`
}

// ToolkitConfig locates the wrapped toolkit and selects how it is launched.
type ToolkitConfig struct {
	Home        string       `yaml:"home"`
	Strategy    StrategyKind `yaml:"strategy,omitempty"`     // script|classpath|host
	Java        string       `yaml:"java,omitempty"`         // java executable for the classpath strategy
	MainClass   string       `yaml:"main_class,omitempty"`   // entry point for the classpath strategy
	HostCommand string       `yaml:"host_command,omitempty"` // executable for the host strategy
	HostArgs    []string     `yaml:"host_args,omitempty"`    // arguments placed before the toolkit arguments
}

// TransformConfig describes the transformations to run.
type TransformConfig struct {
	Inputs     []string          `yaml:"inputs"`
	OutputDir  string            `yaml:"output_dir"`
	TempDir    string            `yaml:"temp_dir,omitempty"`
	Transtypes []string          `yaml:"transtypes"`
	Filter     string            `yaml:"filter,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
	Timeout    string            `yaml:"timeout,omitempty"`
	Parallel   int               `yaml:"parallel,omitempty"`
}

// RetryConfig configures caller-level retries of whole invocations.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode,omitempty"`
	Initial    string           `yaml:"initial,omitempty"`
	Max        string           `yaml:"max,omitempty"`
	MaxRetries int              `yaml:"max_retries,omitempty"`
}

// DiagnosticsConfig tunes output classification.
type DiagnosticsConfig struct {
	Prefixes  []string `yaml:"prefixes,omitempty"` // message-code prefixes added to the built-in registry
	ErrorTail int      `yaml:"error_tail,omitempty"`
	Progress  bool     `yaml:"progress,omitempty"`
}

// CheckConfig configures the content integrity checker.
type CheckConfig struct {
	Root          string  `yaml:"root,omitempty"`
	Recursive     *bool   `yaml:"recursive,omitempty"`
	FollowXrefs   bool    `yaml:"follow_xrefs,omitempty"`
	CheckExternal bool    `yaml:"check_external,omitempty"`
	FailOnBroken  *bool   `yaml:"fail_on_broken,omitempty"`
	Timeout       string  `yaml:"timeout,omitempty"`
	ProbeTimeout  string  `yaml:"probe_timeout,omitempty"`
	Concurrency   int     `yaml:"concurrency,omitempty"`
	RateLimit     float64 `yaml:"rate_limit,omitempty"` // probes per second
	CacheTTL      string  `yaml:"cache_ttl,omitempty"`
	CacheSize     int     `yaml:"cache_size,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// EventsConfig enables NATS publishing of results.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// HistoryConfig enables the SQLite run history.
type HistoryConfig struct {
	DB string `yaml:"db,omitempty"`
}

// IsRecursive reports whether the checker follows map and topic references.
func (c CheckConfig) IsRecursive() bool {
	return c.Recursive == nil || *c.Recursive
}

// ShouldFailOnBroken reports whether broken references fail the check.
func (c CheckConfig) ShouldFailOnBroken() bool {
	return c.FailOnBroken == nil || *c.FailOnBroken
}

// Load loads configuration from the specified file, applying .env files, environment
// expansion, normalization and defaults. The result is not validated.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file could not be loaded: %v\n", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s (run 'ditabuilder init' to create one)", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration content.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	res, err := Normalize(&cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		slog.Warn("Configuration adjusted", slog.String("detail", w))
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	recursive := true
	example := Config{
		Toolkit: ToolkitConfig{
			Home:     "${DITA_HOME}",
			Strategy: StrategyScript,
		},
		Transform: TransformConfig{
			Inputs:     []string{"docs/userguide.ditamap"},
			OutputDir:  "./out",
			Transtypes: []string{"html5", "pdf"},
			Properties: map[string]string{"args.gen.task.lbl": "YES"},
			Timeout:    "30m",
		},
		Retry: RetryConfig{Mode: RetryBackoffLinear, Initial: "5s", Max: "1m", MaxRetries: 1},
		Check: CheckConfig{
			Root:         "docs/userguide.ditamap",
			Recursive:    &recursive,
			ProbeTimeout: "10s",
			Concurrency:  4,
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
