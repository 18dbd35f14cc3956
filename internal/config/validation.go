package config

import (
	"regexp"
	"strings"
	"time"

	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
)

var prefixPattern = regexp.MustCompile(`^[A-Z]{4}$`)

// Validate checks the configuration for the transform command.
func (c *Config) Validate() error {
	if err := c.ValidateToolkit(); err != nil {
		return err
	}
	if len(c.Transform.Inputs) == 0 {
		return errors.ConfigError("transform.inputs must list at least one map or topic").
			WithRemedy("add an entry under transform.inputs").Build()
	}
	if len(c.Transform.Transtypes) == 0 {
		return errors.ConfigError("transform.transtypes must list at least one transformation type").
			WithRemedy("add e.g. html5 under transform.transtypes").Build()
	}
	for k := range c.Transform.Properties {
		if strings.TrimSpace(k) == "" || strings.ContainsAny(k, " =") {
			return errors.ConfigError("invalid property name").
				WithContext("property", k).Build()
		}
	}
	for field, raw := range map[string]string{
		"transform.timeout":   c.Transform.Timeout,
		"retry.initial":       c.Retry.Initial,
		"retry.max":           c.Retry.Max,
		"check.timeout":       c.Check.Timeout,
		"check.probe_timeout": c.Check.ProbeTimeout,
		"check.cache_ttl":     c.Check.CacheTTL,
	} {
		if err := validateDuration(field, raw); err != nil {
			return err
		}
	}
	if c.Retry.MaxRetries < 0 {
		return errors.ConfigError("retry.max_retries cannot be negative").Build()
	}
	for _, p := range c.Diagnostics.Prefixes {
		if !prefixPattern.MatchString(p) {
			return errors.ConfigError("diagnostics prefix must be four letters").
				WithContext("prefix", p).Build()
		}
	}
	return nil
}

// ValidateToolkit checks only the toolkit section, used by commands that need the
// toolkit but not a transformation.
func (c *Config) ValidateToolkit() error {
	if c.Toolkit.Home == "" {
		return errors.ConfigError("toolkit.home is required").
			WithRemedy("set toolkit.home or the DITA_HOME environment variable").Build()
	}
	switch c.Toolkit.Strategy {
	case StrategyScript, StrategyClasspath:
	case StrategyHost:
		if c.Toolkit.HostCommand == "" {
			return errors.ConfigError("toolkit.host_command is required for the host strategy").Build()
		}
	default:
		return errors.ConfigError("unknown toolkit strategy").
			WithContext("strategy", string(c.Toolkit.Strategy)).Build()
	}
	return nil
}

func validateDuration(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d < 0 {
		return errors.ConfigError("invalid duration").
			WithContext("field", field).
			WithContext("value", raw).
			WithRemedy("use Go duration syntax such as 30s or 5m").Build()
	}
	return nil
}

// Duration parses a configured duration, returning fallback when unset or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if d := parseDuration(raw); d > 0 {
		return d
	}
	return fallback
}
