package config

import (
	"fmt"
	"strings"
)

// NormalizationResult captures adjustments made during normalization for reporting.
type NormalizationResult struct {
	Warnings []string
}

func (r *NormalizationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Normalize canonicalizes enumerations and trims whitespace in place. Unknown enum values
// are reported as warnings and cleared so defaults apply.
func Normalize(cfg *Config) (*NormalizationResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}

	cfg.Toolkit.Home = strings.TrimSpace(cfg.Toolkit.Home)
	if raw := string(cfg.Toolkit.Strategy); raw != "" {
		s := NormalizeStrategy(raw)
		if s == "" {
			res.warnf("unknown toolkit.strategy %q; using %q", raw, StrategyScript)
		} else if string(s) != raw {
			res.warnf("normalized toolkit.strategy from %q to %q", raw, s)
		}
		cfg.Toolkit.Strategy = s
	}

	if raw := string(cfg.Retry.Mode); raw != "" {
		m := NormalizeRetryBackoff(raw)
		if m == "" {
			res.warnf("unknown retry.mode %q; using %q", raw, RetryBackoffLinear)
		} else if string(m) != raw {
			res.warnf("normalized retry.mode from %q to %q", raw, m)
		}
		cfg.Retry.Mode = m
	}

	cfg.Transform.Transtypes = normalizeList(cfg.Transform.Transtypes, strings.ToLower)
	cfg.Transform.Inputs = normalizeList(cfg.Transform.Inputs, nil)
	cfg.Diagnostics.Prefixes = normalizeList(cfg.Diagnostics.Prefixes, strings.ToUpper)
	return res, nil
}

// normalizeList trims entries, drops empties and duplicates, and applies fn when given.
func normalizeList(in []string, fn func(string) string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if fn != nil {
			v = fn(v)
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
