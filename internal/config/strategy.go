package config

import "strings"

// StrategyKind names how the toolkit is launched.
type StrategyKind string

const (
	StrategyScript    StrategyKind = "script"    // bin/dita launcher script
	StrategyClasspath StrategyKind = "classpath" // java -cp <resolved classpath> <main class>
	StrategyHost      StrategyKind = "host"      // host-supplied executable
)

// NormalizeStrategy converts user input into a typed strategy, returning empty string for unknown.
func NormalizeStrategy(raw string) StrategyKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "script", "subprocess":
		return StrategyScript
	case "classpath", "java", "in-process", "inprocess":
		return StrategyClasspath
	case "host", "exec":
		return StrategyHost
	default:
		return ""
	}
}
