// Package diagnostics classifies toolkit console output.
//
// Severity comes only from structured message codes of the form [PREFIX###X]
// where PREFIX is a registered component identifier and X is one of I, W, E, F.
// Lines without such a code are Unclassified, whatever words they contain, so
// file names like error-messages.xml, generic "[ERROR]" lines from sub-tools and
// stack-trace continuations never inflate the counts.
//
// Stage detection is independent of severity: a marker table maps phase
// boundaries printed by the toolkit to an ordered list of stages.
package diagnostics
