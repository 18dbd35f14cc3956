// Package errors provides foundational, type-safe error primitives used across ditabuilder.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, process, toolkit, canceled, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, immediate, backoff, user action)
//   - ClassifiedError: Structured error with category, severity, context and remedy
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for exit codes and error presentation
//
// Example usage:
//
//	err := errors.ConfigError("launcher script not found at either location").
//		WithContext("bin_path", binPath).
//		WithContext("root_path", rootPath).
//		WithRemedy("point toolkit.home at an unpacked DITA-OT distribution").
//		Build()
package errors
