// Package transform runs toolkit transformations and returns structured results.
//
// Runner.Run starts one invocation, feeds its output through a diagnostics.Tracker
// while the process runs, and returns a Result once the process has exited.
// RunWithRetry applies the caller's retry policy to whole invocations and RunAll
// fans out one invocation per transtype.
package transform
