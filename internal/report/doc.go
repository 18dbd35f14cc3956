// Package report renders transform results, check results and transcript summaries
// for the command line, either as human-readable text or as JSON.
package report
