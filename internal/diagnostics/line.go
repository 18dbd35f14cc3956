package diagnostics

import "time"

// LogLine is one line of merged toolkit output.
type LogLine struct {
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}
