package diagnostics

import "fmt"

// Severity is the classification of a single line.
type Severity int

const (
	SeverityUnclassified Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityUnclassified:
		return "unclassified"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText renders the severity name for JSON output.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// IsError reports whether the severity counts as an error (E or F).
func (s Severity) IsError() bool { return s == SeverityError || s == SeverityFatal }

func severityFromLetter(b byte) Severity {
	switch b {
	case 'I':
		return SeverityInfo
	case 'W':
		return SeverityWarning
	case 'E':
		return SeverityError
	case 'F':
		return SeverityFatal
	default:
		return SeverityUnclassified
	}
}

// MessageCode is a structured diagnostic identifier such as DOTJ013E.
type MessageCode struct {
	Prefix   string   `json:"prefix"`
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
}

func (c MessageCode) String() string {
	letter := ""
	switch c.Severity {
	case SeverityInfo:
		letter = "I"
	case SeverityWarning:
		letter = "W"
	case SeverityError:
		letter = "E"
	case SeverityFatal:
		letter = "F"
	}
	return c.Prefix + c.ID + letter
}
