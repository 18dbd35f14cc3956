package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyInvocationID = "invocation_id"
	KeyTranstype    = "transtype"
	KeyStrategy     = "strategy"
	KeyStage        = "stage"
	KeyExitCode     = "exit_code"
	KeyDurationMS   = "duration_ms"
	KeyPath         = "path"
	KeyURL          = "url"
	KeyStatus       = "status"
	KeyCode         = "code"
	KeyAttempt      = "attempt"
	KeyError        = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func InvocationID(id string) slog.Attr { return slog.String(KeyInvocationID, id) }
func Transtype(t string) slog.Attr     { return slog.String(KeyTranstype, t) }
func Strategy(s string) slog.Attr      { return slog.String(KeyStrategy, s) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func ExitCode(code int) slog.Attr      { return slog.Int(KeyExitCode, code) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func Code(c string) slog.Attr          { return slog.String(KeyCode, c) }
func Attempt(n int) slog.Attr          { return slog.Int(KeyAttempt, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
