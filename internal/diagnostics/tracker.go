package diagnostics

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/ditabuilder/internal/logfields"
	"git.home.luguber.info/inful/ditabuilder/internal/metrics"
)

// DefaultErrorTail is the number of error lines retained in a Summary.
const DefaultErrorTail = 5

// Summary aggregates the classification of a whole transcript.
type Summary struct {
	Lines        int          `json:"lines"`
	Info         int          `json:"info"`
	Warnings     int          `json:"warnings"`
	Errors       int          `json:"errors"` // E and F lines
	Fatal        int          `json:"fatal"`  // F lines, also counted in Errors
	Unclassified int          `json:"unclassified"`
	LastErrors   []string     `json:"last_errors,omitempty"`
	Stage        Stage        `json:"stage"`
	StageHistory []StageEvent `json:"stage_history,omitempty"`
}

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	// ErrorTail bounds Summary.LastErrors; DefaultErrorTail when zero.
	ErrorTail int
	// Progress receives a rendered line on every stage advance when set.
	Progress func(line string)
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Tracker folds a line stream into a Summary. Observe is intended to be called from a
// single reader; Summary may be called at any time and any number of times.
type Tracker struct {
	classifier *Classifier
	opts       TrackerOptions

	mu      sync.Mutex
	summary Summary
	tail    []string
	next    int // ring position in tail
	filled  bool
}

// NewTracker creates a tracker using classifier.
func NewTracker(classifier *Classifier, opts TrackerOptions) *Tracker {
	if opts.ErrorTail <= 0 {
		opts.ErrorTail = DefaultErrorTail
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	return &Tracker{classifier: classifier, opts: opts, tail: make([]string, opts.ErrorTail)}
}

// Observe classifies line and folds it into the running summary.
func (t *Tracker) Observe(line LogLine) Classification {
	c := t.classifier.Classify(line.Text)

	t.mu.Lock()
	t.summary.Lines++
	switch c.Severity {
	case SeverityInfo:
		t.summary.Info++
	case SeverityWarning:
		t.summary.Warnings++
	case SeverityError:
		t.summary.Errors++
		t.pushError(line.Text)
	case SeverityFatal:
		t.summary.Errors++
		t.summary.Fatal++
		t.pushError(line.Text)
	default:
		t.summary.Unclassified++
	}
	advanced := false
	var ev StageEvent
	if c.Stage != nil && c.Stage.Stage > t.summary.Stage {
		ev = *c.Stage
		t.summary.Stage = ev.Stage
		t.summary.StageHistory = append(t.summary.StageHistory, ev)
		advanced = true
	}
	t.mu.Unlock()

	t.report(line, c)
	if advanced {
		t.opts.Recorder.ObserveStageReached(ev.Stage.String())
		if t.opts.Progress != nil {
			t.opts.Progress(RenderProgress(ev.Stage, ev.Stage.Index(), TotalStages, ev.FileCountHint))
		}
	}
	return c
}

func (t *Tracker) pushError(text string) {
	t.tail[t.next] = text
	t.next = (t.next + 1) % len(t.tail)
	if t.next == 0 {
		t.filled = true
	}
}

// report logs coded lines at their level; info and unclassified lines only appear in
// the debug view.
func (t *Tracker) report(line LogLine, c Classification) {
	if c.Severity != SeverityUnclassified {
		t.opts.Recorder.IncDiagnostic(c.Severity.String())
	}
	attrs := []any{slog.Uint64("seq", line.Seq), slog.String("line", line.Text)}
	if c.Code != nil {
		attrs = append(attrs, logfields.Code(c.Code.String()))
	}
	switch c.Severity {
	case SeverityWarning:
		t.opts.Logger.Warn("Toolkit warning", attrs...)
	case SeverityError, SeverityFatal:
		t.opts.Logger.Error("Toolkit error", attrs...)
	default:
		t.opts.Logger.Debug("Toolkit output", attrs...)
	}
}

// Summary returns a copy of the accumulated summary.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.summary
	s.StageHistory = append([]StageEvent(nil), t.summary.StageHistory...)
	s.LastErrors = t.errorTail()
	return s
}

func (t *Tracker) errorTail() []string {
	var out []string
	if t.filled {
		out = append(out, t.tail[t.next:]...)
	}
	out = append(out, t.tail[:t.next]...)
	if len(out) == 0 {
		return nil
	}
	return out
}

// SummarizeTranscript classifies a retained transcript without a live process. It
// yields the same Summary as feeding the lines through a Tracker.
func SummarizeTranscript(lines []string, classifier *Classifier, errorTail int) Summary {
	t := NewTracker(classifier, TrackerOptions{
		ErrorTail: errorTail,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	now := time.Now()
	for i, text := range lines {
		t.Observe(LogLine{Seq: uint64(i + 1), Time: now, Text: text})
	}
	return t.Summary()
}

// ReadTranscript splits r into lines, dropping line terminators.
func ReadTranscript(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var lines []string
	for {
		s, err := br.ReadString('\n')
		if s != "" {
			lines = append(lines, strings.TrimRight(s, "\r\n"))
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}
