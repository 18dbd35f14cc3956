package toolkit

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"git.home.luguber.info/inful/ditabuilder/internal/diagnostics"
	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/logfields"
)

const (
	// HomeEnv is the variable telling the toolkit where it is installed.
	HomeEnv = "DITA_HOME"
	// TailLines is the number of output lines kept for failure reports.
	TailLines = 20

	lineBuffer = 256
	waitDelay  = 10 * time.Second
)

// drainIdle is how long the pipe may stay silent after the process exited before it is
// closed. Only a descendant that left the process group can keep it open that long.
var drainIdle = 5 * time.Second

// Execution is a running toolkit process.
//
// Lines must be drained by the caller; the process blocks once the channel and the OS
// pipe are full.
type Execution struct {
	Path string
	Args []string

	lines   chan diagnostics.LogLine
	done    chan struct{}
	started time.Time

	mu     sync.Mutex
	tail   []string
	status ExitStatus

	// reading is set while the reader is blocked on the pipe, lastRead holds the time of
	// the last non-empty read in unix nanoseconds.
	reading  atomic.Bool
	lastRead atomic.Int64
}

// Lines returns the merged stdout/stderr stream. The channel is closed after the last
// line has been read.
func (e *Execution) Lines() <-chan diagnostics.LogLine { return e.lines }

// Wait blocks until the process has exited and its output has been read.
func (e *Execution) Wait() ExitStatus {
	<-e.done
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.status
	s.Tail = append([]string(nil), e.tail...)
	return s
}

// Done is closed when Wait would no longer block.
func (e *Execution) Done() <-chan struct{} { return e.done }

// Start validates spec and launches the toolkit. Configuration problems are returned as
// errors before any process starts. A process that cannot be started yields an
// Execution whose status is StatusStartFailed.
func Start(ctx context.Context, spec InvocationSpec) (*Execution, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec, err := spec.absolutize()
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{spec.OutputDir, spec.TempDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.FileSystemError("cannot create directory").
				WithCause(err).WithContext("path", dir).Build()
		}
	}

	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	path, prefix := spec.Strategy.command(spec.ToolHome)
	args := append(prefix, spec.Args()...)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = spec.ToolHome
	cmd.Env = Environment(spec.ToolHome)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd.Process) }
	cmd.WaitDelay = waitDelay

	e := &Execution{
		Path:    path,
		Args:    args,
		lines:   make(chan diagnostics.LogLine, lineBuffer),
		done:    make(chan struct{}),
		started: time.Now(),
	}

	r, w, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, errors.InternalError("cannot create output pipe").WithCause(err).Build()
	}
	cmd.Stdout = w
	cmd.Stderr = w

	slog.Debug("Starting toolkit",
		logfields.Strategy(string(spec.Strategy.Kind())),
		logfields.Path(path),
		slog.Any("args", args))

	if err := cmd.Start(); err != nil {
		_ = w.Close()
		_ = r.Close()
		cancel()
		e.status = ExitStatus{
			Kind: StatusStartFailed,
			Code: -1,
			Err: errors.WrapError(err, errors.CategoryProcess, "toolkit process could not be started").
				WithContext("path", path).
				WithRemedy("check that the launcher exists and is executable").Retryable().Build(),
		}
		close(e.lines)
		close(e.done)
		return e, nil
	}
	_ = w.Close()

	readerDone := make(chan struct{})
	go e.read(&activityReader{r: r, e: e}, readerDone)
	go e.wait(ctx, cancel, cmd, r, readerDone)
	return e, nil
}

// read is the single consumer of the output pipe.
func (e *Execution) read(r io.Reader, readerDone chan<- struct{}) {
	defer close(readerDone)
	defer close(e.lines)
	br := bufio.NewReader(r)
	var seq uint64
	for {
		s, err := br.ReadString('\n')
		if s != "" {
			seq++
			text := strings.TrimRight(s, "\r\n")
			if !utf8.ValidString(text) {
				text = strings.ToValidUTF8(text, "�")
			}
			e.pushTail(text)
			e.lines <- diagnostics.LogLine{Seq: seq, Time: time.Now(), Text: text}
		}
		if err != nil {
			return
		}
	}
}

// activityReader records when the pipe was last read so the drain loop can tell a silent
// pipe from a slow consumer.
type activityReader struct {
	r io.Reader
	e *Execution
}

func (a *activityReader) Read(p []byte) (int, error) {
	a.e.reading.Store(true)
	n, err := a.r.Read(p)
	a.e.reading.Store(false)
	if n > 0 {
		a.e.lastRead.Store(time.Now().UnixNano())
	}
	return n, err
}

func (e *Execution) pushTail(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.tail) == TailLines {
		copy(e.tail, e.tail[1:])
		e.tail = e.tail[:TailLines-1]
	}
	e.tail = append(e.tail, text)
}

func (e *Execution) wait(ctx context.Context, cancel context.CancelFunc, cmd *exec.Cmd, r *os.File, readerDone <-chan struct{}) {
	defer close(e.done)
	defer cancel()

	waitErr := cmd.Wait()
	ctxErr := ctx.Err()
	elapsed := time.Since(e.started)

	// Descendants left in the group would hold the pipe open.
	_ = killProcessGroup(cmd.Process)
	e.drain(r, readerDone)

	status := ExitStatus{Duration: elapsed, Code: -1}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		status.Kind = StatusSuccess
		status.Code = 0
	case ctxErr != nil:
		status.Kind = StatusCanceled
		status.TimedOut = stderrors.Is(ctxErr, context.DeadlineExceeded)
		status.Err = ctxErr
	case stderrors.As(waitErr, &exitErr):
		status.Kind = StatusFailed
		status.Code = exitErr.ExitCode()
		status.Err = waitErr
	default:
		status.Kind = StatusFailed
		status.Err = waitErr
	}

	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
}

// drain waits for the reader to reach EOF. The pipe is closed early only when the reader
// has been blocked on it with nothing arriving for drainIdle; a reader blocked on a slow
// consumer is never cut off.
func (e *Execution) drain(r *os.File, readerDone <-chan struct{}) {
	defer func() { _ = r.Close() }()
	exited := time.Now().UnixNano()
	ticker := time.NewTicker(drainIdle / 5)
	defer ticker.Stop()
	for {
		select {
		case <-readerDone:
			return
		case <-ticker.C:
			last := max(e.lastRead.Load(), exited)
			if e.reading.Load() && time.Since(time.Unix(0, last)) >= drainIdle {
				slog.Warn("Toolkit output still open after exit, closing pipe",
					slog.Duration("idle", drainIdle))
				_ = r.Close()
				<-readerDone
				return
			}
		}
	}
}

// Environment returns a copy of the process environment with HomeEnv set to home,
// sorted by key.
func Environment(home string) []string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.Index(kv, "="); idx > 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}
	env[HomeEnv] = home

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
