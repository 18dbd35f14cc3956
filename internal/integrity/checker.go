package integrity

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/logfields"
	"git.home.luguber.info/inful/ditabuilder/internal/metrics"
)

// DefaultConcurrency is the size of the external probe worker pool.
const DefaultConcurrency = 4

// Options controls one check run.
type Options struct {
	// Recursive follows map references and, from maps, topic references.
	Recursive bool
	// FollowCrossRefs also follows xref, link and conref targets.
	FollowCrossRefs bool
	// CheckExternal probes http(s) targets instead of skipping them.
	CheckExternal bool
	// Concurrency bounds parallel probes; DefaultConcurrency when zero.
	Concurrency int
	// Timeout bounds the whole check; zero means none.
	Timeout time.Duration
}

// Checker verifies references. It keeps no state between checks, so one Checker may
// run several checks in parallel.
type Checker struct {
	prober   *Prober
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewChecker creates a checker. prober may be nil when external checking is never enabled.
func NewChecker(prober *Prober) *Checker {
	if prober == nil {
		prober = NewProber(ProberOptions{})
	}
	return &Checker{prober: prober, recorder: metrics.NoopRecorder{}, logger: slog.Default()}
}

// WithRecorder sets the metrics recorder.
func (c *Checker) WithRecorder(r metrics.Recorder) *Checker {
	if r != nil {
		c.recorder = r
	}
	return c
}

// WithLogger sets the logger.
func (c *Checker) WithLogger(l *slog.Logger) *Checker {
	if l != nil {
		c.logger = l
	}
	return c
}

type document struct {
	path   string
	format docFormat
}

// walk holds the state of one check run.
type walk struct {
	opts    Options
	result  *CheckResult
	visited map[string]struct{}
	queue   []document
	pending []LinkRecord
}

// Check walks the document graph from root. The error return is reserved for a root
// that cannot be read and for cancellation; broken references are reported in the
// result only.
func (c *Checker) Check(ctx context.Context, root string, opts Options) (*CheckResult, error) {
	started := time.Now()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	f, err := os.Open(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotFound, "root document not readable").
			WithContext("path", root).
			WithRemedy("pass the path of an existing map or topic").Build()
	}
	_ = f.Close()

	rootPath := resolvedPath(root)
	format := formatOf("", rootPath)
	if !format.parseable() {
		format = formatTopic
	}
	w := &walk{
		opts:    opts,
		result:  &CheckResult{Root: rootPath},
		visited: map[string]struct{}{},
	}
	w.enqueue(rootPath, format)

	var walkErr error
	for len(w.queue) > 0 {
		if err := ctx.Err(); err != nil {
			walkErr = errors.CanceledError("integrity check interrupted").WithCause(err).Build()
			break
		}
		doc := w.queue[0]
		w.queue = w.queue[1:]
		c.visit(w, doc)
	}

	if len(w.pending) > 0 {
		c.probeAll(ctx, w)
	}

	res := w.result
	res.sortBuckets()
	res.Duration = time.Since(started)
	c.recorder.ObserveCheckDuration(res.Duration)
	c.logger.Info("Integrity check finished",
		logfields.Path(rootPath),
		slog.Int("documents", len(res.Documents)),
		slog.Int("references", res.Counts.Total),
		slog.Int("broken", res.Counts.Broken()),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, walkErr
}

func (w *walk) enqueue(path string, format docFormat) {
	key := visitKey(path)
	if _, seen := w.visited[key]; seen {
		return
	}
	w.visited[key] = struct{}{}
	w.queue = append(w.queue, document{path: path, format: format})
}

func (c *Checker) visit(w *walk, doc document) {
	w.result.Documents = append(w.result.Documents, doc.path)
	refs, isMap, err := parseDocument(doc)
	if err != nil {
		c.logger.Warn("Document could not be parsed", logfields.Path(doc.path), logfields.Error(err))
		w.result.DocumentErrors = append(w.result.DocumentErrors, DocumentError{Path: doc.path, Message: err.Error()})
	}
	for _, ref := range refs {
		rec, next, nextFormat := w.resolve(doc.path, isMap, ref)
		if rec.Outcome == "" {
			w.pending = append(w.pending, rec)
			continue
		}
		w.result.add(rec)
		c.recorder.IncReference(string(rec.Kind), string(rec.Outcome))
		if rec.Outcome == OutcomeBroken {
			c.logger.Debug("Broken reference",
				logfields.Path(rec.Source),
				slog.Int("line", rec.Line),
				slog.String("target", rec.Target))
		}
		if next != "" {
			w.enqueue(next, nextFormat)
		}
	}
}

func parseDocument(doc document) ([]rawRef, bool, error) {
	data, err := os.ReadFile(doc.path)
	if err != nil {
		return nil, false, err
	}
	switch doc.format {
	case formatMarkdown:
		return extractMarkdown(data), false, nil
	case formatHTML:
		refs, err := extractHTML(bytes.NewReader(data))
		return refs, false, err
	default:
		return extractDITA(bytes.NewReader(data))
	}
}

// resolve classifies ref found in source. A record with an empty Outcome awaits an
// external probe. next names a document to traverse, if any.
func (w *walk) resolve(source string, inMap bool, ref rawRef) (rec LinkRecord, next string, nextFormat docFormat) {
	rec = LinkRecord{
		Source:    source,
		Line:      ref.line,
		Element:   ref.element,
		Attribute: ref.attribute,
		Kind:      ref.kind,
		Target:    ref.target,
		Format:    ref.format,
		Scope:     ScopeLocal,
	}
	explicit, hasScope := parseScope(ref.scope)
	u, isURL := parseURL(ref.target)

	switch {
	case hasScope && explicit == ScopePeer:
		rec.Scope = ScopePeer
	case isURL || (hasScope && explicit == ScopeExternal):
		rec.Scope = ScopeExternal
	}

	if ref.kind == KindKeyref {
		rec.Outcome = OutcomeSkippedKey
		return rec, "", formatNone
	}
	switch rec.Scope {
	case ScopePeer:
		rec.Outcome = OutcomeSkippedPeer
		return rec, "", formatNone
	case ScopeExternal:
		if w.opts.CheckExternal && isURL && (u.Scheme == "http" || u.Scheme == "https") {
			u.Fragment = ""
			rec.Target = u.String()
			return rec, "", formatNone
		}
		rec.Outcome = OutcomeSkippedExternal
		return rec, "", formatNone
	}

	path := localPath(source, ref.target)
	if visitKey(path) == visitKey(source) {
		rec.Outcome = OutcomeResolved
		return rec, "", formatNone
	}
	path, fi, err := statTarget(path)
	switch {
	case err != nil:
		rec.Outcome = OutcomeBroken
		rec.Detail = "target not found: " + path
		return rec, "", formatNone
	case fi.IsDir():
		rec.Outcome = OutcomeBroken
		rec.Detail = "target is a directory: " + path
		return rec, "", formatNone
	}
	rec.Outcome = OutcomeResolved

	f := formatOf(ref.format, path)
	if !f.parseable() || !w.follows(ref.kind, inMap) {
		return rec, "", formatNone
	}
	return rec, path, f
}

// follows reports whether references of kind are traversed.
func (w *walk) follows(kind Kind, inMap bool) bool {
	switch kind {
	case KindMapref:
		return w.opts.Recursive
	case KindHref:
		return w.opts.Recursive && inMap
	case KindXref, KindConref:
		return w.opts.FollowCrossRefs
	default:
		return false
	}
}

// parseURL reports whether target is an absolute URL other than file:. Single-letter
// schemes are Windows drive letters.
func parseURL(target string) (*url.URL, bool) {
	u, err := url.Parse(target)
	if err != nil || len(u.Scheme) < 2 || u.Scheme == "file" {
		return nil, false
	}
	return u, true
}

// localPath resolves target against the directory of source, dropping any fragment.
// A target that is only a fragment refers to source itself.
func localPath(source, target string) string {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	if target == "" {
		return source
	}
	if strings.HasPrefix(target, "file:") {
		if u, err := url.Parse(target); err == nil {
			return resolvedPath(filepath.FromSlash(u.Path))
		}
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	target = filepath.FromSlash(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(source), target)
	}
	return resolvedPath(target)
}

// probeAll resolves pending external records through the worker pool. Each distinct
// URL is probed once.
func (c *Checker) probeAll(ctx context.Context, w *walk) {
	index := make(map[string]int)
	var urls []string
	for _, rec := range w.pending {
		if _, ok := index[rec.Target]; !ok {
			index[rec.Target] = len(urls)
			urls = append(urls, rec.Target)
		}
	}
	results := make([]ProbeResult, len(urls))
	var g errgroup.Group
	g.SetLimit(w.opts.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = c.prober.Probe(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	for _, rec := range w.pending {
		res := results[index[rec.Target]]
		rec.Status = res.Status
		switch {
		case res.OK:
			rec.Outcome = OutcomeResolved
		case res.Canceled:
			rec.Outcome = OutcomeSkippedExternal
			rec.Detail = "probe canceled"
		default:
			rec.Outcome = OutcomeBroken
			rec.Detail = res.Err
		}
		w.result.add(rec)
		c.recorder.IncReference(string(rec.Kind), string(rec.Outcome))
	}
	w.pending = nil
}
