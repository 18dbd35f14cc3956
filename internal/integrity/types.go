package integrity

import (
	"sort"
	"time"
)

// Kind is the category of a reference.
type Kind string

const (
	KindXref   Kind = "xref"
	KindConref Kind = "conref"
	KindMapref Kind = "mapref"
	KindImage  Kind = "image"
	KindHref   Kind = "href"
	KindKeyref Kind = "keyref"
)

// Scope tells whether a target must exist in this build.
type Scope string

const (
	ScopeLocal    Scope = "local"
	ScopePeer     Scope = "peer"
	ScopeExternal Scope = "external"
)

func parseScope(raw string) (Scope, bool) {
	switch raw {
	case "local":
		return ScopeLocal, true
	case "peer":
		return ScopePeer, true
	case "external":
		return ScopeExternal, true
	default:
		return "", false
	}
}

// Outcome is the verdict for one reference.
type Outcome string

const (
	OutcomeResolved        Outcome = "resolved"
	OutcomeBroken          Outcome = "broken"
	OutcomeSkippedPeer     Outcome = "skipped_peer"
	OutcomeSkippedExternal Outcome = "skipped_external"
	OutcomeSkippedKey      Outcome = "skipped_key"
)

// LinkRecord is one reference found in a source document.
type LinkRecord struct {
	Source    string  `json:"source"`
	Line      int     `json:"line,omitempty"`
	Element   string  `json:"element"`
	Attribute string  `json:"attribute"`
	Kind      Kind    `json:"kind"`
	Target    string  `json:"target"`
	Scope     Scope   `json:"scope"`
	Format    string  `json:"format,omitempty"`
	Outcome   Outcome `json:"outcome"`
	// Detail explains a broken outcome: the missing path or the probe failure.
	Detail string `json:"detail,omitempty"`
	// Status is the HTTP status of an external probe.
	Status int `json:"status,omitempty"`
}

// IsExternal reports whether the record targets a network resource.
func (r LinkRecord) IsExternal() bool { return r.Scope == ScopeExternal }

// Counts summarises a CheckResult.
type Counts struct {
	Total           int `json:"total"`
	InternalValid   int `json:"internal_valid"`
	InternalBroken  int `json:"internal_broken"`
	PeerSkipped     int `json:"peer_skipped"`
	ExternalValid   int `json:"external_valid"`
	ExternalBroken  int `json:"external_broken"`
	ExternalSkipped int `json:"external_skipped"`
	KeySkipped      int `json:"key_skipped"`
}

// Broken is the number of references that failed to resolve.
func (c Counts) Broken() int { return c.InternalBroken + c.ExternalBroken }

// DocumentError is a document that could be reached but not parsed.
type DocumentError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// CheckResult is the outcome of one check run.
type CheckResult struct {
	Root            string          `json:"root"`
	Resolved        []LinkRecord    `json:"resolved,omitempty"`
	Broken          []LinkRecord    `json:"broken,omitempty"`
	SkippedPeer     []LinkRecord    `json:"skipped_peer,omitempty"`
	SkippedExternal []LinkRecord    `json:"skipped_external,omitempty"`
	SkippedKey      []LinkRecord    `json:"skipped_key,omitempty"`
	Counts          Counts          `json:"counts"`
	Documents       []string        `json:"documents"`
	DocumentErrors  []DocumentError `json:"document_errors,omitempty"`
	Duration        time.Duration   `json:"duration"`
}

// Passed reports whether the check passes. Broken references fail it only when
// failOnBroken is set.
func (r *CheckResult) Passed(failOnBroken bool) bool {
	return !failOnBroken || r.Counts.Broken() == 0
}

// add files rec into its bucket and updates the counts.
func (r *CheckResult) add(rec LinkRecord) {
	r.Counts.Total++
	switch rec.Outcome {
	case OutcomeResolved:
		r.Resolved = append(r.Resolved, rec)
		if rec.IsExternal() {
			r.Counts.ExternalValid++
		} else {
			r.Counts.InternalValid++
		}
	case OutcomeBroken:
		r.Broken = append(r.Broken, rec)
		if rec.IsExternal() {
			r.Counts.ExternalBroken++
		} else {
			r.Counts.InternalBroken++
		}
	case OutcomeSkippedPeer:
		r.SkippedPeer = append(r.SkippedPeer, rec)
		r.Counts.PeerSkipped++
	case OutcomeSkippedExternal:
		r.SkippedExternal = append(r.SkippedExternal, rec)
		r.Counts.ExternalSkipped++
	case OutcomeSkippedKey:
		r.SkippedKey = append(r.SkippedKey, rec)
		r.Counts.KeySkipped++
	}
}

// sortBuckets orders every bucket by source and line for stable reports.
func (r *CheckResult) sortBuckets() {
	for _, b := range [][]LinkRecord{r.Resolved, r.Broken, r.SkippedPeer, r.SkippedExternal, r.SkippedKey} {
		sort.SliceStable(b, func(i, j int) bool {
			if b[i].Source != b[j].Source {
				return b[i].Source < b[j].Source
			}
			return b[i].Line < b[j].Line
		})
	}
}
