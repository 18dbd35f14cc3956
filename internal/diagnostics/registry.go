package diagnostics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultPrefixes are the component identifiers emitted by current toolkit releases.
var DefaultPrefixes = []string{"DOTA", "DOTJ", "DOTX", "INDX", "PDFJ", "PDFX", "XEPJ"}

var prefixShape = regexp.MustCompile(`^[A-Z]{4}$`)

// Registry is the set of recognized message-code prefixes. It is immutable once built
// so one registry can back classifiers running in parallel.
type Registry struct {
	prefixes map[string]struct{}
}

// NewRegistry returns a registry holding DefaultPrefixes plus extra.
func NewRegistry(extra ...string) (*Registry, error) {
	r := &Registry{prefixes: make(map[string]struct{}, len(DefaultPrefixes)+len(extra))}
	for _, p := range DefaultPrefixes {
		r.prefixes[p] = struct{}{}
	}
	for _, p := range extra {
		p = strings.ToUpper(strings.TrimSpace(p))
		if !prefixShape.MatchString(p) {
			return nil, fmt.Errorf("invalid message-code prefix %q: want four letters", p)
		}
		r.prefixes[p] = struct{}{}
	}
	return r, nil
}

// MustRegistry is NewRegistry for fixed prefix lists; it panics on invalid input.
func MustRegistry(extra ...string) *Registry {
	r, err := NewRegistry(extra...)
	if err != nil {
		panic(err)
	}
	return r
}

// Has reports whether prefix is registered.
func (r *Registry) Has(prefix string) bool {
	_, ok := r.prefixes[prefix]
	return ok
}

// Prefixes returns the registered prefixes in sorted order.
func (r *Registry) Prefixes() []string {
	out := make([]string, 0, len(r.prefixes))
	for p := range r.prefixes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
