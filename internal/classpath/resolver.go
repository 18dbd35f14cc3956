package classpath

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/logfields"
)

const (
	// DescriptorPath is the plugin registry location relative to the toolkit home.
	DescriptorPath = "config/plugins.xml"
	// LibImportExtension is the feature extension point that contributes classpath entries.
	LibImportExtension = "dita.conductor.lib.import"

	xmlNamespace = "http://www.w3.org/XML/1998/namespace"
)

// Classpath is an ordered, de-duplicated list of absolute classpath entries.
type Classpath struct {
	Entries []string
	// Skipped lists declared entries that did not exist on disk.
	Skipped []string
}

// String joins the entries with the platform list separator.
func (c Classpath) String() string {
	return strings.Join(c.Entries, string(os.PathListSeparator))
}

// Resolve builds the classpath for the toolkit installed at home.
func Resolve(home string) (Classpath, error) {
	home, err := filepath.Abs(home)
	if err != nil {
		return Classpath{}, errors.WrapError(err, errors.CategoryConfig, "invalid toolkit home").
			WithContext("path", home).Build()
	}

	descriptor := filepath.Join(home, filepath.FromSlash(DescriptorPath))
	f, err := os.Open(descriptor)
	if err != nil {
		return Classpath{}, errors.WrapError(err, errors.CategoryNotFound, "plugin registry not readable").
			WithContext("path", descriptor).
			WithRemedy("check toolkit.home or run the toolkit's 'install' command to regenerate config/plugins.xml").
			Build()
	}
	defer func() { _ = f.Close() }()

	declared, err := parseDescriptor(f, filepath.Dir(descriptor))
	if err != nil {
		return Classpath{}, errors.WrapError(err, errors.CategoryToolkit, "plugin registry is malformed").
			WithContext("path", descriptor).Build()
	}

	b := newBuilder()
	b.add(filepath.Join(home, "config"))
	b.add(filepath.Join(home, "resources"))
	jars, err := libJars(home)
	if err != nil {
		return Classpath{}, err
	}
	for _, jar := range jars {
		b.add(jar)
	}
	for _, entry := range declared {
		b.add(entry)
	}
	return b.cp, nil
}

// libJars returns the jars below <home>/lib in lexical order.
func libJars(home string) ([]string, error) {
	lib := filepath.Join(home, "lib")
	if _, err := os.Stat(lib); err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotFound, "toolkit lib directory not found").
			WithContext("path", lib).
			WithRemedy("toolkit.home must point at an unpacked toolkit distribution").Build()
	}
	matches, err := doublestar.Glob(os.DirFS(lib), "**/*.jar")
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", lib, err)
	}
	sort.Strings(matches)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(lib, filepath.FromSlash(m)))
	}
	return out, nil
}

type builder struct {
	cp   Classpath
	seen map[string]struct{}
}

func newBuilder() *builder { return &builder{seen: map[string]struct{}{}} }

func (b *builder) add(path string) {
	path = filepath.Clean(path)
	if _, dup := b.seen[path]; dup {
		return
	}
	b.seen[path] = struct{}{}
	if _, err := os.Stat(path); err != nil {
		slog.Warn("Classpath entry missing; skipping", logfields.Path(path))
		b.cp.Skipped = append(b.cp.Skipped, path)
		return
	}
	b.cp.Entries = append(b.cp.Entries, path)
}

// parseDescriptor returns the lib import entries declared in the registry, resolved
// against the xml:base chain starting at baseDir.
func parseDescriptor(r io.Reader, baseDir string) ([]string, error) {
	dec := xml.NewDecoder(r)
	bases := []string{baseDir}
	var entries []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current := bases[len(bases)-1]
			if b := attr(t, xmlNamespace, "base"); b != "" {
				current = resolve(current, b)
			}
			bases = append(bases, current)
			if t.Name.Local == "feature" && attr(t, "", "extension") == LibImportExtension {
				for _, file := range featureFiles(t) {
					entries = append(entries, resolve(current, file))
				}
			}
		case xml.EndElement:
			bases = bases[:len(bases)-1]
		}
	}
}

// featureFiles returns the paths named by a lib import feature. The file attribute
// holds one path; older registries list comma-separated paths in value.
func featureFiles(t xml.StartElement) []string {
	if f := strings.TrimSpace(attr(t, "", "file")); f != "" {
		return []string{f}
	}
	var out []string
	for _, v := range strings.Split(attr(t, "", "value"), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func attr(t xml.StartElement, space, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local != local {
			continue
		}
		if a.Name.Space == space || (space == xmlNamespace && a.Name.Space == "xml") {
			return a.Value
		}
	}
	return ""
}

// resolve interprets ref (a relative path or file: URI) against dir.
func resolve(dir, ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Scheme == "file" {
		return filepath.FromSlash(u.Path)
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	ref = filepath.FromSlash(ref)
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(dir, ref)
}
