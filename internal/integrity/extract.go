package integrity

import (
	"path/filepath"
	"strings"
)

// docFormat is how a document is parsed for references.
type docFormat int

const (
	formatNone docFormat = iota // not parsed (images, PDFs, unknown)
	formatMap
	formatTopic
	formatMarkdown
	formatHTML
)

// rawRef is a reference as extracted, before resolution.
type rawRef struct {
	line      int
	element   string
	attribute string
	kind      Kind
	target    string
	scope     string // explicit or inherited scope attribute, empty when absent
	format    string // explicit or inherited format attribute
}

// formatOf decides how a target is parsed from its format attribute, falling back to
// the file extension.
func formatOf(formatAttr, path string) docFormat {
	switch strings.ToLower(formatAttr) {
	case "ditamap":
		return formatMap
	case "dita":
		return formatTopic
	case "markdown", "mdita":
		return formatMarkdown
	case "html", "hdita":
		return formatHTML
	case "":
	default:
		return formatNone
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ditamap", ".bookmap":
		return formatMap
	case ".dita", ".xml":
		return formatTopic
	case ".md", ".markdown":
		return formatMarkdown
	case ".html", ".htm", ".xhtml":
		return formatHTML
	default:
		return formatNone
	}
}

// parseable reports whether documents of format f carry references.
func (f docFormat) parseable() bool { return f != formatNone }

// isXML reports whether f is parsed as DITA XML.
func (f docFormat) isXML() bool { return f == formatMap || f == formatTopic }
