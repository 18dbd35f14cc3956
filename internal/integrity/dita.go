package integrity

import (
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// conrefUseTarget is the reserved value meaning "take the attribute from the conref target".
const conrefUseTarget = "-dita-use-conref-target"

type cascade struct {
	scope  string
	format string
}

// extractDITA returns the references in a DITA map or topic and whether the document
// is a map. In maps, scope and format cascade from ancestors to nested references.
func extractDITA(r io.Reader) ([]rawRef, bool, error) {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var (
		refs   []rawRef
		isMap  bool
		root   = true
		frames = []cascade{{}}
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return refs, isMap, nil
		}
		if err != nil {
			return refs, isMap, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			attrs := attrMap(t)
			if root {
				isMap = isMapElement(t.Name.Local, attrs["class"])
				root = false
			}
			parent := frames[len(frames)-1]
			cur := cascade{scope: attrs["scope"], format: attrs["format"]}
			if isMap {
				if cur.scope == "" {
					cur.scope = parent.scope
				}
				if cur.format == "" {
					cur.format = parent.format
				}
			}
			frames = append(frames, cur)
			refs = append(refs, elementRefs(t.Name.Local, attrs, cur, isMap, line)...)
		case xml.EndElement:
			if len(frames) > 1 {
				frames = frames[:len(frames)-1]
			}
		}
	}
}

func elementRefs(name string, attrs map[string]string, c cascade, inMap bool, line int) []rawRef {
	var refs []rawRef
	add := func(attr string, kind Kind, target string) {
		refs = append(refs, rawRef{
			line:      line,
			element:   name,
			attribute: attr,
			kind:      kind,
			target:    target,
			scope:     c.scope,
			format:    c.format,
		})
	}
	if v := strings.TrimSpace(attrs["keyref"]); v != "" {
		add("keyref", KindKeyref, v)
	}
	if v := strings.TrimSpace(attrs["conkeyref"]); v != "" {
		add("conkeyref", KindKeyref, v)
	}
	if v := strings.TrimSpace(attrs["conref"]); v != "" && v != conrefUseTarget {
		add("conref", KindConref, v)
	}
	if v := strings.TrimSpace(attrs["href"]); v != "" && v != conrefUseTarget {
		add("href", hrefKind(name, attrs["class"], c.format, inMap), v)
	}
	return refs
}

// hrefKind classifies an href by element, preferring the class attribute so
// specialized elements are recognized.
func hrefKind(name, class, format string, inMap bool) Kind {
	switch {
	case name == "image" || strings.Contains(class, " topic/image "):
		return KindImage
	case name == "xref" || name == "link" ||
		strings.Contains(class, " topic/xref ") || strings.Contains(class, " topic/link "):
		return KindXref
	case inMap && (name == "mapref" || strings.EqualFold(format, "ditamap") ||
		strings.Contains(class, " mapgroup-d/mapref ")):
		return KindMapref
	default:
		return KindHref
	}
}

func isMapElement(name, class string) bool {
	if strings.Contains(class, " map/map ") {
		return true
	}
	return name == "map" || name == "bookmap"
}

// attrMap flattens attributes by local name; namespaced duplicates are ignored.
func attrMap(t xml.StartElement) map[string]string {
	m := make(map[string]string, len(t.Attr))
	for _, a := range t.Attr {
		if a.Name.Space != "" && a.Name.Space != "xml" {
			continue
		}
		if _, ok := m[a.Name.Local]; !ok {
			m[a.Name.Local] = a.Value
		}
	}
	return m
}
