package integrity

import (
	"bytes"
	"io"

	"golang.org/x/net/html"
)

// htmlLinkAttrs maps elements to their reference attribute and kind.
var htmlLinkAttrs = map[string]struct {
	attr string
	kind Kind
}{
	"a":      {"href", KindXref},
	"img":    {"src", KindImage},
	"link":   {"href", KindHref},
	"script": {"src", KindHref},
	"source": {"src", KindHref},
	"video":  {"src", KindHref},
	"audio":  {"src", KindHref},
	"iframe": {"src", KindHref},
}

// extractHTML returns the references of an HTML (HDITA) topic.
func extractHTML(r io.Reader) ([]rawRef, error) {
	z := html.NewTokenizer(r)
	line := 1
	var refs []rawRef
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				return refs, nil
			}
			return refs, z.Err()
		}
		tokLine := line
		line += bytes.Count(z.Raw(), []byte("\n"))
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		spec, ok := htmlLinkAttrs[tok.Data]
		if !ok {
			continue
		}
		for _, a := range tok.Attr {
			if a.Key == spec.attr && a.Val != "" {
				refs = append(refs, rawRef{line: tokLine, element: tok.Data, attribute: a.Key, kind: spec.kind, target: a.Val})
			}
		}
	}
}
