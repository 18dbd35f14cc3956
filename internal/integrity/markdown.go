package integrity

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New().Parser()

// extractMarkdown returns the links and images of a Markdown (MDITA) topic.
func extractMarkdown(src []byte) []rawRef {
	doc := markdownParser.Parse(text.NewReader(src))
	var refs []rawRef
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			refs = append(refs, rawRef{line: lineOf(src, n), element: "link", attribute: "destination", kind: KindXref, target: string(node.Destination)})
		case *ast.Image:
			refs = append(refs, rawRef{line: lineOf(src, n), element: "image", attribute: "destination", kind: KindImage, target: string(node.Destination)})
		case *ast.AutoLink:
			if node.AutoLinkType == ast.AutoLinkURL {
				refs = append(refs, rawRef{line: lineOf(src, n), element: "autolink", attribute: "url", kind: KindXref, target: string(node.URL(src))})
			}
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// lineOf returns the 1-based source line of an inline node, using its first text
// segment or the lines of the enclosing block.
func lineOf(src []byte, n ast.Node) int {
	start := -1
	for c := n.FirstChild(); c != nil && start < 0; c = c.FirstChild() {
		if t, ok := c.(*ast.Text); ok {
			start = t.Segment.Start
		}
	}
	if start < 0 {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
				start = p.Lines().At(0).Start
				break
			}
		}
	}
	if start < 0 || start > len(src) {
		return 0
	}
	return bytes.Count(src[:start], []byte("\n")) + 1
}
