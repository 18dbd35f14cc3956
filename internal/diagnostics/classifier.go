package diagnostics

import "regexp"

// codePattern matches a bracketed message code. The prefix is checked against the
// registry after matching so unknown components degrade to Unclassified.
var codePattern = regexp.MustCompile(`\[([A-Z]{4})(\d{3})([IWEF])\]`)

// Classification is the result of classifying one line.
type Classification struct {
	Severity Severity     `json:"severity"`
	Code     *MessageCode `json:"code,omitempty"`
	Stage    *StageEvent  `json:"stage,omitempty"`
}

// Classifier assigns severities from message codes. It holds no per-line state.
type Classifier struct {
	registry *Registry
}

// NewClassifier returns a classifier backed by reg, or by the default registry when reg is nil.
func NewClassifier(reg *Registry) *Classifier {
	if reg == nil {
		reg = MustRegistry()
	}
	return &Classifier{registry: reg}
}

// Classify returns the classification of text. The result depends only on text and
// the registry.
func (c *Classifier) Classify(text string) Classification {
	var out Classification
	for _, m := range codePattern.FindAllStringSubmatch(text, -1) {
		if !c.registry.Has(m[1]) {
			continue
		}
		code := MessageCode{Prefix: m[1], ID: m[2], Severity: severityFromLetter(m[3][0])}
		out.Code = &code
		out.Severity = code.Severity
		break
	}
	if ev, ok := DetectStage(text); ok {
		out.Stage = &ev
	}
	return out
}
