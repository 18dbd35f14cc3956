package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	reg, err := NewRegistry("XXXX")
	require.NoError(t, err)
	return NewClassifier(reg)
}

func TestClassifyCodeSuffix(t *testing.T) {
	c := testClassifier(t)

	tests := []struct {
		line string
		want Severity
	}{
		{"[XXXX007E] something broke", SeverityError},
		{"[XXXX007W] something is odd", SeverityWarning},
		{"[XXXX007I] something happened", SeverityInfo},
		{"[XXXX007F] cannot continue", SeverityFatal},
		{"  [xslt] [DOTX023W] Unable to retrieve navtitle", SeverityWarning},
		{"[DOTJ013E] Failed to parse the referenced file", SeverityError},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := c.Classify(tt.line)
			assert.Equal(t, tt.want, got.Severity)
			require.NotNil(t, got.Code)
		})
	}
}

func TestClassifyNoSubstringFalsePositives(t *testing.T) {
	c := testClassifier(t)

	for _, line := range []string{
		"Processing file:/x/error-messages.xml to file:/y/out.xml",
		"Writing file:/y/errors/warning.html",
		"[ERROR] generic third-party message",
		"org.example.SomeException: boom",
		"\tat org.example.Foo.bar(Foo.java:42)",
		"Error: could not find something",
		"[WARN] deprecated option",
		"[ABCD123E] unregistered component",
		"[DOTJ13E] too few digits",
		"[DOTJ0131E] too many digits",
		"[DOTJ013X] unknown severity letter",
		"",
	} {
		got := c.Classify(line)
		assert.Equal(t, SeverityUnclassified, got.Severity, line)
		assert.Nil(t, got.Code, line)
	}
}

func TestClassifyIsPure(t *testing.T) {
	c := testClassifier(t)
	line := "[DOTX023W] Unable to retrieve navtitle from target"
	assert.Equal(t, c.Classify(line), c.Classify(line))
}

func TestClassifyFirstRegisteredCodeWins(t *testing.T) {
	c := testClassifier(t)
	got := c.Classify("[ZZZZ001E] foreign [DOTX023W] ours [DOTJ013E] later")
	require.NotNil(t, got.Code)
	assert.Equal(t, "DOTX023W", got.Code.String())
	assert.Equal(t, SeverityWarning, got.Severity)
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry("abcd", " EFGH ")
	require.NoError(t, err)
	assert.True(t, reg.Has("ABCD"))
	assert.True(t, reg.Has("EFGH"))
	assert.True(t, reg.Has("DOTJ"))
	assert.False(t, reg.Has("NOPE"))
	assert.Contains(t, reg.Prefixes(), "PDFX")

	_, err = NewRegistry("AB12")
	assert.Error(t, err)

	assert.Panics(t, func() { MustRegistry("toolong") })
}

func TestSeverityText(t *testing.T) {
	b, err := SeverityFatal.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "fatal", string(b))
	assert.True(t, SeverityFatal.IsError())
	assert.False(t, SeverityWarning.IsError())
}
