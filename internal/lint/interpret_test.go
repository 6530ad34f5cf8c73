package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dontdude/ymlint/internal/domain"
)

const testEndpoint = "http://lint.example.test/"

func TestInterpretSingleUnexpectedKey(t *testing.T) {
	outcome := Interpret(`<ul class="result"><li>unexpected key foo, dropping</li></ul>`, testEndpoint)

	require.Equal(t, domain.OutcomeFailure, outcome.Kind())
	assert.Equal(t, []string{"unexpected key foo, dropping"}, outcome.Items())
	assert.Equal(t, []string{"foo"}, outcome.BadKeywords())
}

func TestInterpretSuccess(t *testing.T) {
	outcome := Interpret(`<p class="result">looks good</p>`, testEndpoint)

	require.Equal(t, domain.OutcomeSuccess, outcome.Kind())
	assert.Equal(t, "looks good", outcome.Message())
}

func TestInterpretGatewayTimeout(t *testing.T) {
	outcome := Interpret(`<html>504 gateway timeout</html>`, testEndpoint)

	require.Equal(t, domain.OutcomeUnparseable, outcome.Kind())
	assert.Equal(t, "Unable to parse POST response to "+testEndpoint, outcome.Message())
}

func TestInterpretTwoItems(t *testing.T) {
	outcome := Interpret(`<ul class="result"><li>error A</li><li>unexpected key bar, dropping</li></ul>`, testEndpoint)

	require.Equal(t, domain.OutcomeFailure, outcome.Kind())
	assert.Equal(t, []string{"error A", "unexpected key bar, dropping"}, outcome.Items())
	assert.Equal(t, []string{"bar"}, outcome.BadKeywords())
}

func TestInterpretStripsNestedMarkup(t *testing.T) {
	raw := `<ul class="result"><li><strong>unexpected key</strong> <code>sudo_</code>, dropping</li><li>missing <em>language</em></li></ul>`
	outcome := Interpret(raw, testEndpoint)

	require.Equal(t, domain.OutcomeFailure, outcome.Kind())
	assert.Equal(t, []string{"unexpected key sudo_, dropping", "missing language"}, outcome.Items())
	assert.Equal(t, []string{"sudo_"}, outcome.BadKeywords())
	for _, item := range outcome.Items() {
		assert.NotContains(t, item, "<")
		assert.NotContains(t, item, ">")
	}
}

func TestInterpretNestedListInsideItem(t *testing.T) {
	raw := `<ul class="result">` +
		`<li>matrix errors: <ul><li>x</li></ul></li>` +
		`<li>unexpected key bar, dropping</li>` +
		`</ul>`
	outcome := Interpret(raw, testEndpoint)

	require.Equal(t, domain.OutcomeFailure, outcome.Kind())
	assert.Equal(t, []string{"matrix errors: x", "unexpected key bar, dropping"}, outcome.Items())
	assert.Equal(t, []string{"bar"}, outcome.BadKeywords())
}

func TestInterpretEscapedMarkupIsStripped(t *testing.T) {
	raw := `<ul class="result"><li>unexpected key &lt;b&gt;foo&lt;/b&gt;, dropping</li><li>a &amp; b</li></ul>`
	outcome := Interpret(raw, testEndpoint)

	require.Equal(t, domain.OutcomeFailure, outcome.Kind())
	assert.Equal(t, []string{"unexpected key foo, dropping", "a & b"}, outcome.Items())
	assert.Equal(t, []string{"foo"}, outcome.BadKeywords())
	for _, item := range outcome.Items() {
		assert.NotContains(t, item, "<")
		assert.NotContains(t, item, ">")
	}
}

func TestInterpretKeepsDuplicateKeywordsInOrder(t *testing.T) {
	raw := `<ul class="result">` +
		`<li>unexpected key b, dropping</li>` +
		`<li>something else</li>` +
		`<li>unexpected key a, dropping</li>` +
		`<li>unexpected key b, dropping</li>` +
		`</ul>`
	outcome := Interpret(raw, testEndpoint)

	require.Len(t, outcome.Items(), 4)
	assert.Equal(t, []string{"b", "a", "b"}, outcome.BadKeywords())
}

func TestInterpretFullPage(t *testing.T) {
	raw := `<!DOCTYPE html>
<html>
  <head><title>Travis Lint</title></head>
  <body>
    <h1>Results</h1>
    <ul class="result">
      <li>unexpected key rvm_version, dropping</li>
      <li>specified language: &quot;rubby&quot; is not supported</li>
    </ul>
  </body>
</html>`
	outcome := Interpret(raw, testEndpoint)

	require.Equal(t, domain.OutcomeFailure, outcome.Kind())
	assert.Equal(t, []string{
		"unexpected key rvm_version, dropping",
		`specified language: "rubby" is not supported`,
	}, outcome.Items())
	assert.Equal(t, []string{"rvm_version"}, outcome.BadKeywords())
}

func TestInterpretFailureListWinsOverSuccess(t *testing.T) {
	raw := `<p class="result">ignored</p><ul class="result"><li>error A</li></ul>`
	outcome := Interpret(raw, testEndpoint)

	assert.Equal(t, domain.OutcomeFailure, outcome.Kind())
}

func TestInterpretEmptyListFallsThrough(t *testing.T) {
	assert.Equal(t, domain.OutcomeUnparseable, Interpret(`<ul class="result"></ul>`, testEndpoint).Kind())

	outcome := Interpret(`<ul class="result"></ul><p class="result">Hooray, your .travis.yml seems to be solid!</p>`, testEndpoint)
	require.Equal(t, domain.OutcomeSuccess, outcome.Kind())
	assert.Equal(t, "Hooray, your .travis.yml seems to be solid!", outcome.Message())
}

func TestInterpretNeverPanics(t *testing.T) {
	for _, raw := range []string{
		"",
		"<",
		"<ul class=\"result\">",
		"<ul class=\"result\"><li>unterminated</ul>",
		"</ul><ul class=\"result\">",
		"<p class=\"result\">",
		"\x00\xff",
	} {
		assert.NotPanics(t, func() { Interpret(raw, testEndpoint) }, "input %q", raw)
	}
}

func TestInterpretIsIdempotent(t *testing.T) {
	for _, raw := range []string{
		`<ul class="result"><li>error A</li><li>unexpected key bar, dropping</li></ul>`,
		`<p class="result">looks good</p>`,
		`<html>504 gateway timeout</html>`,
	} {
		assert.Equal(t, Interpret(raw, testEndpoint), Interpret(raw, testEndpoint))
	}
}

func TestBadKeywords(t *testing.T) {
	tests := []struct {
		item    string
		keyword string
		matched bool
	}{
		{item: "unexpected key foo, dropping", keyword: "foo", matched: true},
		{item: "unexpected key   foo.bar ,  dropping", keyword: "foo.bar ", matched: true},
		{item: "on root: unexpected key deploy_to, dropping", keyword: "deploy_to", matched: true},
		{item: "unexpected key foo", matched: false},
		{item: "key foo, dropping", matched: false},
		{item: "error A", matched: false},
	}
	for _, test := range tests {
		t.Run(test.item, func(t *testing.T) {
			got := badKeywords([]string{test.item})
			if !test.matched {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, []string{test.keyword}, got)
		})
	}
}
