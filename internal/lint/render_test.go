package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dontdude/ymlint/internal/domain"
)

func TestRendererBegin(t *testing.T) {
	rec := newRecorder()
	newTestRenderer(rec, sampleYML).Begin()

	assert.Contains(t, rec.Output(), "Travis CI Config Validator")
	assert.Contains(t, rec.Output(), "* Validating your .travis.yml file against "+testEndpoint)
	require.Len(t, rec.highlights, 1)
	assert.Empty(t, rec.highlights[0])
}

func TestRendererSuccess(t *testing.T) {
	rec := newRecorder()
	newTestRenderer(rec, sampleYML).Render(domain.Success("looks good"))

	assert.Contains(t, rec.Output(), "* Lint successful, no errors reported!")
	assert.Equal(t, []string{StatusPassed}, rec.results)
	assert.Empty(t, rec.highlights)
}

func TestRendererFailure(t *testing.T) {
	rec := newRecorder()
	r := newTestRenderer(rec, sampleYML)
	r.Progress("Linting ... [=         ]")
	r.Render(domain.StructuredFailure(
		[]string{"error A", "unexpected key foo, dropping"},
		[]string{"foo"},
	))

	out := rec.Output()
	assert.Contains(t, out, "* The following 2 errors were returned from "+testEndpoint+":\n")
	assert.Contains(t, out, "    1 - error A\n")
	assert.Contains(t, out, "    2 - unexpected key foo, dropping\n")
	assert.Equal(t, []string{"Lint failed - 2 errors found!"}, rec.results)
	assert.NotContains(t, rec.statuses, StatusKeyProgress)

	require.Len(t, rec.highlights, 1)
	assert.Equal(t, []domain.KeywordMatch{{Keyword: "foo", Line: 4, Column: 1, Offset: 28}}, rec.highlights[0])
}

func TestRendererUnparseableUsesFailurePath(t *testing.T) {
	rec := newRecorder()
	newTestRenderer(rec, sampleYML).Render(domain.Unparseable("Unable to parse POST response to " + testEndpoint))

	out := rec.Output()
	assert.Contains(t, out, "* The following 1 errors were returned from")
	assert.Contains(t, out, "    1 - * Error: Unable to parse POST response to "+testEndpoint+"\n")
	assert.Equal(t, []string{"Lint failed - 1 errors found!"}, rec.results)
}

func TestRendererRunError(t *testing.T) {
	rec := newRecorder()
	newTestRenderer(rec, sampleYML).Render(domain.RunError("lint run cancelled"))

	assert.Contains(t, rec.Output(), "* Error: lint run cancelled\n")
	assert.Equal(t, []string{StatusErrored}, rec.results)
}
