package lint

import (
	"fmt"

	"github.com/dontdude/ymlint/internal/domain"
)

// Status keys. The progress key carries the animated indicator while a run is
// pending; the result key carries the single terminal status.
const (
	StatusKeyProgress = "yml-lint-status"
	StatusKeyResult   = "yml-lint-result"
)

// Terminal status strings.
const (
	StatusFailed  = "Lint failed - %d errors found!"
	StatusPassed  = "Lint complete - No errors found!"
	StatusErrored = "Lint errored - HTTP Error occurred"
)

const headerFormat = `
    Travis CI Config Validator
    ==========================

* Validating your .travis.yml file against %s
`

const successText = `* Lint successful, no errors reported!

Looks like all is well here!
`

const footerText = "\n"

// Renderer writes one run's progress and outcome to the host sinks.
type Renderer struct {
	endpoint  string
	source    string
	text      domain.TextSink
	status    domain.StatusSink
	highlight domain.HighlightSink
}

// NewRenderer returns a renderer for a run against endpoint. source is the
// linted document and is searched for bad keywords; highlight may be nil.
func NewRenderer(endpoint, source string, text domain.TextSink, status domain.StatusSink, highlight domain.HighlightSink) *Renderer {
	return &Renderer{
		endpoint:  endpoint,
		source:    source,
		text:      text,
		status:    status,
		highlight: highlight,
	}
}

// Begin clears stale highlights and writes the header.
func (r *Renderer) Begin() {
	if r.highlight != nil {
		r.highlight.Highlight(nil)
	}
	r.text.Append(fmt.Sprintf(headerFormat, r.endpoint))
}

// Progress replaces the progress status.
func (r *Renderer) Progress(text string) {
	r.status.SetStatus(StatusKeyProgress, text)
}

// Render writes the outcome and sets exactly one terminal status.
func (r *Renderer) Render(outcome domain.Outcome) {
	r.status.ClearStatus(StatusKeyProgress)

	switch outcome.Kind() {
	case domain.OutcomeFailure, domain.OutcomeUnparseable:
		items := outcome.ErrorItems()
		r.renderErrors(items)
		r.renderHighlights(outcome.BadKeywords())
		r.status.SetStatus(StatusKeyResult, fmt.Sprintf(StatusFailed, len(items)))
	case domain.OutcomeSuccess:
		r.text.Append(successText)
		r.status.SetStatus(StatusKeyResult, StatusPassed)
	default:
		r.text.Append(fmt.Sprintf("* Error: %s\n", outcome.Message()))
		r.status.SetStatus(StatusKeyResult, StatusErrored)
	}

	r.text.Append(footerText)
}

func (r *Renderer) renderErrors(items []string) {
	r.text.Append(fmt.Sprintf("* The following %d errors were returned from %s:\n", len(items), r.endpoint))
	for i, item := range items {
		r.text.Append(fmt.Sprintf("    %d - %s\n", i+1, item))
	}
	r.text.Append("\n\n")
}

func (r *Renderer) renderHighlights(keywords []string) {
	if r.highlight == nil || len(keywords) == 0 {
		return
	}
	r.highlight.Highlight(FindKeywordMatches(r.source, keywords))
}
