package lint

import (
	"html"
	"strings"

	"github.com/peterebden/go-deferred-regex"

	"github.com/dontdude/ymlint/internal/domain"
)

// The lint service answers with a small HTML page. A failed lint carries
// <ul class="result"><li>...</li>...</ul>, a clean one <p class="result">...</p>.
// The patterns match loosely; the page is never parsed as HTML. The failure
// list runs to the last </ul> so an item holding its own list stays whole.
// A <p> cannot nest, so the success text ends at the first </p>.
var (
	failureListRe   = deferredregex.DeferredRegex{Re: `(?s)<ul class="result">(.*)</ul>`}
	successRe       = deferredregex.DeferredRegex{Re: `(?s)<p class="result">(.*?)</p>`}
	nextItemRe      = deferredregex.DeferredRegex{Re: `(?s)^.*?<li>(.*?)</li>(.*)$`}
	tagRe           = deferredregex.DeferredRegex{Re: `<[^>]*>`}
	unexpectedKeyRe = deferredregex.DeferredRegex{Re: `.*unexpected key\s*(.*),\s*dropping`}
)

// Interpret classifies a raw lint response. endpoint is only used to name the
// service in the diagnostic of an unparseable response.
func Interpret(raw, endpoint string) domain.Outcome {
	if m := failureListRe.FindStringSubmatch(raw); m != nil {
		if items := extractItems(m[1]); len(items) > 0 {
			return domain.StructuredFailure(items, badKeywords(items))
		}
	}
	if m := successRe.FindStringSubmatch(raw); m != nil {
		return domain.Success(plainText(m[1]))
	}
	return domain.Unparseable("Unable to parse POST response to " + endpoint)
}

// extractItems consumes one <li> element at a time from the front of the list body.
func extractItems(list string) []string {
	var items []string
	rest := list
	for {
		m := nextItemRe.FindStringSubmatch(rest)
		if m == nil {
			return items
		}
		items = append(items, plainText(m[1]))
		rest = m[2]
	}
}

func badKeywords(items []string) []string {
	var keywords []string
	for _, item := range items {
		if m := unexpectedKeyRe.FindStringSubmatch(item); m != nil {
			keywords = append(keywords, m[1])
		}
	}
	return keywords
}

// plainText decodes entities, then drops anything between < and >, so
// escaped markup cannot reappear as a tag.
func plainText(fragment string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(html.UnescapeString(fragment), ""))
}
