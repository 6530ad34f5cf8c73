package lint

import (
	"sort"
	"strings"

	"github.com/dontdude/ymlint/internal/domain"
)

// FindKeywordMatches returns every literal occurrence of each keyword in text,
// ordered by offset. Empty and repeated keywords are ignored.
func FindKeywordMatches(text string, keywords []string) []domain.KeywordMatch {
	seen := make(map[string]bool, len(keywords))
	var matches []domain.KeywordMatch
	for _, kw := range keywords {
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true

		for from := 0; from < len(text); {
			i := strings.Index(text[from:], kw)
			if i < 0 {
				break
			}
			offset := from + i
			line, col := position(text, offset)
			matches = append(matches, domain.KeywordMatch{
				Keyword: kw,
				Line:    line,
				Column:  col,
				Offset:  offset,
			})
			from = offset + len(kw)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Offset < matches[j].Offset
	})
	return matches
}

func position(text string, offset int) (line, col int) {
	before := text[:offset]
	line = strings.Count(before, "\n") + 1
	col = offset - strings.LastIndex(before, "\n")
	return line, col
}
