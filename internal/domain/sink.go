package domain

// TextSink receives append-only plain text.
type TextSink interface {
	Append(text string)
}

// StatusSink holds one replaceable status string per key.
type StatusSink interface {
	SetStatus(key, text string)
	ClearStatus(key string)
}

// HighlightSink receives the locations of bad keywords in the linted document.
// Each call replaces the previous set; an empty slice clears it.
type HighlightSink interface {
	Highlight(matches []KeywordMatch)
}

// KeywordMatch is one occurrence of a bad keyword in the source text.
// Line and Column are 1-based, Offset is a byte offset.
type KeywordMatch struct {
	Keyword string
	Line    int
	Column  int
	Offset  int
}
