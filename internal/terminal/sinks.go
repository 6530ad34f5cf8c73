// Package terminal renders lint progress and results to a console.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/dontdude/ymlint/internal/domain"
	"github.com/dontdude/ymlint/internal/lint"
)

const clearLine = "\r\x1b[K"

var (
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#2C4A54")

	styleSuccess  = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	styleWarning  = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
	styleError    = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	styleProgress = lipgloss.NewStyle().Foreground(colorMuted)
	styleKeyword  = lipgloss.NewStyle().Underline(true).Foreground(colorError)
)

// IsTerminal returns true if the given file is an interactive TTY.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Panel is an append-only text sink.
type Panel struct {
	mu sync.Mutex
	w  io.Writer
}

var _ domain.TextSink = (*Panel)(nil)

func NewPanel(w io.Writer) *Panel {
	return &Panel{w: w}
}

func (p *Panel) Append(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, text)
}

// StatusLine shows the progress indicator in place on a live terminal and
// prints the terminal status on its own line. When not live, progress is dropped.
type StatusLine struct {
	mu      sync.Mutex
	w       io.Writer
	live    bool
	showing bool
}

var _ domain.StatusSink = (*StatusLine)(nil)

func NewStatusLine(w io.Writer, live bool) *StatusLine {
	return &StatusLine{w: w, live: live}
}

func (s *StatusLine) SetStatus(key, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == lint.StatusKeyProgress {
		if s.live {
			fmt.Fprint(s.w, clearLine+styleProgress.Render(text))
			s.showing = true
		}
		return
	}

	s.clear()
	fmt.Fprintln(s.w, statusStyle(text).Render(text))
}

func (s *StatusLine) ClearStatus(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == lint.StatusKeyProgress {
		s.clear()
	}
}

func (s *StatusLine) clear() {
	if s.showing {
		fmt.Fprint(s.w, clearLine)
		s.showing = false
	}
}

func statusStyle(text string) lipgloss.Style {
	switch {
	case text == lint.StatusPassed:
		return styleSuccess
	case strings.HasPrefix(text, "Lint failed"):
		return styleError
	default:
		return styleWarning
	}
}

// Highlighter lists each bad keyword occurrence with its source line.
type Highlighter struct {
	mu     sync.Mutex
	w      io.Writer
	source []string
}

var _ domain.HighlightSink = (*Highlighter)(nil)

func NewHighlighter(w io.Writer, source string) *Highlighter {
	return &Highlighter{w: w, source: strings.Split(source, "\n")}
}

func (h *Highlighter) Highlight(matches []domain.KeywordMatch) {
	if len(matches) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintln(h.w, "* Unrecognized keys:")
	for _, m := range matches {
		fmt.Fprintf(h.w, "    %d:%d  %s\n", m.Line, m.Column, h.markLine(m))
	}
	fmt.Fprintln(h.w)
}

// markLine renders the source line with the match styled.
func (h *Highlighter) markLine(m domain.KeywordMatch) string {
	if m.Line < 1 || m.Line > len(h.source) {
		return m.Keyword
	}
	line := h.source[m.Line-1]
	start := m.Column - 1
	end := start + len(m.Keyword)
	if start < 0 || end > len(line) {
		return line
	}
	return line[:start] + styleKeyword.Render(line[start:end]) + line[end:]
}
