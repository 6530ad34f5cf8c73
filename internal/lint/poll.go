package lint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dontdude/ymlint/internal/domain"
	"github.com/dontdude/ymlint/internal/metrics"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultMaxWait      = 60 * time.Second

	indicatorWidth = 10
)

// Indicator is a marker bouncing across a fixed-width track. It only exists
// to show that something is happening.
type Indicator struct {
	pos int
	dir int
}

// Next returns the current frame and advances the marker.
func (b *Indicator) Next() string {
	before := b.pos % indicatorWidth
	after := indicatorWidth - 1 - before
	if after == 0 {
		b.dir = -1
	}
	if before == 0 {
		b.dir = 1
	}
	b.pos += b.dir
	return fmt.Sprintf("Linting ... [%s=%s]", strings.Repeat(" ", before), strings.Repeat(" ", after))
}

// Poller watches a Run from the foreground on a fixed tick.
type Poller struct {
	runner   *Runner
	renderer *Renderer
	interval time.Duration
	maxWait  time.Duration
}

// NewPoller returns a poller. A non-positive interval uses DefaultPollInterval;
// a non-positive maxWait disables the wall-clock limit.
func NewPoller(runner *Runner, renderer *Renderer, interval, maxWait time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		runner:   runner,
		renderer: renderer,
		interval: interval,
		maxWait:  maxWait,
	}
}

// Watch checks run once per tick until it finishes, ctx is cancelled, or the
// maximum wait elapses. The outcome is interpreted and rendered exactly once.
func (p *Poller) Watch(ctx context.Context, run *Run) domain.Outcome {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if p.maxWait > 0 {
		timer := time.NewTimer(p.maxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	var indicator Indicator
	for {
		if finished(run) {
			outcome := p.runner.Outcome(run)
			p.renderer.Render(outcome)
			return outcome
		}
		p.renderer.Progress(indicator.Next())

		select {
		case <-ctx.Done():
			return p.abort(run, "lint cancelled")
		case <-deadline:
			return p.abort(run, fmt.Sprintf("no response from %s within %s", p.runner.Endpoint(), p.maxWait))
		case <-ticker.C:
		}
	}
}

func (p *Poller) abort(run *Run, reason string) domain.Outcome {
	run.Cancel()
	outcome := domain.RunError(reason)
	metrics.IncreaseLintOutcomesMetric(string(outcome.Kind()))
	p.renderer.Render(outcome)
	return outcome
}

func finished(run *Run) bool {
	select {
	case <-run.Done():
		return true
	default:
		return false
	}
}
