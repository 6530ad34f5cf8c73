package lint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dontdude/ymlint/internal/domain"
)

const sampleYML = "language: ruby\nrvm:\n  - 2.7\nfoo: bar\n"

// lintServer answers each POST with the next status in statuses, repeating the last one.
func lintServer(t *testing.T, body string, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&hits, 1))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, sampleYML, r.PostForm.Get(DefaultField))

		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestRunner(t *testing.T, endpoint string) *Runner {
	t.Helper()
	runner, err := NewRunner(Config{
		Endpoint:       endpoint,
		MaxAttempts:    DefaultMaxAttempts,
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return runner
}

func waitDone(t *testing.T, run *Run) {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestRunnerStoresResultOnSuccess(t *testing.T) {
	srv, hits := lintServer(t, `<p class="result">looks good</p>`, http.StatusOK)
	runner := newTestRunner(t, srv.URL)

	run := runner.Submit(context.Background(), domain.Submission{Text: sampleYML})
	waitDone(t, run)

	body, ok := run.Result()
	require.True(t, ok)
	assert.Equal(t, `<p class="result">looks good</p>`, body)
	assert.NoError(t, run.Err())
	assert.Nil(t, run.LastError())
	assert.Equal(t, 1, run.Attempts())
	assert.Equal(t, DefaultMaxAttempts, run.Remaining())
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
	assert.NotEmpty(t, run.ID())
}

func TestRunnerRetriesOnceThenSucceeds(t *testing.T) {
	srv, hits := lintServer(t, `<p class="result">looks good</p>`, http.StatusBadGateway, http.StatusOK)
	runner := newTestRunner(t, srv.URL)

	run := runner.Submit(context.Background(), domain.Submission{ID: "job-1", Text: sampleYML})
	waitDone(t, run)

	_, ok := run.Result()
	assert.True(t, ok)
	assert.Equal(t, "job-1", run.ID())
	assert.Equal(t, 2, run.Attempts())
	assert.Equal(t, 1, run.Remaining())
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))
}

func TestRunnerGivesUpAfterTwoHTTPErrors(t *testing.T) {
	srv, hits := lintServer(t, "oops", http.StatusInternalServerError)
	runner := newTestRunner(t, srv.URL)

	run := runner.Submit(context.Background(), domain.Submission{Text: sampleYML})
	waitDone(t, run)

	_, ok := run.Result()
	assert.False(t, ok)
	assert.ErrorIs(t, run.Err(), ErrRetriesExhausted)
	assert.Contains(t, run.Err().Error(), "request error: 500 Server Error")
	var statusErr *StatusError
	require.ErrorAs(t, run.Err(), &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	require.Error(t, run.LastError())
	assert.Contains(t, run.LastError().Error(), "request error: 500 Server Error")
	assert.Equal(t, 2, run.Attempts())
	assert.Zero(t, run.Remaining())
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))

	outcome := runner.Outcome(run)
	assert.Equal(t, domain.OutcomeError, outcome.Kind())
	assert.Contains(t, outcome.Message(), "gave up after 2 attempts")
}

func TestRunnerRetriesClientErrors(t *testing.T) {
	srv, hits := lintServer(t, "", http.StatusNotFound)
	runner := newTestRunner(t, srv.URL)

	run := runner.Submit(context.Background(), domain.Submission{Text: sampleYML})
	waitDone(t, run)

	assert.ErrorIs(t, run.Err(), ErrRetriesExhausted)
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))
}

func TestRunnerRetriesTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	runner := newTestRunner(t, endpoint)
	run := runner.Submit(context.Background(), domain.Submission{Text: sampleYML})
	waitDone(t, run)

	assert.ErrorIs(t, run.Err(), ErrRetriesExhausted)
	assert.Equal(t, 2, run.Attempts())
}

type fakeAttempter struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, n int) (string, error)
}

func (f *fakeAttempter) Attempt(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	return f.fn(ctx, n)
}

func (f *fakeAttempter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunnerSurfacesUnexpectedErrors(t *testing.T) {
	attempter := &fakeAttempter{fn: func(ctx context.Context, n int) (string, error) {
		return "", errBoom
	}}
	runner := NewRunnerWithAttempter(testEndpoint, attempter, DefaultRetryPolicy())

	run := runner.Submit(context.Background(), domain.Submission{Text: sampleYML})
	waitDone(t, run)

	assert.ErrorIs(t, run.Err(), errBoom)
	assert.Equal(t, 1, attempter.Calls())

	outcome := runner.Outcome(run)
	assert.Equal(t, domain.OutcomeError, outcome.Kind())
	assert.Equal(t, "boom", outcome.Message())
}

func TestRunnerCancel(t *testing.T) {
	started := make(chan struct{})
	attempter := &fakeAttempter{fn: func(ctx context.Context, n int) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}}
	runner := NewRunnerWithAttempter(testEndpoint, attempter, DefaultRetryPolicy())

	run := runner.Submit(context.Background(), domain.Submission{Text: sampleYML})
	<-started
	run.Cancel()
	waitDone(t, run)

	assert.ErrorIs(t, run.Err(), context.Canceled)
	assert.Equal(t, 1, attempter.Calls())
	assert.Equal(t, "lint run cancelled", runner.Outcome(run).Message())
}

func TestRunnerSubmitDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	attempter := &fakeAttempter{fn: func(ctx context.Context, n int) (string, error) {
		<-release
		return `<p class="result">ok</p>`, nil
	}}
	runner := NewRunnerWithAttempter(testEndpoint, attempter, DefaultRetryPolicy())

	run := runner.Submit(context.Background(), domain.Submission{Text: sampleYML})
	_, ok := run.Result()
	assert.False(t, ok)
	assert.NoError(t, run.Err())

	close(release)
	waitDone(t, run)
	_, ok = run.Result()
	assert.True(t, ok)
}

func TestRunnerLint(t *testing.T) {
	srv, _ := lintServer(t, `<ul class="result"><li>unexpected key foo, dropping</li></ul>`, http.StatusOK)
	runner := newTestRunner(t, srv.URL)

	outcome := runner.Lint(context.Background(), domain.Submission{Text: sampleYML})
	require.Equal(t, domain.OutcomeFailure, outcome.Kind())
	assert.Equal(t, []string{"foo"}, outcome.BadKeywords())
}

func TestNewRunnerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty endpoint", Config{MaxAttempts: 2}},
		{"bad scheme", Config{Endpoint: "ftp://lint.example.test/", MaxAttempts: 2}},
		{"zero attempts", Config{Endpoint: testEndpoint}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewRunner(test.cfg)
			assert.Error(t, err)
		})
	}

	runner, err := NewRunner(Config{Endpoint: testEndpoint, MaxAttempts: 1})
	require.NoError(t, err)
	assert.Equal(t, testEndpoint, runner.Endpoint())
}
