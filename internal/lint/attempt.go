package lint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Attempter performs exactly one submission to the lint endpoint.
type Attempter interface {
	Attempt(ctx context.Context, text string) (string, error)
}

// StatusError is returned when the endpoint answers with a non-2xx status.
// The response body is discarded; only the status matters.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	class := "Client"
	if e.Code >= 500 {
		class = "Server"
	}
	return fmt.Sprintf("%d %s Error: %s for url: %s", e.Code, class, http.StatusText(e.Code), e.URL)
}

// Temporary reports whether the status is one a later attempt could plausibly fix.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}

// HTTPAttempter POSTs the configuration as a single form field.
type HTTPAttempter struct {
	endpoint string
	field    string
	client   *http.Client
}

var _ Attempter = (*HTTPAttempter)(nil)

// NewHTTPAttempter returns an attempter for endpoint. A zero timeout means no per-request limit.
func NewHTTPAttempter(endpoint, field string, timeout time.Duration) *HTTPAttempter {
	return &HTTPAttempter{
		endpoint: endpoint,
		field:    field,
		client:   &http.Client{Timeout: timeout},
	}
}

// Attempt returns the response body on any 2xx status.
func (a *HTTPAttempter) Attempt(ctx context.Context, text string) (string, error) {
	form := url.Values{a.field: {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build lint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Code: resp.StatusCode, URL: a.endpoint}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &url.Error{Op: "Read", URL: a.endpoint, Err: err}
	}
	return string(body), nil
}
