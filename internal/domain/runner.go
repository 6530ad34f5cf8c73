package domain

import "context"

// Submission is the configuration text handed to a single lint run.
// It is never mutated once a run has been started.
type Submission struct {
	ID       string
	Filename string
	Text     string
}

// Linter defines the contract for validating a configuration document against a remote rule set.
// Implementations run the submission to completion and always return an Outcome.
type Linter interface {
	// Lint blocks until the submission has either produced a response or run out of attempts.
	Lint(ctx context.Context, sub Submission) Outcome
}

// EndpointProvisioner defines the contract for starting a self-hosted lint endpoint.
type EndpointProvisioner interface {
	// StartEndpoint launches the lint service and returns the URL runners should POST to.
	StartEndpoint(ctx context.Context) (Endpoint, error)

	// StopEndpoint tears down an endpoint previously returned by StartEndpoint.
	StopEndpoint(ctx context.Context, endpoint Endpoint) error
}

// Endpoint describes a running lint service.
type Endpoint struct {
	ID  string
	URL string
}

// Job represents a queued lint request.
// It carries the YAML payload; the result is broadcast separately as a JobResult.
type Job struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	YML      string `json:"yml"`

	// Deliveries counts how many times earlier copies of this job were handed to a worker.
	Deliveries int64 `json:"deliveries,omitempty"`

	// RawID is the internal Stream ID from Redis (e.g. 1700000-0).
	// We need this to Acknowledge the message later.
	RawID string `json:"-"`
}

// Submission converts the job into the value a Linter consumes.
func (j Job) Submission() Submission {
	return Submission{ID: j.ID, Filename: j.Filename, Text: j.YML}
}

// JobResult is the wire form of an Outcome, keyed by the job that produced it.
type JobResult struct {
	JobID       string      `json:"job_id"`
	Kind        OutcomeKind `json:"kind"`
	Message     string      `json:"message,omitempty"`
	Items       []string    `json:"items,omitempty"`
	BadKeywords []string    `json:"bad_keywords,omitempty"`
}
