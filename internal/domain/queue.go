package domain

import "context"

// LintQueue defines the contract for a distributed lint job queue.
// It decouples the application from the underlying message broker (Redis, RabbitMQ, etc.).
type LintQueue interface {
	// Publish enqueues a job for processing.
	Publish(ctx context.Context, job Job) error

	// Subscribe returns a read-only channel that streams jobs from the queue.
	// It handles the details of consumer groups internally.
	Subscribe(ctx context.Context) (<-chan Job, error)

	// Acknowledge confirms that a job has been processed.
	// This removes it from the Pending Entry list (PEL).
	Acknowledge(ctx context.Context, rawID string) error

	// Broadcast publishes the lint result to the Pub/Sub channel.
	Broadcast(ctx context.Context, result JobResult) error

	// SubscribeResults returns a channel that streams lint results from all workers.
	SubscribeResults(ctx context.Context) (<-chan JobResult, error)
}
