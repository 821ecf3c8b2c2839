// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// SubjectLearningOverride carries override reflection tasks. Override learning
// runs detached from the request path: the decision gate publishes and never
// awaits the result.
const SubjectLearningOverride = "council.learning.override"

// OverrideTask is the payload for an override-triggered reflection pass.
type OverrideTask struct {
	DecisionID     string `json:"decision_id"`
	HumanDecision  string `json:"human_decision"`
	HumanRationale string `json:"human_rationale"`
}
