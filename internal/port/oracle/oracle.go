// Package oracle defines the evaluator oracle port: an opaque reasoning
// capability that answers judgment requests. The core never retries a failed
// call; failures are recovered locally by the caller.
package oracle

import "context"

// Message is one turn of an oracle conversation.
type Message struct {
	Role    string `json:"role"` // "system" | "user"
	Content string `json:"content"`
}

// Request is a single judgment request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Response is the oracle's raw answer. Content may be wrapped in decorative
// formatting (markdown fences); callers must tolerate that.
type Response struct {
	Content   string
	Model     string
	TokensIn  int
	TokensOut int
}

// Oracle is the port interface for the evaluator reasoning service.
type Oracle interface {
	// Judge answers a free-form judgment request.
	Judge(ctx context.Context, req Request) (*Response, error)

	// Ask answers a structured-output request: the schema description is
	// appended to the system message and the reply is expected to be a JSON
	// object matching it. Parsing is the caller's responsibility.
	Ask(ctx context.Context, req Request, schema map[string]string) (*Response, error)
}
