// Package mailer sends newsletter email through an email service
// provider's HTTP API.
package mailer

import (
	"context"
)

// Client defines the interface for sending email through a provider.
type Client interface {
	// Send delivers a message. A nil error means the provider accepted
	// the message; failures carry classification via SendError.
	Send(ctx context.Context, msg *Message) error
	// Name returns the provider's identifier (e.g., "postmark").
	Name() string
}

// Message represents a single email to one recipient.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// HTTPClient abstracts HTTP operations for testability. Implementations
// must honor ctx cancellation so a shutdown or send timeout cuts an
// in-flight request short.
type HTTPClient interface {
	Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

// HTTPRequest represents an outgoing HTTP request.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// HTTPResponse represents an HTTP response from a provider API.
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}
