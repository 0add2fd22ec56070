// Package notify delivers account emails carrying OTPs.
package notify

import "context"

// Message is a plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message or reports why it could not. Delivery happens in
// the request path, so a failure fails the request.
type Sender interface {
	Name() string
	Send(ctx context.Context, m Message) error
}
