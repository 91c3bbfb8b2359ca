// Package llm defines the chat model collaborator: a client that opens
// stateful conversation sessions bound to a system instruction, and the
// sessions themselves. The transcript is owned by the session; callers only
// exchange text.
package llm

import (
	"context"
	"errors"
)

// ErrSessionInit marks a failure to create a chat session. It is fatal to the
// current request and must not leave a broken handle behind.
var ErrSessionInit = errors.New("llm: session initialization failed")

// ErrSend marks a failure to exchange one message on an established session.
var ErrSend = errors.New("llm: send failed")

// ChatSession is an opaque handle to one multi-turn conversation with the
// model. Implementations must be safe for sequential reuse across requests;
// concurrent Send calls on one session are not supported.
type ChatSession interface {
	// Send delivers one user-side text and returns the model's reply text.
	Send(ctx context.Context, text string) (string, error)
}

// Client opens chat sessions.
type Client interface {
	// NewSession creates a session bound to the given system instruction.
	NewSession(ctx context.Context, systemPrompt string) (ChatSession, error)

	// Name returns the provider name (e.g. "gemini").
	Name() string
}
