package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName   string
	NewSessionFunc func(ctx context.Context, systemPrompt string) (ChatSession, error)
}

func (m *MockClient) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

func (m *MockClient) NewSession(ctx context.Context, systemPrompt string) (ChatSession, error) {
	if m.NewSessionFunc != nil {
		return m.NewSessionFunc(ctx, systemPrompt)
	}
	return &MockSession{}, nil
}

// MockSession is a scriptable ChatSession. Replies are consumed in order; when
// they run out, SendFunc is consulted, then a static fallback.
type MockSession struct {
	Replies  []string
	SendFunc func(ctx context.Context, text string) (string, error)

	Sent []string // every text passed to Send, in order
}

func (m *MockSession) Send(ctx context.Context, text string) (string, error) {
	m.Sent = append(m.Sent, text)
	if len(m.Replies) > 0 {
		reply := m.Replies[0]
		m.Replies = m.Replies[1:]
		return reply, nil
	}
	if m.SendFunc != nil {
		return m.SendFunc(ctx, text)
	}
	return "mock reply", nil
}
