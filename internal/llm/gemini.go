package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiClient is a direct HTTP client for the Google Gemini API. Each session
// keeps its own transcript and replays it on every generateContent call, which
// is how the API models multi-turn chat.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the API endpoint (used by tests).
func WithBaseURL(u string) GeminiOption {
	return func(g *GeminiClient) { g.baseURL = u }
}

// WithTimeout bounds each HTTP call to the API.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *GeminiClient) { g.client.Timeout = d }
}

// NewGeminiClient creates a Gemini API client for the given model.
func NewGeminiClient(apiKey, model string, opts ...GeminiOption) *GeminiClient {
	g := &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the provider name.
func (g *GeminiClient) Name() string { return "gemini" }

// NewSession creates a chat session bound to a system instruction. Only the
// presence of the API key is checked here; a bad key or model name surfaces
// on the first Send.
func (g *GeminiClient) NewSession(ctx context.Context, systemPrompt string) (ChatSession, error) {
	s := &geminiSession{client: g, system: systemPrompt}
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrSessionInit)
	}
	return s, nil
}

// geminiSession holds one conversation transcript.
type geminiSession struct {
	client *GeminiClient
	system string

	mu      sync.Mutex
	history []geminiContent
}

// Send appends the user text to the transcript, calls the API with the full
// history, records the reply, and returns its text.
func (s *geminiSession) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents := append(append([]geminiContent(nil), s.history...), geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: text}},
	})

	reply, err := s.client.generate(ctx, s.system, contents)
	if err != nil {
		return "", err
	}

	s.history = append(contents, geminiContent{
		Role:  "model",
		Parts: []geminiPart{{Text: reply}},
	})
	return reply, nil
}

func (g *GeminiClient) generate(ctx context.Context, system string, contents []geminiContent) (string, error) {
	body := geminiRequest{Contents: contents}
	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrSend, err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSend, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSend, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrSend, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: API error (%d): %s", ErrSend, resp.StatusCode, string(respBody))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrSend, err)
	}

	var out strings.Builder
	if len(result.Candidates) > 0 {
		for _, part := range result.Candidates[0].Content.Parts {
			out.WriteString(part.Text)
		}
	}
	return out.String(), nil
}

// Wire structures.

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}
