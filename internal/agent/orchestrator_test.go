package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramavio/paperchat/internal/domain"
	"github.com/ramavio/paperchat/internal/llm"
)

// stubSearcher returns a fixed result set and records keywords.
type stubSearcher struct {
	papers   []domain.Paper
	keywords []string
}

func (s *stubSearcher) SearchPapers(ctx context.Context, keyword string) []domain.Paper {
	s.keywords = append(s.keywords, keyword)
	return s.papers
}

// sessionsByRole builds a registry whose client hands out one scripted session
// per role, keyed by the persona prompt.
func sessionsByRole(t *testing.T, byRole map[Role]*llm.MockSession) *Registry {
	t.Helper()
	prompts := testPrompts()
	byPrompt := map[string]*llm.MockSession{}
	for role, sess := range byRole {
		p, err := prompts.Load(role)
		require.NoError(t, err)
		byPrompt[p] = sess
	}
	client := &llm.MockClient{
		NewSessionFunc: func(ctx context.Context, prompt string) (llm.ChatSession, error) {
			if s, ok := byPrompt[prompt]; ok {
				return s, nil
			}
			return &llm.MockSession{}, nil
		},
	}
	return NewRegistry(client, prompts, testLogger())
}

func searchReply(keyword string, search bool) string {
	return fmt.Sprintf(
		`[{"role": "keyword", "output": %q}, {"role": "options", "output": "", "search": %t, "add_paper": false}]`,
		keyword, search,
	)
}

func stopWithCodes(codes ...string) string {
	quoted := make([]string, len(codes))
	for i, c := range codes {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return fmt.Sprintf(
		`[{"role": "keyword", "output": ""}, {"role": "add_paper", "output": [%s]}, {"role": "options", "output": "", "search": false, "add_paper": true}]`,
		strings.Join(quoted, ", "),
	)
}

func TestDiscussTurn(t *testing.T) {
	discuss := &llm.MockSession{Replies: []string{
		"```json\n" + `[{"role": "user", "output": "Let me search."}, {"role": "system", "output": "directive"}]` + "\n```",
	}}
	reg := sessionsByRole(t, map[Role]*llm.MockSession{RoleDiscuss: discuss})
	o := NewOrchestrator(reg, &stubSearcher{}, OrchestratorConfig{}, testLogger())

	out, err := o.DiscussTurn(context.Background(), 1, "find me papers")
	require.NoError(t, err)
	assert.Equal(t, "Let me search.", out.UserOutput)
	assert.Equal(t, "directive", out.SystemOutput)

	// The user message is delivered in its role-tagged envelope.
	require.Len(t, discuss.Sent, 1)
	assert.Contains(t, discuss.Sent[0], `"role":"user"`)
	assert.Contains(t, discuss.Sent[0], "find me papers")

	// Both conversational agents exist after the first turn.
	assert.Equal(t, 2, reg.Len())
}

func TestDiscussTurnParseError(t *testing.T) {
	discuss := &llm.MockSession{Replies: []string{"```json\n{\"role\": broken}\n```"}}
	reg := sessionsByRole(t, map[Role]*llm.MockSession{RoleDiscuss: discuss})
	o := NewOrchestrator(reg, &stubSearcher{}, OrchestratorConfig{}, testLogger())

	_, err := o.DiscussTurn(context.Background(), 1, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error processing response")
}

func TestGeneralTurnReturnsRawReply(t *testing.T) {
	general := &llm.MockSession{Replies: []string{"Paris is the capital of France."}}
	reg := sessionsByRole(t, map[Role]*llm.MockSession{RoleGeneral: general})
	o := NewOrchestrator(reg, &stubSearcher{}, OrchestratorConfig{}, testLogger())

	out, err := o.GeneralTurn(context.Background(), 5, "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", out)
}

func TestSearchTurnSingleRound(t *testing.T) {
	search := &llm.MockSession{Replies: []string{
		searchReply("quantum computing", true),
		stopWithCodes("11111", "22222"),
	}}
	discuss := &llm.MockSession{Replies: []string{
		`[{"role": "user", "output": "Two relevant theses found."}]`,
	}}
	searcher := &stubSearcher{papers: []domain.Paper{
		{Citation: "A (2020)", Abstract: "a", Code: "11111"},
		{Citation: "B (2021)", Abstract: "b", Code: "22222"},
	}}
	reg := sessionsByRole(t, map[Role]*llm.MockSession{RoleSearch: search, RoleDiscuss: discuss})
	o := NewOrchestrator(reg, searcher, OrchestratorConfig{}, testLogger())

	var events []string
	out, err := o.SearchTurn(context.Background(), 1, "directive", func(ev string, _ map[string]any) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"11111", "22222"}, out.PaperCodes)
	assert.Equal(t, "Two relevant theses found.", out.Enhanced)
	assert.Equal(t, []string{"quantum computing"}, searcher.keywords)

	assert.Equal(t, []string{
		"Processing search request...",
		"Searching for keyword: quantum computing",
		"Search results found: 2",
		"Analyzing search results and selecting relevant papers...",
		"Search completed.",
	}, out.Steps)
	assert.Equal(t, []string{
		EventProcessingStart,
		EventSearchingForKeyword,
		EventResultsFound,
		EventAnalyzingResults,
		EventSearchComplete,
	}, events)

	// The second round's input carries the repository results back.
	require.Len(t, search.Sent, 2)
	assert.Equal(t, "directive", search.Sent[0])
	assert.Contains(t, search.Sent[1], `"role":"search_result"`)
	assert.Contains(t, search.Sent[1], "A (2020)")

	// Enrichment goes to the discuss agent as a system envelope.
	require.Len(t, discuss.Sent, 1)
	assert.Contains(t, discuss.Sent[0], `"role": "system"`)
	assert.Contains(t, discuss.Sent[0], "11111")
}

func TestSearchTurnNoResults(t *testing.T) {
	search := &llm.MockSession{Replies: []string{
		searchReply("nonexistent topic", true),
		searchReply("", false),
	}}
	reg := sessionsByRole(t, map[Role]*llm.MockSession{RoleSearch: search})
	o := NewOrchestrator(reg, &stubSearcher{}, OrchestratorConfig{}, testLogger())

	out, err := o.SearchTurn(context.Background(), 1, "directive", nil)
	require.NoError(t, err)

	assert.Empty(t, out.PaperCodes)
	assert.Empty(t, out.Enhanced)
	assert.Contains(t, out.Steps, "No results found for keyword: nonexistent topic")
	assert.Contains(t, out.Steps, "Search results found: 0")
}

func TestSearchTurnStopsAtRoundCap(t *testing.T) {
	// A session that always asks for another search must not loop forever.
	search := &llm.MockSession{
		SendFunc: func(ctx context.Context, text string) (string, error) {
			return searchReply("more", true), nil
		},
	}
	reg := sessionsByRole(t, map[Role]*llm.MockSession{RoleSearch: search})
	searcher := &stubSearcher{papers: []domain.Paper{{Code: "1"}}}
	o := NewOrchestrator(reg, searcher, OrchestratorConfig{MaxRounds: 3}, testLogger())

	out, err := o.SearchTurn(context.Background(), 1, "directive", nil)
	require.NoError(t, err)

	assert.Len(t, search.Sent, 3)
	assert.Len(t, searcher.keywords, 3)
	assert.Empty(t, out.PaperCodes)
	assert.Contains(t, out.Steps, "Search round limit (3) reached, stopping.")
	assert.Equal(t, "Search completed.", out.Steps[len(out.Steps)-1])
}

func TestSearchTurnHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	search := &llm.MockSession{
		SendFunc: func(ctx context.Context, text string) (string, error) {
			cancel() // consumer disconnects mid-loop
			return searchReply("more", true), nil
		},
	}
	reg := sessionsByRole(t, map[Role]*llm.MockSession{RoleSearch: search})
	o := NewOrchestrator(reg, &stubSearcher{}, OrchestratorConfig{MaxRounds: 6}, testLogger())

	out, err := o.SearchTurn(ctx, 1, "directive", nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, out)
	assert.Len(t, search.Sent, 1)
}

func TestSearchTurnInertDirectiveSkipsSearch(t *testing.T) {
	search := &llm.MockSession{Replies: []string{"completely malformed reply"}}
	searcher := &stubSearcher{}
	reg := sessionsByRole(t, map[Role]*llm.MockSession{RoleSearch: search})
	o := NewOrchestrator(reg, searcher, OrchestratorConfig{}, testLogger())

	out, err := o.SearchTurn(context.Background(), 1, "directive", nil)
	require.NoError(t, err)

	assert.Empty(t, searcher.keywords)
	assert.Empty(t, out.PaperCodes)
	assert.Equal(t, []string{"Processing search request...", "Search completed."}, out.Steps)
}

func TestEnrichFallbacks(t *testing.T) {
	t.Run("empty user output", func(t *testing.T) {
		search := &llm.MockSession{Replies: []string{stopWithCodes("999")}}
		discuss := &llm.MockSession{Replies: []string{`[{"role": "system", "output": "nothing for the user"}]`}}
		reg := sessionsByRole(t, map[Role]*llm.MockSession{RoleSearch: search, RoleDiscuss: discuss})
		o := NewOrchestrator(reg, &stubSearcher{}, OrchestratorConfig{}, testLogger())

		out, err := o.SearchTurn(context.Background(), 1, "directive", nil)
		require.NoError(t, err)
		assert.Equal(t, "No relevant information found from the search results.", out.Enhanced)
	})

	t.Run("send failure", func(t *testing.T) {
		search := &llm.MockSession{Replies: []string{stopWithCodes("999")}}
		discuss := &llm.MockSession{
			SendFunc: func(ctx context.Context, text string) (string, error) {
				return "", fmt.Errorf("upstream unavailable")
			},
		}
		reg := sessionsByRole(t, map[Role]*llm.MockSession{RoleSearch: search, RoleDiscuss: discuss})
		o := NewOrchestrator(reg, &stubSearcher{}, OrchestratorConfig{}, testLogger())

		out, err := o.SearchTurn(context.Background(), 1, "directive", nil)
		require.NoError(t, err)
		assert.Equal(t, "An error occurred while processing the search results.", out.Enhanced)
	})
}
