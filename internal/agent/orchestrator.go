package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ramavio/paperchat/internal/domain"
	"github.com/ramavio/paperchat/internal/llm"
	"github.com/ramavio/paperchat/internal/logging"
)

// Progress event names streamed to the client during a search turn.
const (
	EventProcessingStart     = "processing-start"
	EventSearchingForKeyword = "searching-for-keyword"
	EventResultsFound        = "results-found"
	EventNoResults           = "no-results"
	EventAnalyzingResults    = "analyzing-results"
	EventSearchComplete      = "search-complete"
)

// ProgressFunc receives a named progress event with its payload. A nil
// ProgressFunc is valid and discards events.
type ProgressFunc func(event string, payload map[string]any)

// PaperSearcher performs the external repository lookup for one keyword,
// returning enriched results. Implementations never fail wholesale: transient
// errors yield an empty or partial slice.
type PaperSearcher interface {
	SearchPapers(ctx context.Context, keyword string) []domain.Paper
}

// Orchestrator drives the multi-turn protocol between the web layer and the
// per-session chat agents.
type Orchestrator struct {
	registry *Registry
	searcher PaperSearcher
	log      *logging.Logger

	// maxRounds caps search-agent rounds per user turn so a model that never
	// stops requesting searches cannot stall the request.
	maxRounds   int
	sendTimeout time.Duration
	pacing      time.Duration
}

// OrchestratorConfig tunes the loop bounds.
type OrchestratorConfig struct {
	MaxRounds   int           // default 6
	SendTimeout time.Duration // per model call, default 30s
	Pacing      time.Duration // delay between observable steps, default 0
}

// NewOrchestrator wires the loop to its collaborators.
func NewOrchestrator(reg *Registry, searcher PaperSearcher, cfg OrchestratorConfig, log *logging.Logger) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 6
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	return &Orchestrator{
		registry:    reg,
		searcher:    searcher,
		log:         log.Sub("orchestrator"),
		maxRounds:   cfg.MaxRounds,
		sendTimeout: cfg.SendTimeout,
		pacing:      cfg.Pacing,
	}
}

// DiscussOutcome is the result of the synchronous first phase of a search
// turn: the discuss agent's immediate answer plus the directive, if any, that
// the streaming phase will hand to the search agent.
type DiscussOutcome struct {
	UserOutput   string
	SystemOutput string
}

// SearchOutcome is the result of the streamed search phase.
type SearchOutcome struct {
	PaperCodes []string
	Steps      []string
	Enhanced   string // enriched answer, empty when no papers were attached
}

// send delivers one message to an agent under the per-call timeout. Errors
// (including expiry) degrade to an empty reply, which the decoders turn into
// an inert directive.
func (o *Orchestrator) send(ctx context.Context, sess llm.ChatSession, text string) string {
	callCtx, cancel := context.WithTimeout(ctx, o.sendTimeout)
	defer cancel()

	reply, err := sess.Send(callCtx, text)
	if err != nil {
		o.log.Warn().Err(err).Msg("agent send failed, degrading to inert turn")
		return ""
	}
	return reply
}

// pause sleeps for the pacing interval, honoring cancellation.
func (o *Orchestrator) pause(ctx context.Context) {
	if o.pacing <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(o.pacing):
	}
}

// wrapUserInput encodes a user message as the role-tagged envelope the discuss
// agent's persona expects.
func wrapUserInput(text string) string {
	payload, _ := json.Marshal([]map[string]string{{"role": "user", "input": text}})
	return string(payload)
}

// wrapSearchResults encodes repository results for re-feeding the search agent.
func wrapSearchResults(papers []domain.Paper) string {
	inner, _ := json.MarshalIndent(papers, "", "    ")
	payload, _ := json.Marshal([]map[string]string{{"role": "search_result", "input": string(inner)}})
	return string(payload)
}

// wrapSystemCodes encodes the selected paper codes for the discuss agent's
// enrichment pass.
func wrapSystemCodes(codes []string) string {
	inner, _ := json.MarshalIndent(codes, "", "    ")
	payload, _ := json.MarshalIndent([]map[string]string{{"role": "system", "input": string(inner)}}, "", "    ")
	return string(payload)
}

// DiscussTurn sends one user message to the session's discuss agent and
// decodes its two-channel reply. An explicit decode error is reported to the
// caller so the web layer can show the apology fallback.
func (o *Orchestrator) DiscussTurn(ctx context.Context, sessionID int64, userInput string) (*DiscussOutcome, error) {
	sess, err := o.registry.GetOrCreate(ctx, RoleDiscuss, sessionID)
	if err != nil {
		return nil, err
	}
	// The search agent is created alongside so both share conversational
	// lifetime from the session's first turn.
	if _, err := o.registry.GetOrCreate(ctx, RoleSearch, sessionID); err != nil {
		return nil, err
	}

	reply := o.send(ctx, sess, wrapUserInput(userInput))
	d := DecodeDiscussResponse(reply)
	if d.ParseErr != "" {
		o.log.Warn().Str("parseErr", d.ParseErr).Int64("sessionId", sessionID).Msg("discuss reply not parseable")
		return nil, fmt.Errorf("error processing response: %s", d.ParseErr)
	}

	return &DiscussOutcome{UserOutput: d.UserOutput, SystemOutput: d.SystemOutput}, nil
}

// GeneralTurn sends one user message to the session's general-knowledge agent
// and returns the raw reply text.
func (o *Orchestrator) GeneralTurn(ctx context.Context, sessionID int64, userInput string) (string, error) {
	sess, err := o.registry.GetOrCreate(ctx, RoleGeneral, sessionID)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.sendTimeout)
	defer cancel()

	reply, err := sess.Send(callCtx, wrapUserInput(userInput))
	if err != nil {
		return "", err
	}
	return reply, nil
}

// SearchTurn runs the bounded search loop for one user turn:
//
//	AwaitingDecision -> Searching -> AwaitingDecision -> ... -> Enriching -> Done
//
// systemOutput is the directive produced by the preceding DiscussTurn. Every
// externally observable step emits a progress event and appends a
// human-readable entry to the returned step log.
func (o *Orchestrator) SearchTurn(ctx context.Context, sessionID int64, systemOutput string, emit ProgressFunc) (*SearchOutcome, error) {
	if emit == nil {
		emit = func(string, map[string]any) {}
	}

	searchAgent, err := o.registry.GetOrCreate(ctx, RoleSearch, sessionID)
	if err != nil {
		return nil, err
	}

	out := &SearchOutcome{}
	step := func(s string) {
		out.Steps = append(out.Steps, s)
	}

	step("Processing search request...")
	emit(EventProcessingStart, map[string]any{"update": "Processing search request..."})
	o.pause(ctx)

	input := systemOutput
	var codes []string

	for round := 0; round < o.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			// Consumer went away; stop burning external calls.
			return out, err
		}

		reply := o.send(ctx, searchAgent, input)
		d := DecodeSearchResponse(reply)
		o.log.Debug().
			Bool("shouldSearch", d.ShouldSearch).
			Str("keyword", d.Keyword).
			Int("codes", len(d.PaperCodes)).
			Msg("search agent directive")

		if !d.ShouldSearch || d.Keyword == "" {
			codes = d.PaperCodes
			break
		}

		msg := "Searching for keyword: " + d.Keyword
		step(msg)
		emit(EventSearchingForKeyword, map[string]any{"update": msg, "keyword": d.Keyword})
		o.pause(ctx)

		papers := o.searcher.SearchPapers(ctx, d.Keyword)
		if len(papers) > 0 {
			found := fmt.Sprintf("Search results found: %d", len(papers))
			step(found)
			emit(EventResultsFound, map[string]any{"update": found, "count": len(papers)})
		} else {
			none := "No results found for keyword: " + d.Keyword
			step(none)
			emit(EventNoResults, map[string]any{"update": none, "keyword": d.Keyword})
			step("Search results found: 0")
		}

		step("Analyzing search results and selecting relevant papers...")
		emit(EventAnalyzingResults, map[string]any{"update": "Analyzing search results and selecting relevant papers..."})
		o.pause(ctx)

		input = wrapSearchResults(papers)

		if round == o.maxRounds-1 {
			// Round cap hit with the model still asking for searches.
			step(fmt.Sprintf("Search round limit (%d) reached, stopping.", o.maxRounds))
			o.log.Warn().Int("maxRounds", o.maxRounds).Int64("sessionId", sessionID).Msg("search round cap reached")
		}
	}

	out.PaperCodes = codes
	step("Search completed.")
	emit(EventSearchComplete, map[string]any{"update": "Search completed."})

	if len(codes) > 0 {
		out.Enhanced = o.enrich(ctx, sessionID, codes, step)
	}

	return out, nil
}

// enrich hands the selected paper codes to the persistent discuss agent and
// returns the enriched answer text. Failures produce a displayable fallback,
// never an error: the turn must always end with something to show.
func (o *Orchestrator) enrich(ctx context.Context, sessionID int64, codes []string, step func(string)) string {
	discussAgent, err := o.registry.GetOrCreate(ctx, RoleDiscuss, sessionID)
	if err != nil {
		step("Error processing enhanced response: " + err.Error())
		return "An error occurred while processing the search results."
	}

	callCtx, cancel := context.WithTimeout(ctx, o.sendTimeout)
	defer cancel()

	reply, err := discussAgent.Send(callCtx, wrapSystemCodes(codes))
	if err != nil {
		o.log.Error().Err(err).Int64("sessionId", sessionID).Msg("enrichment send failed")
		step("Error processing enhanced response: " + err.Error())
		return "An error occurred while processing the search results."
	}

	d := DecodeDiscussResponse(reply)
	if d.ParseErr != "" {
		o.log.Warn().Str("parseErr", d.ParseErr).Msg("enrichment reply not parseable, using raw text")
	}
	if d.UserOutput == "" {
		return "No relevant information found from the search results."
	}
	return d.UserOutput
}
