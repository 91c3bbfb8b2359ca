package agent

import (
	"context"
	"sync"

	"github.com/ramavio/paperchat/internal/llm"
	"github.com/ramavio/paperchat/internal/logging"
)

// agentKey addresses one cached agent: exactly one agent of each role exists
// per session id at any time.
type agentKey struct {
	role      Role
	sessionID int64
}

// Registry caches long-lived conversational agents by (role, session id).
// Entries are created lazily on first use and removed only by Invalidate —
// the handles are cheap but stand for remote conversational context, so
// explicit invalidation on session deletion is the sole consistency mechanism.
type Registry struct {
	client  llm.Client
	prompts PromptLoader
	log     *logging.Logger

	mu     sync.Mutex
	agents map[agentKey]llm.ChatSession
}

// NewRegistry creates an empty agent registry.
func NewRegistry(client llm.Client, prompts PromptLoader, log *logging.Logger) *Registry {
	return &Registry{
		client:  client,
		prompts: prompts,
		log:     log.Sub("agents"),
		agents:  make(map[agentKey]llm.ChatSession),
	}
}

// GetOrCreate returns the cached agent for (role, sessionID), creating it on
// first use. Repeated calls return the identical handle; the system prompt is
// sent only at creation. A creation failure is returned to the caller and
// leaves no entry behind.
func (r *Registry) GetOrCreate(ctx context.Context, role Role, sessionID int64) (llm.ChatSession, error) {
	key := agentKey{role: role, sessionID: sessionID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.agents[key]; ok {
		return sess, nil
	}

	prompt, err := r.prompts.Load(role)
	if err != nil {
		r.log.Warn().Err(err).Str("role", string(role)).Msg("prompt unavailable, using default persona")
		prompt = defaultPersona(role)
	}

	sess, err := r.client.NewSession(ctx, prompt)
	if err != nil {
		return nil, err
	}

	r.agents[key] = sess
	r.log.Info().Str("role", string(role)).Int64("sessionId", sessionID).Msg("agent created")
	return sess, nil
}

// Invalidate removes all cached agents for a session id. Called when the
// user deletes the session.
func (r *Registry) Invalidate(sessionID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, role := range []Role{RoleDiscuss, RoleSearch, RoleGeneral} {
		delete(r.agents, agentKey{role: role, sessionID: sessionID})
	}
	r.log.Info().Int64("sessionId", sessionID).Msg("agents invalidated")
}

// Len reports how many agents are cached. Used by tests and status reporting.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agents)
}
