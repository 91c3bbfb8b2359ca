package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramavio/paperchat/internal/agent"
	"github.com/ramavio/paperchat/internal/domain"
	"github.com/ramavio/paperchat/internal/llm"
	"github.com/ramavio/paperchat/internal/store"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

type newSessionRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleSearchNewSession(w http.ResponseWriter, r *http.Request, u *domain.User) {
	s.createSession(w, r, u, domain.FeatureSearch, "New Search Session")
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request, u *domain.User, feature domain.Feature, defaultTitle string) {
	var req newSessionRequest
	_ = decodeBody(r, &req) // body is optional
	if req.Title == "" {
		req.Title = defaultTitle
	}

	sess, err := s.chats.CreateSession(u.ID, feature, req.Title)
	if err != nil {
		s.log.Error().Err(err).Msg("session creation failed")
		Error(w, http.StatusInternalServerError, "could not create session")
		return
	}
	s.log.Info().Int64("sessionId", sess.ID).Str("feature", string(feature)).Msg("session created")
	JSON(w, http.StatusOK, map[string]int64{"session_id": sess.ID})
}

type chatRequest struct {
	Message string `json:"message"`
}

// handleSearchChat runs the synchronous phase of a search turn: persist the
// user row, ask the discuss agent, persist a provisional assistant row, and
// tell the client whether a streamed search phase should follow.
func (s *Server) handleSearchChat(w http.ResponseWriter, r *http.Request, u *domain.User) {
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req chatRequest
	if err := decodeBody(r, &req); err != nil || req.Message == "" {
		Error(w, http.StatusBadRequest, "No message provided")
		return
	}

	if _, err := s.chats.GetSession(sessionID, u.ID); err != nil {
		Error(w, http.StatusNotFound, "Invalid session ID")
		return
	}

	if _, err := s.chats.CreateChat(sessionID, &u.ID, domain.FeatureSearch, req.Message, "", nil); err != nil {
		s.log.Error().Err(err).Msg("persisting user message failed")
		Error(w, http.StatusInternalServerError, "could not save message")
		return
	}

	out, err := s.orchestrator.DiscussTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		// A session that never came up is fatal; parse and send failures
		// degrade to the apology fallback instead.
		if errors.Is(err, llm.ErrSessionInit) {
			s.log.Error().Err(err).Int64("sessionId", sessionID).Msg("agent initialization failed")
			Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.log.Warn().Err(err).Int64("sessionId", sessionID).Msg("discuss turn failed")
		out = &agent.DiscussOutcome{}
	}

	initial := formatResponse(displayable(out.UserOutput))
	assistant, err := s.chats.CreateChat(sessionID, nil, domain.FeatureSearch, "", initial, []string{})
	if err != nil {
		s.log.Error().Err(err).Msg("persisting assistant response failed")
		Error(w, http.StatusInternalServerError, "could not save response")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"message":          req.Message,
		"initial_response": initial,
		"needs_search":     out.SystemOutput != "",
		"system_output":    out.SystemOutput,
		"paper_codes":      []string{},
		"search_steps":     []string{},
		"timestamp":        assistant.Timestamp.Format(domain.TimeFormat),
		"chat_id":          assistant.ID,
	})
}

// handleSearchProcess streams the search phase over SSE. The stream always
// ends with exactly one terminal event; the assistant row is patched once,
// only when an enriched answer was produced.
func (s *Server) handleSearchProcess(w http.ResponseWriter, r *http.Request, u *domain.User) {
	chatID, ok := pathID(r, "chatID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	chat := s.chats.GetChat(chatID)
	if chat == nil {
		Error(w, http.StatusNotFound, "Chat not found")
		return
	}
	owner, err := s.chats.SessionOwner(chat.SessionID)
	if err != nil || owner != u.ID {
		Error(w, http.StatusForbidden, "Unauthorized")
		return
	}

	systemOutput := r.URL.Query().Get("system_output")
	if systemOutput == "" {
		Error(w, http.StatusBadRequest, "No system output provided")
		return
	}

	sink, err := newEventSink(w)
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	out, err := s.orchestrator.SearchTurn(r.Context(), chat.SessionID, systemOutput, func(event string, payload map[string]any) {
		sink.Send(event, payload)
	})
	if err != nil {
		// Client disconnects land here too; the write is then a no-op.
		var steps []string
		if out != nil {
			steps = out.Steps
		}
		sink.SendData(map[string]any{
			"success":       false,
			"searchUpdates": steps,
			"error":         err.Error(),
			"complete":      true,
		})
		return
	}

	codes := out.PaperCodes
	if codes == nil {
		codes = []string{}
	}

	var enhanced any
	if out.Enhanced != "" {
		log := s.log.WithSession(chat.SessionID)
		formatted := formatResponse(out.Enhanced)
		enhanced = formatted
		patched, err := s.chats.UpdateChatResponse(chatID, formatted, out.Steps)
		if err != nil {
			log.Error().Err(err).Int64("chatId", chatID).Msg("patching enriched response failed")
		} else if !patched {
			log.Warn().Int64("chatId", chatID).Msg("chat row gone before patch, skipping")
		}
	}

	sink.SendData(map[string]any{
		"success":          true,
		"searchUpdates":    out.Steps,
		"enhancedResponse": enhanced,
		"paperCodes":       codes,
		"timestamp":        chat.Timestamp.Format(domain.TimeFormat),
		"complete":         true,
	})
}

// handleEnhancedResponse serves the polling fallback: whatever response the
// chat row currently holds, provisional or final.
func (s *Server) handleEnhancedResponse(w http.ResponseWriter, r *http.Request, u *domain.User) {
	chatID, ok := pathID(r, "chatID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	chat := s.chats.GetChat(chatID)
	if chat == nil {
		Error(w, http.StatusNotFound, "Chat not found")
		return
	}
	owner, err := s.chats.SessionOwner(chat.SessionID)
	if err != nil || owner != u.ID {
		Error(w, http.StatusForbidden, "Unauthorized")
		return
	}

	steps := chat.SearchSteps
	if steps == nil {
		steps = []string{}
	}
	JSON(w, http.StatusOK, map[string]any{
		"chat_id":      chat.ID,
		"response":     chat.Response,
		"search_steps": steps,
		"timestamp":    chat.Timestamp.Format(domain.TimeFormat),
		"is_updated":   true,
	})
}

func (s *Server) handleSearchSessions(w http.ResponseWriter, r *http.Request, u *domain.User) {
	s.listSessions(w, u, domain.FeatureSearch)
}

func (s *Server) listSessions(w http.ResponseWriter, u *domain.User, feature domain.Feature) {
	sessions, err := s.chats.ListSessions(u.ID, feature)
	if err != nil {
		s.log.Error().Err(err).Msg("listing sessions failed")
		Error(w, http.StatusInternalServerError, "could not list sessions")
		return
	}

	out := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, map[string]any{
			"id":        sess.ID,
			"title":     sess.Title,
			"timestamp": sess.Timestamp.Format(domain.TimeFormat),
		})
	}
	JSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleSessionChats(w http.ResponseWriter, r *http.Request, u *domain.User) {
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if _, err := s.chats.GetSession(sessionID, u.ID); err != nil {
		Error(w, http.StatusNotFound, "Invalid session ID")
		return
	}

	chats, err := s.chats.ListChats(sessionID)
	if err != nil {
		s.log.Error().Err(err).Msg("listing chats failed")
		Error(w, http.StatusInternalServerError, "could not list chats")
		return
	}

	out := make([]map[string]any, 0, len(chats))
	for _, c := range chats {
		steps := c.SearchSteps
		if steps == nil {
			steps = []string{}
		}
		out = append(out, map[string]any{
			"id":           c.ID,
			"message":      c.Message,
			"response":     c.Response,
			"search_steps": steps,
			"is_user":      c.UserID != nil,
			"timestamp":    c.Timestamp.Format(domain.TimeFormat),
		})
	}
	JSON(w, http.StatusOK, map[string]any{"chats": out})
}

// handleDeleteSession removes a session, its rows, and the cached agents.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, u *domain.User) {
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	err := s.chats.DeleteSession(sessionID, u.ID)
	if errors.Is(err, store.ErrSessionNotFound) {
		Error(w, http.StatusNotFound, "Invalid session ID")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("deleting session failed")
		Error(w, http.StatusInternalServerError, "could not delete session")
		return
	}

	s.registry.Invalidate(sessionID)
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
