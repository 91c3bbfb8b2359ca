package gateway

import (
	"errors"
	"net/http"

	"github.com/ramavio/paperchat/internal/domain"
	"github.com/ramavio/paperchat/internal/llm"
)

func (s *Server) handleGeneralNewSession(w http.ResponseWriter, r *http.Request, u *domain.User) {
	s.createSession(w, r, u, domain.FeatureGeneral, "New Chat Session")
}

func (s *Server) handleGeneralSessions(w http.ResponseWriter, r *http.Request, u *domain.User) {
	s.listSessions(w, u, domain.FeatureGeneral)
}

// handleGeneralChat runs one turn against the session's general-knowledge
// agent. The whole exchange persists as a single row.
func (s *Server) handleGeneralChat(w http.ResponseWriter, r *http.Request, u *domain.User) {
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

	reply, err := s.orchestrator.GeneralTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		if errors.Is(err, llm.ErrSessionInit) {
			s.log.Error().Err(err).Int64("sessionId", sessionID).Msg("agent initialization failed")
			Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.log.Warn().Err(err).Int64("sessionId", sessionID).Msg("general turn failed")
	}
	response := formatResponse(displayable(reply))

	chat, err := s.chats.CreateChat(sessionID, &u.ID, domain.FeatureGeneral, req.Message, response, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("persisting general chat failed")
		Error(w, http.StatusInternalServerError, "could not save chat")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"message":   req.Message,
		"response":  response,
		"timestamp": chat.Timestamp.Format(domain.TimeFormat),
		"chat_id":   chat.ID,
	})
}
