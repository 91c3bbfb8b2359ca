package gateway

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramavio/paperchat/internal/domain"
	"github.com/ramavio/paperchat/internal/store"
)

// handlePaperDetail serves one paper's scraped detail record plus the
// caller's bookmark state.
func (s *Server) handlePaperDetail(w http.ResponseWriter, r *http.Request, u *domain.User) {
	code := chi.URLParam(r, "code")

	detail := s.fetcher.ExtractMetadata(r.Context(), code)
	if detail.Err != "" {
		Error(w, http.StatusBadGateway, detail.Err)
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"paper":    detail,
		"is_saved": s.papers.IsSaved(u.ID, code),
	})
}

func (s *Server) handlePaperSave(w http.ResponseWriter, r *http.Request, u *domain.User) {
	code := chi.URLParam(r, "code")

	if s.papers.IsSaved(u.ID, code) {
		Error(w, http.StatusBadRequest, "Paper already bookmarked")
		return
	}

	// The bookmark title comes from the live detail page; a paper that cannot
	// be fetched cannot be saved.
	detail := s.fetcher.ExtractMetadata(r.Context(), code)
	if detail.Err != "" {
		Error(w, http.StatusInternalServerError, detail.Err)
		return
	}

	if err := s.papers.Save(u.ID, code, detail.Title); err != nil {
		if errors.Is(err, store.ErrPaperAlreadySaved) {
			Error(w, http.StatusBadRequest, "Paper already bookmarked")
			return
		}
		s.log.Error().Err(err).Str("code", code).Msg("saving paper failed")
		Error(w, http.StatusInternalServerError, "could not save paper")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Paper bookmarked successfully"})
}

func (s *Server) handlePaperRemove(w http.ResponseWriter, r *http.Request, u *domain.User) {
	code := chi.URLParam(r, "code")

	err := s.papers.Remove(u.ID, code)
	if errors.Is(err, store.ErrPaperNotSaved) {
		Error(w, http.StatusNotFound, "Paper not found in saved list")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("code", code).Msg("removing paper failed")
		Error(w, http.StatusInternalServerError, "could not remove paper")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Paper removed successfully"})
}

func (s *Server) handleSavedPapers(w http.ResponseWriter, r *http.Request, u *domain.User) {
	list, err := s.papers.List(u.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("listing saved papers failed")
		Error(w, http.StatusInternalServerError, "could not list saved papers")
		return
	}
	if list == nil {
		list = []domain.SavedPaper{}
	}
	JSON(w, http.StatusOK, map[string]any{"saved_papers": list})
}
