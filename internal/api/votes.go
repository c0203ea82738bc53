package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/mountainmerge-comments/internal/auth"
	"github.com/UkralStul/mountainmerge-comments/internal/domain"
)

// GET /votes/{type}/{id}
func (s *Server) getVotes(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	targetType := domain.TargetType(chi.URLParam(r, "type"))
	if !targetType.Valid() {
		s.fail(w, r, domain.ErrInvalidTarget)
		return
	}

	summary, err := s.store.GetVoteSummary(r.Context(), userID, targetType, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// POST /votes
func (s *Server) toggleVote(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var input domain.ToggleVote
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(input); err != nil {
		s.fail(w, r, err)
		return
	}

	summary, err := s.store.ToggleUpvote(r.Context(), userID, input.TargetType, input.TargetID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
