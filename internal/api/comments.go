package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/mountainmerge-comments/internal/auth"
	"github.com/UkralStul/mountainmerge-comments/internal/dataloader"
	"github.com/UkralStul/mountainmerge-comments/internal/domain"
)

type commentsResp struct {
	Comments []*domain.Comment `json:"comments"`
}

type commentResp struct {
	Comment *domain.Comment `json:"comment"`
}

// GET /comments?target=<id>
func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	targetID := r.URL.Query().Get("target")
	if targetID == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}

	comments, err := s.store.ListComments(r.Context(), targetID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}

	// Без авторов список всё равно пригоден, поэтому ошибка не фатальна
	if err := dataloader.AttachAuthors(r.Context(), comments); err != nil {
		s.log.Warn().Err(err).Str("target_id", targetID).Msg("failed to attach authors")
	}

	writeJSON(w, http.StatusOK, commentsResp{Comments: comments})
}

// POST /comments
func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var input domain.NewComment
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(input); err != nil {
		s.fail(w, r, err)
		return
	}

	comment, err := s.store.CreateComment(r.Context(), &domain.Comment{
		TargetID:   input.TargetID,
		TargetType: input.TargetType,
		ParentID:   input.ParentID,
		UserID:     userID,
		Text:       input.Text,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.broker.Publish(domain.CommentEvent{
		Kind:      domain.EventCreated,
		TargetID:  comment.TargetID,
		CommentID: comment.ID,
	})
	s.log.Info().
		Str("comment_id", comment.ID).
		Str("target_id", comment.TargetID).
		Str("user_id", userID).
		Msg("comment created")

	writeJSON(w, http.StatusCreated, commentResp{Comment: comment})
}

// DELETE /comments/{id}
func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")

	comment, err := s.store.GetCommentByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if comment.UserID != userID {
		s.fail(w, r, domain.ErrForbidden)
		return
	}

	if err := s.store.DeleteComment(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	s.broker.Publish(domain.CommentEvent{
		Kind:      domain.EventDeleted,
		TargetID:  comment.TargetID,
		CommentID: comment.ID,
	})
	s.log.Info().
		Str("comment_id", comment.ID).
		Str("target_id", comment.TargetID).
		Msg("comment deleted")

	w.WriteHeader(http.StatusNoContent)
}
