package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
	"github.com/UkralStul/mountainmerge-comments/internal/storage"
)

// fillWithMockData создает авторов, ветку комментариев к заметке и голоса.
func fillWithMockData(ctx context.Context, s storage.Storage) error {
	profiles := []*domain.Profile{
		{ID: "user-1", FirstName: "Maya", LastName: "Kovacs"},
		{ID: "user-2", FirstName: "Tom", LastName: "Reyes"},
		{ID: "user-3", FirstName: "Ines"},
	}
	for _, p := range profiles {
		if err := s.UpsertProfile(ctx, p); err != nil {
			return fmt.Errorf("fillWithMockData: failed to create profile %s: %w", p.ID, err)
		}
	}

	c1, err := s.CreateComment(ctx, &domain.Comment{
		TargetID: "note-1",
		UserID:   "user-2",
		Text:     "Great summary! The diagrams on page 3 helped a lot.",
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create comment 1: %w", err)
	}

	reply, err := s.CreateComment(ctx, &domain.Comment{
		TargetID: "note-1",
		ParentID: &c1.ID,
		UserID:   "user-1",
		Text:     "Thanks! I redrew them from the lecture slides.",
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create nested comment: %w", err)
	}

	if _, err := s.CreateComment(ctx, &domain.Comment{
		TargetID: "note-1",
		ParentID: &reply.ID,
		UserID:   "user-3",
		Text:     "Could you share the originals?\nThe scan is a bit blurry.",
	}); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create deep reply: %w", err)
	}

	if _, err := s.CreateComment(ctx, &domain.Comment{
		TargetID: "note-1",
		UserID:   "user-3",
		Text:     "Is section 4 going to be on the exam?",
	}); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create comment 2: %w", err)
	}

	if _, err := s.CreateComment(ctx, &domain.Comment{
		TargetID:   "deck-1",
		TargetType: domain.TargetDeck,
		UserID:     "user-1",
		Text:       "Card 12 has the wrong answer.",
	}); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create deck comment: %w", err)
	}

	for _, userID := range []string{"user-1", "user-2"} {
		if _, err := s.ToggleUpvote(ctx, userID, domain.TargetNote, "note-1"); err != nil {
			return fmt.Errorf("fillWithMockData: failed to upvote: %w", err)
		}
	}

	log.Info().Str("note_id", "note-1").Str("deck_id", "deck-1").Msg("mock data filled successfully")
	return nil
}
