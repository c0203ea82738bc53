package view

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
)

type fakeVotes struct {
	summary domain.VoteSummary
	err     error
	toggles int
}

func (f *fakeVotes) Votes(ctx context.Context, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.summary
	return &s, nil
}

func (f *fakeVotes) ToggleVote(ctx context.Context, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.toggles++
	if f.summary.UserHasVoted {
		f.summary = domain.VoteSummary{Count: f.summary.Count - 1}
	} else {
		f.summary = domain.VoteSummary{Count: f.summary.Count + 1, UserHasVoted: true}
	}
	s := f.summary
	return &s, nil
}

func TestVotePanel(t *testing.T) {
	api := &fakeVotes{summary: domain.VoteSummary{Count: 4}}
	panel := NewVotePanel(api, domain.TargetDeck, "d1", zerolog.Nop())
	ctx := context.Background()

	_, loaded := panel.Summary()
	assert.False(t, loaded)

	require.NoError(t, panel.Load(ctx))
	summary, loaded := panel.Summary()
	assert.True(t, loaded)
	assert.Equal(t, domain.VoteSummary{Count: 4}, summary)

	assert.True(t, panel.Toggle(ctx))
	summary, _ = panel.Summary()
	assert.Equal(t, domain.VoteSummary{Count: 5, UserHasVoted: true}, summary)

	api.err = errors.New("offline")
	assert.False(t, panel.Toggle(ctx))
	summary, _ = panel.Summary()
	assert.Equal(t, domain.VoteSummary{Count: 5, UserHasVoted: true}, summary)

	assert.Error(t, panel.Load(ctx))
}
