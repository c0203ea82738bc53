package view

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
)

// VoteAPI - операции бэкенда для голосов.
type VoteAPI interface {
	Votes(ctx context.Context, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error)
	ToggleVote(ctx context.Context, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error)
}

// VotePanel - счетчик голосов заметки или колоды.
type VotePanel struct {
	api        VoteAPI
	targetType domain.TargetType
	targetID   string
	log        zerolog.Logger

	mu      sync.Mutex
	summary domain.VoteSummary
	loaded  bool
	pending bool
}

func NewVotePanel(api VoteAPI, targetType domain.TargetType, targetID string, logger zerolog.Logger) *VotePanel {
	return &VotePanel{
		api:        api,
		targetType: targetType,
		targetID:   targetID,
		log:        logger.With().Str("target_id", targetID).Logger(),
	}
}

// Load запрашивает текущее состояние голосов.
func (p *VotePanel) Load(ctx context.Context) error {
	summary, err := p.api.Votes(ctx, p.targetType, p.targetID)
	if err != nil {
		p.log.Warn().Err(err).Str("op", "votes").Msg("failed to load votes")
		return err
	}
	p.mu.Lock()
	p.summary = *summary
	p.loaded = true
	p.mu.Unlock()
	return nil
}

// Toggle ставит или снимает голос. Состояние заменяется ответом сервера;
// при ошибке остается прежним.
func (p *VotePanel) Toggle(ctx context.Context) bool {
	p.mu.Lock()
	if p.pending {
		p.mu.Unlock()
		return false
	}
	p.pending = true
	p.mu.Unlock()

	summary, err := p.api.ToggleVote(ctx, p.targetType, p.targetID)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = false
	if err != nil {
		p.log.Warn().Err(err).Str("op", "toggle_vote").Msg("failed to toggle vote")
		return false
	}
	p.summary = *summary
	p.loaded = true
	return true
}

// Summary возвращает последнее известное состояние и признак того,
// что оно было загружено.
func (p *VotePanel) Summary() (domain.VoteSummary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary, p.loaded
}
