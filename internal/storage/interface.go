package storage

import (
	"context"
	"strings"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
)

// Storage определяет контракт для хранилищ.
type Storage interface {
	// ListComments возвращает плоский список комментариев объекта,
	// упорядоченный по времени создания (при равенстве - по порядку вставки).
	ListComments(ctx context.Context, targetID string) ([]*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	// DeleteComment удаляет только сам комментарий. Ответы на него остаются
	// и при следующей сборке дерева становятся корнями.
	DeleteComment(ctx context.Context, id string) error

	// Методы для Dataloader'ов
	GetProfilesByIDs(ctx context.Context, ids []string) (map[string]*domain.Profile, error)
	UpsertProfile(ctx context.Context, profile *domain.Profile) error

	ToggleUpvote(ctx context.Context, userID string, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error)
	GetVoteSummary(ctx context.Context, userID string, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error)
}

// ValidateComment проверяет текст и цель комментария перед сохранением.
func ValidateComment(c *domain.Comment) error {
	if c.TargetID == "" {
		return domain.ErrInvalidTarget
	}
	if c.TargetType == "" {
		c.TargetType = domain.TargetNote
	}
	if !c.TargetType.Valid() {
		return domain.ErrInvalidTarget
	}
	if len(c.Text) > domain.MaxCommentLength {
		return domain.ErrTextTooLong
	}
	if strings.TrimSpace(c.Text) == "" {
		return domain.ErrEmptyText
	}
	return nil
}
