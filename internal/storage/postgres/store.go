package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
	"github.com/UkralStul/mountainmerge-comments/internal/storage"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL и мигрирует схему.
func New(dsn string, debug bool) (*Store, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Comment{}, &domain.Profile{}, &domain.Upvote{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB оборачивает уже открытое соединение без миграции.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := storage.ValidateComment(comment); err != nil {
		return nil, err
	}
	if !comment.HasParent() {
		comment.ParentID = nil
	} else if !validID(*comment.ParentID) {
		return nil, domain.ErrParentNotFound
	}

	// Проверка родителя и вставка в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if comment.HasParent() {
			var parentCount int64
			if err := tx.Model(&domain.Comment{}).
				Where("id = ? AND target_id = ?", *comment.ParentID, comment.TargetID).
				Count(&parentCount).Error; err != nil {
				return err
			}
			if parentCount == 0 {
				return domain.ErrParentNotFound
			}
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}

	// GORM заполнит ID и CreatedAt после создания
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	if !validID(id) {
		return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &comment, nil
}

func (s *Store) ListComments(ctx context.Context, targetID string) ([]*domain.Comment, error) {
	comments := make([]*domain.Comment, 0)
	err := s.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&comments).Error
	return comments, err
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// validID проверяет, что строка подходит для uuid-колонок id и parent_id.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// === Profile Methods ===

func (s *Store) GetProfilesByIDs(ctx context.Context, ids []string) (map[string]*domain.Profile, error) {
	results := make(map[string]*domain.Profile, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	var profiles []*domain.Profile
	// Загружаем всех авторов одним запросом
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		results[p.ID] = p
	}
	return results, nil
}

func (s *Store) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	if profile.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name"}),
	}).Create(profile).Error
}

// === Vote Methods ===

func (s *Store) ToggleUpvote(ctx context.Context, userID string, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error) {
	if !targetType.Valid() || targetID == "" {
		return nil, domain.ErrInvalidTarget
	}

	var summary *domain.VoteSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
			Delete(&domain.Upvote{})
		if res.Error != nil {
			return res.Error
		}
		// Нечего было удалять - значит голоса не было, ставим его
		if res.RowsAffected == 0 {
			vote := &domain.Upvote{UserID: userID, TargetType: targetType, TargetID: targetID}
			if err := tx.Create(vote).Error; err != nil {
				return err
			}
		}

		var err error
		summary, err = voteSummary(tx, userID, targetType, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Store) GetVoteSummary(ctx context.Context, userID string, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error) {
	if !targetType.Valid() || targetID == "" {
		return nil, domain.ErrInvalidTarget
	}
	return voteSummary(s.db.WithContext(ctx), userID, targetType, targetID)
}

func voteSummary(db *gorm.DB, userID string, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error) {
	var total, mine int64
	if err := db.Model(&domain.Upvote{}).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Count(&total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Upvote{}).
		Where("target_type = ? AND target_id = ? AND user_id = ?", targetType, targetID, userID).
		Count(&mine).Error; err != nil {
		return nil, err
	}
	return &domain.VoteSummary{Count: int(total), UserHasVoted: mine > 0}, nil
}
