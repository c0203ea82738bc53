package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
	"github.com/UkralStul/mountainmerge-comments/internal/storage"
	"github.com/google/uuid"
)

type voteKey struct {
	targetType domain.TargetType
	targetID   string
}

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu               sync.RWMutex
	comments         map[string]*domain.Comment
	commentsByTarget map[string][]string // map[targetID][]commentID в порядке вставки
	profiles         map[string]*domain.Profile
	upvotes          map[voteKey]map[string]*domain.Upvote // map[объект]map[userID]голос
	now              func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		comments:         make(map[string]*domain.Comment),
		commentsByTarget: make(map[string][]string),
		profiles:         make(map[string]*domain.Profile),
		upvotes:          make(map[voteKey]map[string]*domain.Upvote),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := storage.ValidateComment(comment); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Родитель должен существовать и относиться к тому же объекту
	if comment.HasParent() {
		parent, ok := s.comments[*comment.ParentID]
		if !ok || parent.TargetID != comment.TargetID {
			return nil, domain.ErrParentNotFound
		}
	} else {
		comment.ParentID = nil
	}

	stored := *comment
	stored.ID = uuid.NewString()
	stored.CreatedAt = s.now()
	stored.Author = nil
	s.comments[stored.ID] = &stored
	s.commentsByTarget[stored.TargetID] = append(s.commentsByTarget[stored.TargetID], stored.ID)

	out := stored
	return &out, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	out := *comment
	return &out, nil
}

func (s *Store) ListComments(ctx context.Context, targetID string) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByTarget[targetID]
	out := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			copied := *c
			out = append(out, &copied)
		}
	}
	// Стабильная сортировка сохраняет порядок вставки при равном времени
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	delete(s.comments, id)

	ids := s.commentsByTarget[comment.TargetID]
	for i, cID := range ids {
		if cID == id {
			s.commentsByTarget[comment.TargetID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// === Profile Methods ===

func (s *Store) GetProfilesByIDs(ctx context.Context, ids []string) (map[string]*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]*domain.Profile, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			copied := *p
			results[id] = &copied
		}
	}
	return results, nil
}

func (s *Store) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	if profile.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *profile
	s.profiles[profile.ID] = &copied
	return nil
}

// === Vote Methods ===

func (s *Store) ToggleUpvote(ctx context.Context, userID string, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error) {
	if !targetType.Valid() || targetID == "" {
		return nil, domain.ErrInvalidTarget
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voteKey{targetType: targetType, targetID: targetID}
	votes := s.upvotes[key]
	if votes == nil {
		votes = make(map[string]*domain.Upvote)
		s.upvotes[key] = votes
	}

	if _, ok := votes[userID]; ok {
		delete(votes, userID)
	} else {
		votes[userID] = &domain.Upvote{
			ID:         uuid.NewString(),
			UserID:     userID,
			TargetID:   targetID,
			TargetType: targetType,
			CreatedAt:  s.now(),
		}
	}
	return s.summary(key, userID), nil
}

func (s *Store) GetVoteSummary(ctx context.Context, userID string, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error) {
	if !targetType.Valid() || targetID == "" {
		return nil, domain.ErrInvalidTarget
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.summary(voteKey{targetType: targetType, targetID: targetID}, userID), nil
}

func (s *Store) summary(key voteKey, userID string) *domain.VoteSummary {
	votes := s.upvotes[key]
	_, voted := votes[userID]
	return &domain.VoteSummary{Count: len(votes), UserHasVoted: voted}
}
