package dataloader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
	"github.com/UkralStul/mountainmerge-comments/internal/storage/inmemory"
)

type countingStore struct {
	*inmemory.Store
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingStore) GetProfilesByIDs(ctx context.Context, ids []string) (map[string]*domain.Profile, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.Store.GetProfilesByIDs(ctx, ids)
}

func TestAttachAuthors_BatchesLookups(t *testing.T) {
	store := &countingStore{Store: inmemory.New()}
	ctx := context.Background()
	require.NoError(t, store.UpsertProfile(ctx, &domain.Profile{ID: "alice", FirstName: "Alice"}))
	require.NoError(t, store.UpsertProfile(ctx, &domain.Profile{ID: "bob", FirstName: "Bob"}))

	comments := []*domain.Comment{
		{ID: "1", UserID: "alice"},
		{ID: "2", UserID: "bob"},
		{ID: "3", UserID: "alice"},
		{ID: "4", UserID: "nobody"},
	}

	ctx = context.WithValue(ctx, key, newLoaders(store, 50*time.Millisecond))
	require.NoError(t, AttachAuthors(ctx, comments))

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, "Alice", comments[0].Author.FirstName)
	assert.Equal(t, "Bob", comments[1].Author.FirstName)
	assert.Equal(t, "Alice", comments[2].Author.FirstName)
	assert.Nil(t, comments[3].Author)
}

func TestAttachAuthors_PropagatesErrors(t *testing.T) {
	store := &countingStore{Store: inmemory.New(), err: errors.New("db down")}
	ctx := context.WithValue(context.Background(), key, NewLoaders(store))

	err := AttachAuthors(ctx, []*domain.Comment{{ID: "1", UserID: "alice"}})
	assert.EqualError(t, err, "db down")
}

func TestAttachAuthors_WithoutLoaders(t *testing.T) {
	comments := []*domain.Comment{{ID: "1", UserID: "alice"}}
	assert.NoError(t, AttachAuthors(context.Background(), comments))
	assert.Nil(t, comments[0].Author)
}
