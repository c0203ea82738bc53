package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
	"github.com/UkralStul/mountainmerge-comments/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	AuthorByID *dataloader.Loader
}

// NewLoaders создает лоадеры поверх хранилища. Лоадеры живут один запрос.
func NewLoaders(store storage.Storage) *Loaders {
	return newLoaders(store, time.Millisecond*1)
}

func newLoaders(store storage.Storage, wait time.Duration) *Loaders {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		// Преобразуем ключи в []string
		userIDs := make([]string, len(keys))
		for i, key := range keys {
			userIDs[i] = key.String()
		}

		// Один запрос к хранилищу на всю пачку
		profiles, err := store.GetProfilesByIDs(ctx, userIDs)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Результат в том же порядке, что и ключи; отсутствующий профиль - nil
		results := make([]*dataloader.Result, len(keys))
		for i, userID := range userIDs {
			var profile *domain.Profile
			if p, ok := profiles[userID]; ok {
				profile = p
			}
			results[i] = &dataloader.Result{Data: profile}
		}
		return results
	}

	return &Loaders{
		AuthorByID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(wait)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, NewLoaders(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// AttachAuthors проставляет авторов комментариям. Все id запрашиваются
// до ожидания результатов, поэтому лоадер собирает их в одну пачку.
func AttachAuthors(ctx context.Context, comments []*domain.Comment) error {
	loaders := For(ctx)
	if loaders == nil || len(comments) == 0 {
		return nil
	}

	thunks := make([]dataloader.Thunk, len(comments))
	for i, c := range comments {
		thunks[i] = loaders.AuthorByID.Load(ctx, dataloader.StringKey(c.UserID))
	}
	for i, thunk := range thunks {
		data, err := thunk()
		if err != nil {
			return err
		}
		if profile, ok := data.(*domain.Profile); ok && profile != nil {
			comments[i].Author = profile
		}
	}
	return nil
}
