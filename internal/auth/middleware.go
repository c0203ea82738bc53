package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const userKey = contextKey("user_id")

// WithUserID кладет id пользователя в контекст.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserID извлекает id пользователя из контекста.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey).(string)
	return id, ok && id != ""
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// StreamToken ищет токен сначала в заголовке, затем в параметре
// access_token: браузер не умеет выставлять заголовки при апгрейде websocket.
func StreamToken(r *http.Request) string {
	if r.Header.Get("Authorization") != "" {
		return BearerToken(r)
	}
	return r.URL.Query().Get("access_token")
}

// Middleware требует валидный токен в заголовке и кладет id пользователя
// в контекст. onFail отвечает клиенту при отсутствии или ошибке токена.
func Middleware(ts *TokenService, onFail func(w http.ResponseWriter, r *http.Request, msg string)) func(http.Handler) http.Handler {
	return middleware(ts, BearerToken, onFail)
}

// StreamMiddleware - то же, что Middleware, но принимает и access_token.
// Подключается только к эндпоинту потока.
func StreamMiddleware(ts *TokenService, onFail func(w http.ResponseWriter, r *http.Request, msg string)) func(http.Handler) http.Handler {
	return middleware(ts, StreamToken, onFail)
}

func middleware(ts *TokenService, extract func(*http.Request) string, onFail func(w http.ResponseWriter, r *http.Request, msg string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extract(r)
			if token == "" {
				onFail(w, r, "authorization header required")
				return
			}
			userID, err := ts.Verify(token)
			if err != nil {
				onFail(w, r, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
