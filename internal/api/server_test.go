package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/mountainmerge-comments/internal/auth"
	"github.com/UkralStul/mountainmerge-comments/internal/domain"
	"github.com/UkralStul/mountainmerge-comments/internal/events"
	"github.com/UkralStul/mountainmerge-comments/internal/storage/inmemory"
)

type testEnv struct {
	srv    *httptest.Server
	store  *inmemory.Store
	tokens *auth.TokenService
	broker *events.Broker
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store := inmemory.New()
	tokens := auth.NewTokenService("test-secret", time.Hour)
	broker := events.NewBroker(8)
	if opts.RPS == 0 {
		opts.RPS = 1000
		opts.Burst = 1000
	}
	server := NewServer(store, tokens, broker, zerolog.Nop(), opts)
	srv := httptest.NewServer(server.Routes())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store, tokens: tokens, broker: broker}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.tokens.Issue(userID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) post(t *testing.T, token string, input domain.NewComment) *domain.Comment {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/comments", token, input)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[commentResp](t, resp).Comment
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestComments_RequireToken(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.do(t, http.MethodGet, "/comments?target=note-1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[errorResp](t, resp)
	assert.Equal(t, http.StatusUnauthorized, body.Status)
	assert.NotEmpty(t, body.Error)

	resp = env.do(t, http.MethodGet, "/comments?target=note-1", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestComments_CreateAndList(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	require.NoError(t, env.store.UpsertProfile(ctx, &domain.Profile{ID: "u1", FirstName: "Ann", LastName: "Lee"}))

	alice := env.token(t, "u1")
	bob := env.token(t, "u2")

	root := env.post(t, alice, domain.NewComment{TargetID: "note-1", Text: "Root"})
	assert.Equal(t, "u1", root.UserID)
	assert.Equal(t, domain.TargetNote, root.TargetType)
	assert.Nil(t, root.ParentID)

	reply := env.post(t, bob, domain.NewComment{TargetID: "note-1", Text: "Reply", ParentID: &root.ID})
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)

	env.post(t, bob, domain.NewComment{TargetID: "deck-9", TargetType: domain.TargetDeck, Text: "Elsewhere"})

	resp := env.do(t, http.MethodGet, "/comments?target=note-1", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[commentsResp](t, resp).Comments
	require.Len(t, list, 2)
	assert.Equal(t, root.ID, list[0].ID)
	assert.Equal(t, reply.ID, list[1].ID)

	require.NotNil(t, list[0].Author)
	assert.Equal(t, "Ann Lee", list[0].Author.DisplayName())
	assert.Nil(t, list[1].Author, "no profile stored for u2")
}

func TestComments_ListEmptyAndMissingTarget(t *testing.T) {
	env := newTestEnv(t, Options{})
	token := env.token(t, "u1")

	resp := env.do(t, http.MethodGet, "/comments?target=nothing-here", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"comments":[]}`, string(raw))

	resp = env.do(t, http.MethodGet, "/comments", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestComments_CreateValidation(t *testing.T) {
	env := newTestEnv(t, Options{})
	token := env.token(t, "u1")
	missing := "does-not-exist"

	tests := []struct {
		name   string
		input  domain.NewComment
		status int
	}{
		{"empty text", domain.NewComment{TargetID: "note-1", Text: ""}, http.StatusBadRequest},
		{"blank text", domain.NewComment{TargetID: "note-1", Text: "   \n"}, http.StatusBadRequest},
		{"too long", domain.NewComment{TargetID: "note-1", Text: strings.Repeat("a", 2001)}, http.StatusBadRequest},
		{"no target", domain.NewComment{Text: "hi"}, http.StatusBadRequest},
		{"bad target type", domain.NewComment{TargetID: "x", TargetType: "page", Text: "hi"}, http.StatusBadRequest},
		{"unknown parent", domain.NewComment{TargetID: "note-1", Text: "hi", ParentID: &missing}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/comments", token, tt.input)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp := env.do(t, http.MethodPost, "/comments", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestComments_ParentOnOtherTarget(t *testing.T) {
	env := newTestEnv(t, Options{})
	token := env.token(t, "u1")

	other := env.post(t, token, domain.NewComment{TargetID: "note-2", Text: "Other"})
	resp := env.do(t, http.MethodPost, "/comments", token, domain.NewComment{TargetID: "note-1", Text: "hi", ParentID: &other.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestComments_Delete(t *testing.T) {
	env := newTestEnv(t, Options{})
	alice := env.token(t, "u1")
	bob := env.token(t, "u2")

	root := env.post(t, alice, domain.NewComment{TargetID: "note-1", Text: "Root"})
	reply := env.post(t, bob, domain.NewComment{TargetID: "note-1", Text: "Reply", ParentID: &root.ID})

	resp := env.do(t, http.MethodDelete, "/comments/"+root.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/comments/missing", alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/comments/"+root.ID, alice, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Ответ остается и становится сиротой
	resp = env.do(t, http.MethodGet, "/comments?target=note-1", alice, nil)
	list := decode[commentsResp](t, resp).Comments
	require.Len(t, list, 1)
	assert.Equal(t, reply.ID, list[0].ID)
}

func TestVotes_Toggle(t *testing.T) {
	env := newTestEnv(t, Options{})
	alice := env.token(t, "u1")
	bob := env.token(t, "u2")

	resp := env.do(t, http.MethodGet, "/votes/deck/d1", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.VoteSummary{}, decode[domain.VoteSummary](t, resp))

	resp = env.do(t, http.MethodPost, "/votes", alice, domain.ToggleVote{TargetID: "d1", TargetType: domain.TargetDeck})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.VoteSummary{Count: 1, UserHasVoted: true}, decode[domain.VoteSummary](t, resp))

	resp = env.do(t, http.MethodGet, "/votes/deck/d1", bob, nil)
	assert.Equal(t, domain.VoteSummary{Count: 1, UserHasVoted: false}, decode[domain.VoteSummary](t, resp))

	resp = env.do(t, http.MethodPost, "/votes", alice, domain.ToggleVote{TargetID: "d1", TargetType: domain.TargetDeck})
	assert.Equal(t, domain.VoteSummary{Count: 0, UserHasVoted: false}, decode[domain.VoteSummary](t, resp))

	resp = env.do(t, http.MethodGet, "/votes/page/d1", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/votes", alice, domain.ToggleVote{TargetID: "d1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RPS: 0.001, Burst: 1})
	alice := env.token(t, "u1")
	bob := env.token(t, "u2")

	env.post(t, alice, domain.NewComment{TargetID: "note-1", Text: "one"})

	resp := env.do(t, http.MethodPost, "/comments", alice, domain.NewComment{TargetID: "note-1", Text: "two"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Лимит у каждого пользователя свой, чтение не ограничено
	env.post(t, bob, domain.NewComment{TargetID: "note-1", Text: "three"})
	resp = env.do(t, http.MethodGet, "/comments?target=note-1", alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStream_DeliversEvents(t *testing.T) {
	env := newTestEnv(t, Options{})
	token := env.token(t, "u1")

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") +
		fmt.Sprintf("/comments/stream?target=note-1&access_token=%s", token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.broker.Subscribers("note-1") == 1 },
		time.Second, 5*time.Millisecond)

	created := env.post(t, token, domain.NewComment{TargetID: "note-1", Text: "live"})
	env.post(t, token, domain.NewComment{TargetID: "note-2", Text: "not for us"})
	resp := env.do(t, http.MethodDelete, "/comments/"+created.ID, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first, second domain.CommentEvent
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, domain.CommentEvent{Kind: domain.EventCreated, TargetID: "note-1", CommentID: created.ID}, first)
	assert.Equal(t, domain.CommentEvent{Kind: domain.EventDeleted, TargetID: "note-1", CommentID: created.ID}, second)

	conn.Close()
	require.Eventually(t, func() bool { return env.broker.Subscribers("note-1") == 0 },
		time.Second, 5*time.Millisecond)
}

func TestQueryTokenOnlyOnStream(t *testing.T) {
	env := newTestEnv(t, Options{})
	token := env.token(t, "u1")

	resp := env.do(t, http.MethodGet, "/comments?target=note-1&access_token="+token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/votes/note/n1?access_token="+token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStream_RequiresToken(t *testing.T) {
	env := newTestEnv(t, Options{})

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/comments/stream?target=note-1"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	verr := validator.New().Struct(domain.NewComment{})
	require.Error(t, verr)

	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("comment x: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrParentNotFound, http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrEmptyText, http.StatusBadRequest},
		{domain.ErrTextTooLong, http.StatusBadRequest},
		{domain.ErrInvalidTarget, http.StatusBadRequest},
		{verr, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
