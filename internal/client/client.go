// Package client - клиент REST API комментариев и голосов.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
)

// APIError - ответ сервера с не-2xx статусом.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Is позволяет сравнивать ошибку API с ошибками домена через errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.Status == http.StatusNotFound
	case domain.ErrForbidden:
		return e.Status == http.StatusForbidden
	}
	return false
}

// Client обращается к бэкенду от имени одного пользователя.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// Option настраивает клиент.
type Option func(*Client)

// WithTimeout задает таймаут одного запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit ограничивает частоту запросов клиента.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient подменяет HTTP-клиент.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New создает клиент. token может быть пустым, тогда заголовок не ставится.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListComments возвращает плоский список комментариев объекта.
func (c *Client) ListComments(ctx context.Context, targetID string) ([]domain.Comment, error) {
	var out struct {
		Comments []domain.Comment `json:"comments"`
	}
	path := "/comments?target=" + url.QueryEscape(targetID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if out.Comments == nil {
		out.Comments = []domain.Comment{}
	}
	return out.Comments, nil
}

// CreateComment создает комментарий или ответ (если задан ParentID).
func (c *Client) CreateComment(ctx context.Context, input domain.NewComment) (*domain.Comment, error) {
	var out struct {
		Comment *domain.Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, "/comments", input, &out); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return out.Comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/comments/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// Votes возвращает состояние голосов объекта для текущего пользователя.
func (c *Client) Votes(ctx context.Context, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error) {
	var out domain.VoteSummary
	path := fmt.Sprintf("/votes/%s/%s", url.PathEscape(string(targetType)), url.PathEscape(targetID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get votes: %w", err)
	}
	return &out, nil
}

func (c *Client) ToggleVote(ctx context.Context, targetType domain.TargetType, targetID string) (*domain.VoteSummary, error) {
	var out domain.VoteSummary
	input := domain.ToggleVote{TargetID: targetID, TargetType: targetType}
	if err := c.do(ctx, http.MethodPost, "/votes", input, &out); err != nil {
		return nil, fmt.Errorf("toggle vote: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	// Пустое тело у 2xx - тоже успех
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		if jsonErr := json.Unmarshal(raw, &payload); jsonErr == nil {
			apiErr.Message = payload.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
	}
	return apiErr
}

// IsStatus сообщает, является ли err ошибкой API с данным статусом.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
