package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
)

// Watch подписывается на изменения комментариев объекта. Канал закрывается,
// когда соединение обрывается или ctx отменен.
func (c *Client) Watch(ctx context.Context, targetID string) (<-chan domain.CommentEvent, error) {
	wsURL, err := c.streamURL(targetID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, fmt.Errorf("watch: %w", decodeError(resp))
		}
		return nil, fmt.Errorf("watch: %w", err)
	}

	out := make(chan domain.CommentEvent)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(out)
		defer close(done)
		defer conn.Close()
		for {
			var event domain.CommentEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) streamURL(targetID string) (string, error) {
	u, err := url.Parse(c.baseURL + "/comments/stream")
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("target", targetID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
