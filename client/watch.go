package client

import (
	"context"
	"net/http"
	"strings"

	"patio/push"

	"github.com/gorilla/websocket"
)

// Watch follows the change feed of a library and calls fn for every
// notification until ctx is done or the connection drops.
func (c *Client) Watch(ctx context.Context, libraryID string, fn func(push.Notification)) error {
	header := http.Header{}
	if c.auth != "" {
		header.Set("Authorization", c.auth)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.WatchURL(libraryID), header)
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	for {
		var n push.Notification
		if err := conn.ReadJSON(&n); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(n)
	}
}

// WatchURL is the websocket address of a library's change feed.
func (c *Client) WatchURL(libraryID string) string {
	return "ws" + strings.TrimPrefix(c.BaseURL, "http") + "/library/watch?" + libraryQuery(libraryID).Encode()
}
