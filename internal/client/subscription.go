package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"letmeask/internal/realtime"
	"letmeask/internal/roomview"
)

// Subscription 是透過 WebSocket 對 rooms/{id} 的訂閱
type Subscription struct {
	conn   *websocket.Conn
	roomID string
	ch     chan realtime.Snapshot

	once sync.Once
	done chan struct{}
}

// Subscribe 連線到房間的快照串流。ctx 只用於握手，連線持續到 Cancel 或伺服器中斷為止。
func (c *Client) Subscribe(ctx context.Context, roomID string) (roomview.Subscription, error) {
	return c.SubscribeRoom(ctx, roomID)
}

// SubscribeRoom 與 Subscribe 相同，但回傳具體型別
func (c *Client) SubscribeRoom(ctx context.Context, roomID string) (*Subscription, error) {
	u := c.endpoint("/api/rooms/" + url.PathEscape(roomID) + "/ws")
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	if token := c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if errors.Is(err, websocket.ErrBadHandshake) {
				return nil, decodeError(resp)
			}
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	sub := &Subscription{
		conn:   conn,
		roomID: roomID,
		ch:     make(chan realtime.Snapshot, 1),
		done:   make(chan struct{}),
	}
	go sub.readLoop(c)
	return sub, nil
}

func (s *Subscription) Snapshots() <-chan realtime.Snapshot {
	return s.ch
}

// Cancel 關閉連線，通道會在讀取迴圈結束後關閉
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.conn.Close()
	})
}

func (s *Subscription) readLoop(c *Client) {
	defer close(s.ch)

	for {
		var snap realtime.Snapshot
		if err := s.conn.ReadJSON(&snap); err != nil {
			select {
			case <-s.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Warn("snapshot stream closed", "room_id", s.roomID, "error", err)
				}
				s.conn.Close()
			}
			return
		}
		s.offer(snap)
	}
}

// offer 只保留最新的快照
func (s *Subscription) offer(snap realtime.Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}
