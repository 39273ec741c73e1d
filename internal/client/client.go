// Package client 透過伺服器的 REST 與 WebSocket 介面存取房間資料與登入流程，
// 是終端機版房間頁面使用的即時資料庫與身分提供者。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"letmeask/internal/auth"
	"letmeask/internal/realtime"
)

var (
	// ErrUnauthorized 表示伺服器不接受目前的 token
	ErrUnauthorized = errors.New("client: unauthorized")
	// ErrRoomNotFound 表示房間不存在
	ErrRoomNotFound = errors.New("client: room not found")
)

// APIError 是伺服器回傳的其他錯誤
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: server returned %d: %s", e.StatusCode, e.Message)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client 連線到 letmeask 伺服器
type Client struct {
	baseURL *url.URL
	http    *http.Client
	dialer  *websocket.Dialer
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// New 建立客戶端，serverURL 例如 http://localhost:8080
func New(serverURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", base.Scheme)
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken 設定之後請求使用的 session token，空字串表示匿名
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token
}

// LoginURL 回傳開始 Google 登入的網址，完成後會導回 redirectURI
func (c *Client) LoginURL(redirectURI string) string {
	u := c.endpoint("/api/auth/google/login")
	u.RawQuery = url.Values{"redirect_uri": {redirectURI}}.Encode()
	return u.String()
}

// Me 以目前的 token 取得工作階段
func (c *Client) Me(ctx context.Context) (auth.Session, error) {
	var session auth.Session
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, http.StatusOK, &session)
	return session, err
}

// CreateRoom 建立新房間
func (c *Client) CreateRoom(ctx context.Context, title string) (realtime.Snapshot, error) {
	var snap realtime.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/rooms", map[string]string{"title": title}, http.StatusCreated, &snap)
	return snap, err
}

// GetRoom 讀取房間目前的快照
func (c *Client) GetRoom(ctx context.Context, roomID string) (realtime.Snapshot, error) {
	var snap realtime.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(roomID), nil, http.StatusOK, &snap)
	return snap, err
}

// PushQuestion 在 rooms/{id}/questions 新增一筆紀錄，回傳伺服器產生的鍵
func (c *Client) PushQuestion(ctx context.Context, roomID string, record realtime.QuestionRecord) (string, error) {
	var created struct {
		Name string `json:"name"`
	}
	path := "/api/rooms/" + url.PathEscape(roomID) + "/questions"
	if err := c.do(ctx, http.MethodPost, path, record, http.StatusCreated, &created); err != nil {
		return "", err
	}
	return created.Name, nil
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return &u
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path).String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if body.Error != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, body.Error)
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrRoomNotFound
	default:
		return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	}
}
