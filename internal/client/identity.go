package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cli/browser"

	"letmeask/internal/auth"
)

// ErrSignInCancelled 表示用戶在身分提供者頁面取消登入，或伺服器回報登入失敗
var ErrSignInCancelled = errors.New("client: sign in cancelled")

// Opener 在瀏覽器開啟網址
type Opener func(url string) error

func init() {
	// 啟動器的輸出會弄亂互動畫面
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// OpenBrowser 使用作業系統預設的瀏覽器開啟網址
func OpenBrowser(url string) error {
	return browser.OpenURL(url)
}

type IdentityOption func(*Identity)

func WithOpener(open Opener) IdentityOption {
	return func(i *Identity) {
		i.open = open
	}
}

func WithTokenStore(store TokenStore) IdentityOption {
	return func(i *Identity) {
		i.store = store
	}
}

func WithIdentityLogger(logger *slog.Logger) IdentityOption {
	return func(i *Identity) {
		i.logger = logger
	}
}

// Identity 以伺服器的 Google 登入流程實作 auth.Identity。
// 登入時在本機開一個暫時的回呼位址，瀏覽器完成授權後帶著 token 導回這裡。
type Identity struct {
	client *Client
	open   Opener
	store  TokenStore
	logger *slog.Logger

	mu        sync.Mutex
	user      *auth.ExternalUser
	nextID    int
	listeners map[int]func(*auth.ExternalUser)
}

var _ auth.Identity = (*Identity)(nil)

func NewIdentity(client *Client, opts ...IdentityOption) *Identity {
	i := &Identity{
		client:    client,
		open:      OpenBrowser,
		logger:    slog.Default(),
		listeners: make(map[int]func(*auth.ExternalUser)),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Restore 以保存的 token 還原登入狀態。token 為空時改從 TokenStore 讀取；
// 伺服器拒絕 token 時視為沒有登入，不回傳錯誤。
func (i *Identity) Restore(ctx context.Context, token string) error {
	if token == "" && i.store != nil {
		stored, err := i.store.Load()
		if err != nil {
			return fmt.Errorf("load token: %w", err)
		}
		token = stored
	}
	if token == "" {
		i.setUser(nil)
		return nil
	}

	i.client.SetToken(token)
	session, err := i.client.Me(ctx)
	if errors.Is(err, ErrUnauthorized) {
		i.logger.Info("stored session expired")
		i.client.SetToken("")
		i.setUser(nil)
		return nil
	}
	if err != nil {
		i.client.SetToken("")
		return fmt.Errorf("restore session: %w", err)
	}

	i.setUser(userFromSession(session))
	return nil
}

// SignInWithPopup 開啟瀏覽器進行 Google 登入，直到完成、失敗或 ctx 結束
func (i *Identity) SignInWithPopup(ctx context.Context) (*auth.ExternalUser, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for sign in callback: %w", err)
	}

	type callback struct {
		token string
		err   error
	}
	results := make(chan callback, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var res callback
		if reason := query.Get("error"); reason != "" {
			res.err = fmt.Errorf("%w: %s", ErrSignInCancelled, reason)
			fmt.Fprintln(w, "Sign in failed. You can close this window.")
		} else if token := query.Get("token"); token != "" {
			res.token = token
			fmt.Fprintln(w, "Signed in. You can close this window.")
		} else {
			http.Error(w, "missing token", http.StatusBadRequest)
			return
		}
		select {
		case results <- res:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go server.Serve(listener)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	redirectURI := "http://" + listener.Addr().String() + "/callback"
	loginURL := i.client.LoginURL(redirectURI)
	i.logger.Debug("opening sign in page", "url", loginURL)
	if err := i.open(loginURL); err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}

	var res callback
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	i.client.SetToken(res.token)
	session, err := i.client.Me(ctx)
	if err != nil {
		i.client.SetToken("")
		return nil, fmt.Errorf("load session: %w", err)
	}

	if i.store != nil {
		if err := i.store.Save(res.token); err != nil {
			i.logger.Warn("save token failed", "error", err)
		}
	}

	user := userFromSession(session)
	i.setUser(user)
	return user, nil
}

// SignOut 清除 token 與登入狀態
func (i *Identity) SignOut(_ context.Context) error {
	i.client.SetToken("")
	if i.store != nil {
		if err := i.store.Clear(); err != nil {
			return fmt.Errorf("clear token: %w", err)
		}
	}
	i.setUser(nil)
	return nil
}

// OnAuthStateChanged 註冊監聽器，註冊時立即以目前狀態呼叫一次
func (i *Identity) OnAuthStateChanged(listener func(user *auth.ExternalUser)) func() {
	i.mu.Lock()
	id := i.nextID
	i.nextID++
	i.listeners[id] = listener
	current := i.user
	i.mu.Unlock()

	listener(current)

	return func() {
		i.mu.Lock()
		delete(i.listeners, id)
		i.mu.Unlock()
	}
}

func (i *Identity) setUser(user *auth.ExternalUser) {
	i.mu.Lock()
	i.user = user
	listeners := make([]func(*auth.ExternalUser), 0, len(i.listeners))
	for _, l := range i.listeners {
		listeners = append(listeners, l)
	}
	i.mu.Unlock()

	for _, l := range listeners {
		l(user)
	}
}

func userFromSession(session auth.Session) *auth.ExternalUser {
	return &auth.ExternalUser{
		UID:         session.ID,
		DisplayName: session.Name,
		PhotoURL:    session.Avatar,
	}
}
