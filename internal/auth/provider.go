package auth

import (
	"context"
	"log/slog"
	"sync"
)

// Identity 是外部身分提供者的 SDK：彈出式登入、登出，以及登入狀態變更的通知
type Identity interface {
	SignInWithPopup(ctx context.Context) (*ExternalUser, error)
	SignOut(ctx context.Context) error
	// OnAuthStateChanged 註冊監聽器，user 為 nil 表示目前沒有登入
	OnAuthStateChanged(listener func(user *ExternalUser)) (unsubscribe func())
}

// Provider 包裝外部身分提供者，對外提供目前的工作階段與登入動作。
// 在程式啟動時建立一次，再明確地傳給需要身分資訊的元件。
type Provider struct {
	identity Identity
	fatal    func(error)
	logger   *slog.Logger

	mu        sync.RWMutex
	current   *Session
	nextID    int
	listeners map[int]func(Session, bool)

	closeOnce   sync.Once
	unsubscribe func()
}

type Option func(*Provider)

// WithFatalHandler 替換缺少個人資料時的處理方式，預設為記錄後 panic
func WithFatalHandler(fn func(error)) Option {
	return func(p *Provider) {
		p.fatal = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider 建立 Provider 並註冊唯一一個登入狀態監聽器，直到 Close 為止
func NewProvider(identity Identity, opts ...Option) *Provider {
	p := &Provider{
		identity:  identity,
		logger:    slog.Default(),
		listeners: make(map[int]func(Session, bool)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fatal == nil {
		p.fatal = func(err error) {
			p.logger.Error("identity provider returned an incomplete profile", "error", err)
			panic(err)
		}
	}

	p.unsubscribe = identity.OnAuthStateChanged(p.handleAuthState)
	return p
}

// CurrentSession 回傳目前的工作階段，沒有登入時 ok 為 false
func (p *Provider) CurrentSession() (Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current == nil {
		return Session{}, false
	}
	return *p.current, true
}

// SignInWithGoogleProvider 執行彈出式登入，成功後立即更新工作階段。
// 登入失敗或取消時原封不動回傳身分提供者的錯誤。
func (p *Provider) SignInWithGoogleProvider(ctx context.Context) error {
	user, err := p.identity.SignInWithPopup(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	session, err := SessionFromUser(*user)
	if err != nil {
		return err
	}
	p.setSession(&session)
	return nil
}

// SignOut 登出並清除工作階段
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.identity.SignOut(ctx); err != nil {
		return err
	}
	p.setSession(nil)
	return nil
}

// OnChange 註冊工作階段變更的監聽器，回傳取消函式
func (p *Provider) OnChange(listener func(session Session, ok bool)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Close 取消登入狀態監聽器
func (p *Provider) Close() {
	p.closeOnce.Do(func() {
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
	})
}

func (p *Provider) handleAuthState(user *ExternalUser) {
	if user == nil {
		p.setSession(nil)
		return
	}

	session, err := SessionFromUser(*user)
	if err != nil {
		p.fatal(err)
		return
	}
	p.setSession(&session)
}

func (p *Provider) setSession(session *Session) {
	p.mu.Lock()
	p.current = session
	listeners := make([]func(Session, bool), 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	var value Session
	if session != nil {
		value = *session
	}
	for _, l := range listeners {
		l(value, session != nil)
	}
}
