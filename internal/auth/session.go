// Package auth 處理用戶身分：外部身分提供者的登入流程、工作階段狀態，以及 JWT 權杖。
package auth

import (
	"context"
	"errors"
)

// ErrMissingProfileField 表示身分提供者沒有提供名稱或頭像。
// 名稱或頭像缺少時視為無法復原的錯誤。
var ErrMissingProfileField = errors.New("auth: missing information from Google account")

// Session 是目前登入用戶在本地快取的身分
type Session struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// ExternalUser 是身分提供者回傳的原始用戶資料
type ExternalUser struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// SessionFromUser 取出名稱、頭像與 ID，名稱或頭像缺少時回傳 ErrMissingProfileField
func SessionFromUser(user ExternalUser) (Session, error) {
	if user.DisplayName == "" || user.PhotoURL == "" {
		return Session{}, ErrMissingProfileField
	}
	return Session{
		ID:     user.UID,
		Name:   user.DisplayName,
		Avatar: user.PhotoURL,
	}, nil
}

type sessionKey struct{}

// ContextWithSession 將工作階段放入 context
func ContextWithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext 取出 context 中的工作階段
func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(Session)
	return session, ok
}
