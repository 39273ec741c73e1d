package handlers

import (
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"letmeask/internal/auth"
	"letmeask/internal/logging"
	"letmeask/internal/middleware"
	"letmeask/internal/service"
)

// AuthHandler 處理與認證相關的請求
type AuthHandler struct {
	userService *service.UserService
	issuer      *auth.TokenIssuer
	provider    auth.OAuthProvider
}

// NewAuthHandler 創建一個新的 AuthHandler 實例
func NewAuthHandler(userService *service.UserService, issuer *auth.TokenIssuer, provider auth.OAuthProvider) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		issuer:      issuer,
		provider:    provider,
	}
}

// GoogleLogin 導向 Google 授權頁面。
// redirect_uri 只接受本機位址，登入完成後 token 會以查詢參數帶回該位址。
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	redirectURI := c.Query("redirect_uri")
	if redirectURI != "" && !isLoopbackURL(redirectURI) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "redirect_uri must point to a loopback address"})
		return
	}

	state, err := h.issuer.SignState(redirectURI)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法建立登入流程"})
		return
	}

	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// GoogleCallback 處理 Google 授權完成後的回呼。
// state 驗證通過之後，有 redirect_uri 的失敗也會導回該位址並帶上 error，讓等待中的客戶端結束。
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.FromContext(ctx)

	redirectURI, err := h.issuer.ParseState(c.Query("state"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的 state"})
		return
	}

	if reason := c.Query("error"); reason != "" {
		h.fail(c, redirectURI, http.StatusUnauthorized, "登入已取消: "+reason)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.fail(c, redirectURI, http.StatusBadRequest, "缺少授權碼")
		return
	}

	user, err := h.provider.Exchange(ctx, code)
	if err != nil {
		logger.Warn("oauth exchange failed", "error", err)
		h.fail(c, redirectURI, http.StatusBadGateway, "無法向身分提供者驗證")
		return
	}

	session, err := auth.SessionFromUser(*user)
	if err != nil {
		if errors.Is(err, auth.ErrMissingProfileField) {
			logger.Error("identity provider returned an incomplete profile", "uid", user.UID)
		}
		h.fail(c, redirectURI, http.StatusBadGateway, "Missing information from Google Account.")
		return
	}

	if _, err := h.userService.RecordSignIn(ctx, session.ID, session.Name, session.Avatar); err != nil {
		logger.Error("record sign in failed", "error", err)
		h.fail(c, redirectURI, http.StatusInternalServerError, "保存用戶資料失敗")
		return
	}

	token, err := h.issuer.GenerateToken(session)
	if err != nil {
		h.fail(c, redirectURI, http.StatusInternalServerError, "獲取token失敗")
		return
	}

	if redirectURI == "" {
		c.JSON(http.StatusOK, gin.H{"token": token, "user": session})
		return
	}
	c.Redirect(http.StatusFound, withQuery(redirectURI, "token", token))
}

func (h *AuthHandler) fail(c *gin.Context, redirectURI string, status int, message string) {
	if redirectURI == "" {
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.Redirect(http.StatusFound, withQuery(redirectURI, "error", message))
}

func withQuery(raw, key, value string) string {
	target, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := target.Query()
	query.Set(key, value)
	target.RawQuery = query.Encode()
	return target.String()
}

// Me 回傳目前登入的用戶
func (h *AuthHandler) Me(c *gin.Context) {
	session, _ := middleware.CurrentSession(c)
	c.JSON(http.StatusOK, session)
}

func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
