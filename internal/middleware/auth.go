package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"letmeask/internal/auth"
	"letmeask/internal/logging"
)

const sessionKey = "session"

// MessageNotSignedIn 是未登入時回傳給客戶端的訊息
const MessageNotSignedIn = "You must be logged in"

// SessionMiddleware 解析 Authorization 標頭中的 JWT token。
// 沒有標頭的請求視為匿名並繼續處理；標頭格式錯誤或 token 無效則回傳 401。
func SessionMiddleware(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 從請求頭中獲取 Authorization 字段
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		// 檢查 Authorization 頭的格式
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		session, err := issuer.SessionFromToken(parts[1])
		if err != nil {
			logger := logging.FromContext(c.Request.Context())
			if errors.Is(err, auth.ErrMissingProfileField) {
				logger.Error("token carries an incomplete profile", "error", err)
			} else {
				logger.Debug("rejected token", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 將用戶信息設置到上下文中
		c.Set(sessionKey, session)
		c.Request = c.Request.WithContext(auth.ContextWithSession(c.Request.Context(), session))
		c.Next()
	}
}

// RequireSession 拒絕匿名請求
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentSession(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MessageNotSignedIn})
			return
		}
		c.Next()
	}
}

// CurrentSession 取出 SessionMiddleware 設定的工作階段
func CurrentSession(c *gin.Context) (auth.Session, bool) {
	value, exists := c.Get(sessionKey)
	if !exists {
		return auth.Session{}, false
	}
	session, ok := value.(auth.Session)
	return session, ok
}
