package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	sessionAudience = "letmeask-session"
	stateAudience   = "letmeask-oauth-state"
	stateTTL        = 10 * time.Minute
)

var ErrInvalidToken = errors.New("auth: invalid or expired token")

type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	jwt.StandardClaims
}

type stateClaims struct {
	RedirectURI string `json:"redirect_uri,omitempty"`
	jwt.StandardClaims
}

// TokenIssuer 簽發與驗證工作階段權杖，以及 OAuth 流程中的 state
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateToken 為工作階段生成一個新的 JWT token
func (i *TokenIssuer) GenerateToken(session Session) (string, error) {
	nowTime := i.now()
	expireTime := nowTime.Add(i.ttl)

	claims := Claims{
		UserID: session.ID,
		Name:   session.Name,
		Avatar: session.Avatar,
		StandardClaims: jwt.StandardClaims{
			Audience:  sessionAudience,
			Subject:   session.ID,
			ExpiresAt: expireTime.Unix(),
			IssuedAt:  nowTime.Unix(),
		},
	}

	tokenClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenClaims.SignedString(i.secret)
}

// ParseToken 解析和驗證 JWT token
func (i *TokenIssuer) ParseToken(token string) (*Claims, error) {
	tokenClaims, err := jwt.ParseWithClaims(token, &Claims{}, i.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := tokenClaims.Claims.(*Claims)
	if !ok || !tokenClaims.Valid || !claims.VerifyAudience(sessionAudience, true) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SessionFromToken 驗證權杖並套用與登入時相同的個人資料檢查
func (i *TokenIssuer) SessionFromToken(token string) (Session, error) {
	claims, err := i.ParseToken(token)
	if err != nil {
		return Session{}, err
	}
	return SessionFromUser(ExternalUser{
		UID:         claims.UserID,
		DisplayName: claims.Name,
		PhotoURL:    claims.Avatar,
	})
}

// SignState 產生 OAuth state，內含登入完成後要導回的位址
func (i *TokenIssuer) SignState(redirectURI string) (string, error) {
	nowTime := i.now()
	claims := stateClaims{
		RedirectURI: redirectURI,
		StandardClaims: jwt.StandardClaims{
			Audience:  stateAudience,
			ExpiresAt: nowTime.Add(stateTTL).Unix(),
			IssuedAt:  nowTime.Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// ParseState 驗證 state 並取出導回位址
func (i *TokenIssuer) ParseState(state string) (string, error) {
	tokenClaims, err := jwt.ParseWithClaims(state, &stateClaims{}, i.keyFunc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := tokenClaims.Claims.(*stateClaims)
	if !ok || !tokenClaims.Valid || !claims.VerifyAudience(stateAudience, true) {
		return "", ErrInvalidToken
	}
	return claims.RedirectURI, nil
}

func (i *TokenIssuer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return i.secret, nil
}
