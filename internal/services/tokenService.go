package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medibook/internal/models"
	"medibook/internal/utils"
)

const CookieName = "token"

// RequestInfo describes the client a session is issued to.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

type IssuedSession struct {
	Token          string
	Session        *models.Session
	RevokedCount   int64
	HadPriorDevice bool
}

type TokenService interface {
	// Issue signs a token for account and registers its session, closing any
	// session the account holds on another device.
	Issue(ctx context.Context, account *models.Account, info RequestInfo) (*IssuedSession, error)
	Decode(token string) (*Claims, error)
	Cookie(token string) *http.Cookie
	ClearCookie() *http.Cookie
}

type tokenService struct {
	secret   []byte
	ttl      time.Duration
	secure   bool
	sessions SessionService
	clock    Clock
}

func NewTokenService(secret string, ttl time.Duration, secureCookies bool, sessions SessionService, clock Clock) TokenService {
	return &tokenService{secret: []byte(secret), ttl: ttl, secure: secureCookies, sessions: sessions, clock: clock}
}

func (s *tokenService) Issue(ctx context.Context, account *models.Account, info RequestInfo) (*IssuedSession, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	session, result, err := s.sessions.EnforceAndCreate(ctx, &models.Session{
		UserID:       account.ID,
		UserType:     account.Role.UserType(),
		Token:        signed,
		DeviceInfo:   utils.ParseDeviceInfo(info.UserAgent),
		IPAddress:    info.IPAddress,
		LastActivity: now,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	return &IssuedSession{
		Token:          signed,
		Session:        session,
		RevokedCount:   result.RevokedCount,
		HadPriorDevice: result.HadPriorDevice,
	}, nil
}

func (s *tokenService) Decode(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if _, ok := models.ParseRole(string(claims.Role)); !ok || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *tokenService) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *tokenService) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
