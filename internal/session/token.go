// Package session issues and verifies the signed tokens that tie a widget
// conversation to one chatbot.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cloo-solutions/faqdesk/internal/domain"
)

// DefaultTTL is used when no lifetime is configured
const DefaultTTL = 24 * time.Hour

// Claims carried by a session token
type Claims struct {
	ChatbotID string `json:"cid"`
	jwt.RegisteredClaims
}

// Manager signs session tokens with a shared HS256 secret
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue returns a token for the session and when it expires
func (m *Manager) Issue(sessionID, chatbotID string) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		ChatbotID: chatbotID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the token and returns the session id it names. Expired
// tokens yield ErrSessionExpired; anything else wrong yields
// ErrInvalidSession, or ErrSessionWrongScope for another chatbot's token.
func (m *Manager) Verify(tokenString, chatbotID string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrSessionExpired
		}
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeForbidden, domain.ErrInvalidSession.Message, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", domain.ErrInvalidSession
	}
	if claims.ChatbotID != chatbotID {
		return "", domain.ErrSessionWrongScope
	}
	return claims.Subject, nil
}

// VerifySessionToken adapts Verify to the resolver used by the HTTP layer
func (m *Manager) VerifySessionToken(tokenString, chatbotID string) (domain.SessionRef, error) {
	id, err := m.Verify(tokenString, chatbotID)
	if err != nil {
		return domain.NoSession(), err
	}
	return domain.SessionPresent(id), nil
}
