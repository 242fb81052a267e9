package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// expiryWarning is how far ahead of expiry the console starts warning.
const expiryWarning = 5 * time.Minute

// StaticTokenSource provides the bearer token attached to backend requests.
// It prefers a token forwarded on the request context and
// falls back to the configured one.
type StaticTokenSource struct {
	token  string
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	warned bool
}

// NewStaticTokenSource creates a token source for the configured access token.
// An empty token is allowed; requests then rely on a forwarded token.
func NewStaticTokenSource(token string, logger *zap.Logger) *StaticTokenSource {
	s := &StaticTokenSource{
		token:  token,
		logger: logger.Named("auth"),
		now:    time.Now,
	}
	if token != "" {
		s.describe(token)
	}
	return s
}

// Token returns the token for the current request.
func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	if forwarded, ok := GetToken(ctx); ok {
		return forwarded, nil
	}
	if s.token == "" {
		return "", ErrNoToken
	}
	s.warnIfExpiring()
	return s.token, nil
}

// describe logs who the configured token belongs to. Opaque tokens are fine.
func (s *StaticTokenSource) describe(token string) {
	claims, err := ParseUnverified(token)
	if err != nil {
		s.logger.Debug("Access token is not a JWT; forwarding as opaque token")
		return
	}
	fields := []zap.Field{zap.String("subject", claims.Subject)}
	if claims.ExpiresAt != nil {
		fields = append(fields, zap.Time("expires_at", claims.ExpiresAt.Time))
	}
	s.logger.Info("Using configured backend access token", fields...)
}

func (s *StaticTokenSource) warnIfExpiring() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.warned {
		return
	}
	claims, err := ParseUnverified(s.token)
	if err != nil {
		return
	}
	if claims.ExpiresWithin(s.now(), expiryWarning) {
		s.warned = true
		s.logger.Warn("Backend access token is expired or about to expire",
			zap.String("subject", claims.Subject),
			zap.Time("expires_at", claims.ExpiresAt.Time))
	}
}
