package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/calendar/internal/apperrors"
	"github.com/nkiryanov/calendar/internal/models"
)

// Guard validates access tokens.
// It is a pure function of the token, the key and the clock: no storage access.
// Other services construct it with the access secret only.
type Guard struct {
	key    []byte
	parser *parser
}

// Guard for tokens signed with HS256 by the identity service
func NewGuard(accessSecret string) (*Guard, error) {
	if accessSecret == "" {
		return nil, errors.New("access secret must not be empty")
	}
	return newGuard(accessSecret, defaultSigningMethod, time.Now), nil
}

func newGuard(secret string, alg string, now func() time.Time) *Guard {
	key := []byte(secret)
	return &Guard{
		key:    key,
		parser: newParser(key, alg, audienceAccess, now),
	}
}

// Validate signature, expiry and structure of the access token
// Fails with apperrors.ErrTokenMalformed, apperrors.ErrInvalidSignature or apperrors.ErrTokenExpired
func (g *Guard) Validate(access string) (models.Claims, error) {
	claims := &AccessTokenClaims{}
	if err := g.parser.parse(access, claims); err != nil {
		return models.Claims{}, err
	}

	if !claims.Role.Valid() {
		return models.Claims{}, fmt.Errorf("unknown role %q: %w", claims.Role, apperrors.ErrTokenMalformed)
	}

	return toClaims(claims.RegisteredClaims, claims.Role, claims.SessionID)
}

type parser struct {
	key    []byte
	parser *jwt.Parser
}

func newParser(key []byte, alg string, audience string, now func() time.Time) *parser {
	return &parser{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{alg}),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(now),
		),
	}
}

// Signature is verified before claims, so a forged expired token is reported as forged
func (p *parser) parse(token string, claims jwt.Claims) error {
	_, err := p.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return p.key, nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("token validation failed: %w", apperrors.ErrTokenExpired)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("token validation failed: %w", apperrors.ErrInvalidSignature)
	default:
		return fmt.Errorf("token validation failed: %w: %w", apperrors.ErrTokenMalformed, err)
	}
}

func toClaims(rc jwt.RegisteredClaims, role models.Role, sessionID uuid.UUID) (models.Claims, error) {
	userID, err := uuid.Parse(rc.Subject)
	if err != nil {
		return models.Claims{}, fmt.Errorf("bad subject: %w", apperrors.ErrTokenMalformed)
	}
	if sessionID == uuid.Nil {
		return models.Claims{}, fmt.Errorf("no session: %w", apperrors.ErrTokenMalformed)
	}

	claims := models.Claims{
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
		ExpiresAt: rc.ExpiresAt.Time,
	}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	return claims, nil
}
