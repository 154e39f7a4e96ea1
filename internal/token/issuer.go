// Package token issues and revokes the short-lived credentials that back
// anonymous persona sessions. A persona credential carries the persona's
// public identifier only; nothing in the token links back to the owning
// account.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linker/internal/models"
	"linker/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Issuer is the iss claim stamped on every persona credential.
	Issuer = "linker-api"
	// PersonaAudience is the aud claim for persona credentials. It is
	// distinct from the account token audience so one can never be
	// replayed as the other.
	PersonaAudience = "linker-anon"

	denylistPrefix = "persona:revoked:"
)

// Credential is an issued persona credential together with its metadata.
type Credential struct {
	Token     string    `json:"token"`
	PersonaID string    `json:"persona_id"`
	ExpiresAt time.Time `json:"expires_at"`
	JTI       string    `json:"-"`
}

// Issuer dependencies are deliberately narrow: a signing secret, a TTL and
// a Redis client for the revocation denylist.
type IssuerService struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
}

// NewIssuer returns an IssuerService. redisClient may be nil; revocation
// then degrades to expiry-only (tokens stay valid until exp).
func NewIssuer(secret string, ttl time.Duration, redisClient *redis.Client) *IssuerService {
	return &IssuerService{
		secret: []byte(secret),
		ttl:    ttl,
		redis:  redisClient,
	}
}

// Issue signs a fresh credential for the given persona.
func (s *IssuerService) Issue(ctx context.Context, personaID string) (*Credential, error) {
	defer observability.TrackCredentialExchange("issue")()

	now := time.Now()
	jti := uuid.New().String()
	expiresAt := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   personaID,
		Issuer:    Issuer,
		Audience:  jwt.ClaimStrings{PersonaAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        jti,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, models.NewCredentialExchangeError(fmt.Errorf("signing persona credential: %w", err))
	}

	return &Credential{
		Token:     signed,
		PersonaID: personaID,
		ExpiresAt: expiresAt,
		JTI:       jti,
	}, nil
}

// Revoke invalidates a previously issued credential by denylisting its jti
// until the token would have expired anyway. Revoking an already revoked
// or expired credential is a no-op, not an error.
func (s *IssuerService) Revoke(ctx context.Context, tokenString string) error {
	defer observability.TrackCredentialExchange("revoke")()

	claims, err := s.parse(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil
		}
		return models.NewCredentialExchangeError(err)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}

	if s.redis == nil {
		return nil
	}
	if err := s.redis.Set(ctx, denylistPrefix+claims.ID, "1", remaining).Err(); err != nil {
		return models.NewCredentialExchangeError(fmt.Errorf("denylisting credential: %w", err))
	}
	return nil
}

// Validate verifies a credential's signature, claims and revocation state
// and returns the persona it identifies.
func (s *IssuerService) Validate(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", models.NewUnauthorizedError("invalid persona credential")
	}

	if s.redis != nil {
		revoked, err := s.redis.Exists(ctx, denylistPrefix+claims.ID).Result()
		if err == nil && revoked > 0 {
			return "", models.NewUnauthorizedError("persona credential revoked")
		}
		// Redis errors fail open here: expiry still bounds the damage.
	}

	return claims.Subject, nil
}

func (s *IssuerService) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(PersonaAudience),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("persona credential missing required claims")
	}
	return claims, nil
}
