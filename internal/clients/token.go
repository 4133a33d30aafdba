package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// TokenConfig holds JWT issuance settings.
type TokenConfig struct {
	SecretKey string        // HMAC secret for HS256 tokens
	TokenTTL  time.Duration // access token lifetime
}

// Token is the response of the client-credentials exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Identity is a verified caller: the client id plus its granted scopes.
type Identity struct {
	ClientID uuid.UUID
	Scopes   map[string]struct{}
}

// IssueToken validates the client-credentials pair and returns a signed JWT
// carrying the client's scopes and current token version.
func (s *Store) IssueToken(ctx context.Context, clientID uuid.UUID, clientSecret string) (*Token, error) {
	var (
		secretHash   string
		scopes       string
		isActive     bool
		tokenVersion int
	)
	err := s.db.QueryRow(ctx, `
		SELECT secret_hash, scopes, is_active, token_version
		FROM clients WHERE id = $1
	`, clientID).Scan(&secretHash, &scopes, &isActive, &tokenVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Str("client_id", clientID.String()).Msg("token issuance failed: client not found")
			return nil, fmt.Errorf("client not found: %w", ErrInvalidClient)
		}
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if !isActive {
		log.Warn().Str("client_id", clientID.String()).Msg("token issuance failed: client disabled")
		return nil, fmt.Errorf("client disabled: %w", ErrInvalidClient)
	}
	if bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(clientSecret)) != nil {
		log.Warn().Str("client_id", clientID.String()).Msg("token issuance failed: invalid secret")
		return nil, fmt.Errorf("client secret is invalid: %w", ErrInvalidClient)
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   clientID.String(),
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.TokenTTL).Unix(),
		"scope": scopes,
		"ver":   tokenVersion,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("issue token: sign: %w", err)
	}

	log.Info().
		Str("client_id", clientID.String()).
		Str("scopes", scopes).
		Dur("ttl", s.cfg.TokenTTL).
		Msg("jwt token issued")
	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.TokenTTL.Seconds()),
		Scope:       scopes,
	}, nil
}

// VerifyToken validates signature and expiry, then re-checks the client row:
// the client must still exist, be active, and the token's version must match
// the current one (updates bump the version to revoke old tokens).
func (s *Store) VerifyToken(ctx context.Context, accessToken string) (*Identity, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil || !tok.Valid {
		log.Warn().Err(err).Msg("jwt validation failed")
		return nil, fmt.Errorf("invalid jwt token: %w", ErrInvalidClient)
	}

	sub, _ := claims["sub"].(string)
	clientID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid jwt subject: %w", ErrInvalidClient)
	}
	scope, _ := claims["scope"].(string)
	ver, _ := claims["ver"].(float64)

	var (
		isActive     bool
		tokenVersion int
	)
	err = s.db.QueryRow(ctx,
		`SELECT is_active, token_version FROM clients WHERE id = $1`,
		clientID).Scan(&isActive, &tokenVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client not found: %w", ErrInvalidClient)
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !isActive {
		return nil, fmt.Errorf("client disabled: %w", ErrInvalidClient)
	}
	if int(ver) != tokenVersion {
		log.Warn().
			Str("client_id", clientID.String()).
			Int("token_version", int(ver)).
			Int("current_version", tokenVersion).
			Msg("jwt token validation failed: token revoked")
		return nil, fmt.Errorf("token revoked: %w", ErrInvalidClient)
	}

	identity := &Identity{ClientID: clientID, Scopes: make(map[string]struct{})}
	for _, sc := range strings.Fields(scope) {
		identity.Scopes[sc] = struct{}{}
	}
	return identity, nil
}
