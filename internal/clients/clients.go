// Package clients manages API clients: credentials at rest, JWT token
// issuance and verification, and the scope model guarding the HTTP surface.
package clients

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/pgbus/pgbus/internal/broker"
)

// ErrInvalidClient covers failed credential checks and revoked, disabled, or
// malformed tokens. The HTTP layer maps it to 401.
var ErrInvalidClient = errors.New("invalid client")

// Client is an authorized API caller. Scopes is a space-separated grant
// list; TokenVersion increments on every update, revoking older tokens.
type Client struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Scopes       string    `json:"scopes"`
	IsActive     bool      `json:"is_active"`
	TokenVersion int       `json:"token_version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateResult carries the generated secret, returned exactly once at
// creation. Only its bcrypt hash is stored.
type CreateResult struct {
	ID     uuid.UUID `json:"id"`
	Secret string    `json:"secret"`
}

// Store persists clients and issues tokens.
type Store struct {
	db  *pgxpool.Pool
	cfg TokenConfig
}

// NewStore creates a client store.
func NewStore(db *pgxpool.Pool, cfg TokenConfig) *Store {
	return &Store{db: db, cfg: cfg}
}

// GenerateSecret returns a cryptographically random 32-char hex secret.
func GenerateSecret() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(fmt.Sprintf("clients: read random: %v", err))
	}
	return hex.EncodeToString(buf)
}

// Create inserts a new client with a freshly generated secret.
func (s *Store) Create(ctx context.Context, name, scopes string, isActive bool) (*CreateResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name must not be empty: %w", broker.ErrValidation)
	}
	if err := broker.ValidateScopes(scopes); err != nil {
		return nil, err
	}

	secret := GenerateSecret()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("create client: hash secret: %w", err)
	}

	id := uuid.New()
	_, err = s.db.Exec(ctx, `
		INSERT INTO clients (id, name, scopes, is_active, secret_hash, token_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, now(), now())
	`, id, name, scopes, isActive, string(hash))
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	log.Info().
		Str("client_id", id.String()).
		Str("client_name", name).
		Str("scopes", scopes).
		Msg("client created")
	return &CreateResult{ID: id, Secret: secret}, nil
}

// Get looks up a client by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	var c Client
	err := s.db.QueryRow(ctx, `
		SELECT id, name, scopes, is_active, token_version, created_at, updated_at
		FROM clients WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Scopes, &c.IsActive, &c.TokenVersion, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client: %w", broker.ErrNotFound)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

// List returns clients ordered by id ascending.
func (s *Store) List(ctx context.Context, offset, limit int) ([]Client, error) {
	if err := broker.ValidatePage(offset, limit); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, name, scopes, is_active, token_version, created_at, updated_at
		FROM clients ORDER BY id ASC OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	out := make([]Client, 0, limit)
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Scopes, &c.IsActive, &c.TokenVersion, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return out, nil
}

// Update replaces name, scopes, and active flag, and bumps token_version so
// previously issued tokens stop validating.
func (s *Store) Update(ctx context.Context, id uuid.UUID, name, scopes string, isActive bool) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name must not be empty: %w", broker.ErrValidation)
	}
	if err := broker.ValidateScopes(scopes); err != nil {
		return nil, err
	}

	var c Client
	err := s.db.QueryRow(ctx, `
		UPDATE clients
		SET name = $2, scopes = $3, is_active = $4,
		    token_version = token_version + 1,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, name, scopes, is_active, token_version, created_at, updated_at
	`, id, name, scopes, isActive).Scan(
		&c.ID, &c.Name, &c.Scopes, &c.IsActive, &c.TokenVersion, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client: %w", broker.ErrNotFound)
		}
		return nil, fmt.Errorf("update client: %w", err)
	}

	log.Info().Str("client_id", id.String()).Msg("client updated")
	return &c, nil
}

// Delete removes a client.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client: %w", broker.ErrNotFound)
	}

	log.Info().Str("client_id", id.String()).Msg("client deleted")
	return nil
}
