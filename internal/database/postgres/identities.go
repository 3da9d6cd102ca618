package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// IdentityRepository provides PostgreSQL-backed identity storage
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// GetIdentity retrieves an identity by ID, returns nil if not found
func (r *IdentityRepository) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	var identity database.Identity
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, organization_type, created_at
		FROM identities
		WHERE id = $1
	`, id).Scan(&identity.ID, &identity.Name, &identity.OrganizationType, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}
	return &identity, nil
}

// CreateIdentity inserts a new identity
func (r *IdentityRepository) CreateIdentity(ctx context.Context, name, organizationType string) (*database.Identity, error) {
	identity := database.Identity{Name: name, OrganizationType: organizationType}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (name, organization_type)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, name, organizationType).Scan(&identity.ID, &identity.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return &identity, nil
}
