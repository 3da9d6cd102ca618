package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MembershipRepository reads organization memberships
type MembershipRepository struct {
	pool *Pool
}

// NewMembershipRepository creates a new PostgreSQL membership repository
func NewMembershipRepository(pool *Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// FirstMembership returns the identity's oldest membership (lowest ID), nil if none
func (r *MembershipRepository) FirstMembership(ctx context.Context, identityID int64) (*database.Membership, error) {
	var m database.Membership
	err := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, identity_id, created_at
		FROM organization_members
		WHERE identity_id = $1
		ORDER BY id
		LIMIT 1
	`, identityID).Scan(&m.ID, &m.OrganizationID, &m.IdentityID, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query membership: %w", err)
	}
	return &m, nil
}

// Join adds the identity to the named organization, creating the organization
// if it does not exist yet. Joining twice is a no-op.
func (r *MembershipRepository) Join(ctx context.Context, identityID int64, organization string) (*database.Membership, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var orgID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO organizations (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, organization).Scan(&orgID)
	if err != nil {
		return nil, fmt.Errorf("upsert organization: %w", err)
	}

	m := database.Membership{OrganizationID: orgID, IdentityID: identityID}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO organization_members (organization_id, identity_id)
		VALUES ($1, $2)
		ON CONFLICT (organization_id, identity_id) DO UPDATE SET identity_id = EXCLUDED.identity_id
		RETURNING id, created_at
	`, orgID, identityID).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit membership: %w", err)
	}
	return &m, nil
}
