package database

import (
	"context"
)

// IdentityReader provides read-only access to identities
type IdentityReader interface {
	// GetIdentity retrieves an identity by ID, returns nil if not found
	GetIdentity(ctx context.Context, id int64) (*Identity, error)
}

// IdentityWriter creates identities (used by the CLI bootstrap)
type IdentityWriter interface {
	IdentityReader

	// CreateIdentity stores a new identity and returns it with ID and CreatedAt set
	CreateIdentity(ctx context.Context, name, organizationType string) (*Identity, error)
}

// EnrollmentReader provides read-only access to enrolled face embeddings
type EnrollmentReader interface {
	// GetEmbeddings returns all embeddings of an identity ordered by ID
	GetEmbeddings(ctx context.Context, identityID int64) ([]StoredEmbedding, error)
	// CountEmbeddings returns the number of embeddings enrolled for an identity
	CountEmbeddings(ctx context.Context, identityID int64) (int, error)
}

// EnrollmentWriter provides write access to enrolled face embeddings
type EnrollmentWriter interface {
	EnrollmentReader

	// AddEmbedding enrolls one more template for an identity.
	// Returns ErrDimensionMismatch if the embedding does not have FaceEmbeddingDim values.
	AddEmbedding(ctx context.Context, emb *StoredEmbedding) error
}

// MembershipReader resolves organization memberships
type MembershipReader interface {
	// FirstMembership returns the identity's earliest membership (lowest ID), or nil if it has none.
	// An identity in several organizations is attributed to the one it joined first.
	FirstMembership(ctx context.Context, identityID int64) (*Membership, error)
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// ListByIdentity returns records ordered by check-in time descending, sliced by limit/offset
	ListByIdentity(ctx context.Context, identityID int64, limit, offset int) ([]AttendanceRecord, error)
	// CountByIdentity returns the total number of records of an identity
	CountByIdentity(ctx context.Context, identityID int64) (int, error)
	// AllByIdentity returns every record of an identity, unordered
	AllByIdentity(ctx context.Context, identityID int64) ([]AttendanceRecord, error)
	// LatestByIdentity returns the most recent record, or nil if there is none
	LatestByIdentity(ctx context.Context, identityID int64) (*AttendanceRecord, error)
}

// AttendanceWriter appends attendance records. There is no update or delete.
type AttendanceWriter interface {
	AttendanceReader

	// Append persists a new record and fills in its ID and CreatedAt
	Append(ctx context.Context, rec *AttendanceRecord) error
}
