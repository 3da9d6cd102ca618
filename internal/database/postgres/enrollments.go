package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// EnrollmentRepository stores enrolled face templates as pgvector columns
type EnrollmentRepository struct {
	pool *Pool
}

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// GetEmbeddings returns all templates of an identity in enrollment order
func (r *EnrollmentRepository) GetEmbeddings(ctx context.Context, identityID int64) ([]database.StoredEmbedding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, identity_id, embedding, model, dim, created_at
		FROM face_embeddings
		WHERE identity_id = $1
		ORDER BY id
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("query face embeddings: %w", err)
	}
	defer rows.Close()

	var results []database.StoredEmbedding
	for rows.Next() {
		var emb database.StoredEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&emb.ID, &emb.IdentityID, &vec, &emb.Model, &emb.Dim, &emb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face embedding: %w", err)
		}
		emb.Embedding = vec.Slice()
		results = append(results, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face embeddings: %w", err)
	}
	return results, nil
}

// CountEmbeddings returns the number of templates of an identity
func (r *EnrollmentRepository) CountEmbeddings(ctx context.Context, identityID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_embeddings WHERE identity_id = $1", identityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count face embeddings: %w", err)
	}
	return count, nil
}

// AddEmbedding enrolls a new template. The vector must have database.FaceEmbeddingDim values.
func (r *EnrollmentRepository) AddEmbedding(ctx context.Context, emb *database.StoredEmbedding) error {
	if len(emb.Embedding) != database.FaceEmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", database.ErrDimensionMismatch, len(emb.Embedding), database.FaceEmbeddingDim)
	}
	emb.Dim = len(emb.Embedding)

	err := r.pool.QueryRow(ctx, `
		INSERT INTO face_embeddings (identity_id, embedding, model, dim)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, emb.IdentityID, pgvector.NewVector(emb.Embedding), emb.Model, emb.Dim).Scan(&emb.ID, &emb.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert face embedding: %w", err)
	}
	return nil
}
