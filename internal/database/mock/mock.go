// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockIdentityStore is a mock implementation of database.IdentityWriter
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[int64]*database.Identity
	nextID     int64

	// Error injection
	GetError    error
	CreateError error
}

// NewMockIdentityStore creates a new mock identity store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{
		identities: make(map[int64]*database.Identity),
		nextID:     1,
	}
}

// AddIdentity adds an identity with a caller-chosen ID
func (m *MockIdentityStore) AddIdentity(identity database.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.ID] = &identity
	if identity.ID >= m.nextID {
		m.nextID = identity.ID + 1
	}
}

// GetIdentity retrieves an identity by ID
func (m *MockIdentityStore) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[id]
	if !ok {
		return nil, nil
	}
	cp := *identity
	return &cp, nil
}

// CreateIdentity stores a new identity
func (m *MockIdentityStore) CreateIdentity(ctx context.Context, name, organizationType string) (*database.Identity, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	identity := &database.Identity{
		ID:               m.nextID,
		Name:             name,
		OrganizationType: organizationType,
		CreatedAt:        time.Now(),
	}
	m.identities[identity.ID] = identity
	m.nextID++
	cp := *identity
	return &cp, nil
}

// MockEnrollmentStore is a mock implementation of database.EnrollmentWriter
type MockEnrollmentStore struct {
	mu         sync.RWMutex
	embeddings map[int64][]database.StoredEmbedding
	nextID     int64

	// Error injection
	GetError   error
	AddError   error
	CountError error
}

// NewMockEnrollmentStore creates a new mock enrollment store
func NewMockEnrollmentStore() *MockEnrollmentStore {
	return &MockEnrollmentStore{
		embeddings: make(map[int64][]database.StoredEmbedding),
		nextID:     1,
	}
}

// Enroll adds embeddings for an identity without dimension checks
func (m *MockEnrollmentStore) Enroll(identityID int64, vectors ...[]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vectors {
		m.embeddings[identityID] = append(m.embeddings[identityID], database.StoredEmbedding{
			ID:         m.nextID,
			IdentityID: identityID,
			Embedding:  v,
			Dim:        len(v),
			CreatedAt:  time.Now(),
		})
		m.nextID++
	}
}

// GetEmbeddings returns all embeddings of an identity ordered by ID
func (m *MockEnrollmentStore) GetEmbeddings(ctx context.Context, identityID int64) ([]database.StoredEmbedding, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.embeddings[identityID]), nil
}

// CountEmbeddings returns the number of embeddings of an identity
func (m *MockEnrollmentStore) CountEmbeddings(ctx context.Context, identityID int64) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.embeddings[identityID]), nil
}

// AddEmbedding enrolls a template, enforcing database.FaceEmbeddingDim like the real store
func (m *MockEnrollmentStore) AddEmbedding(ctx context.Context, emb *database.StoredEmbedding) error {
	if m.AddError != nil {
		return m.AddError
	}
	if len(emb.Embedding) != database.FaceEmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", database.ErrDimensionMismatch, len(emb.Embedding), database.FaceEmbeddingDim)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	emb.ID = m.nextID
	emb.Dim = len(emb.Embedding)
	emb.CreatedAt = time.Now()
	m.nextID++
	m.embeddings[emb.IdentityID] = append(m.embeddings[emb.IdentityID], *emb)
	return nil
}

// MockMembershipStore is a mock implementation of database.MembershipReader
type MockMembershipStore struct {
	mu          sync.RWMutex
	memberships []database.Membership

	// Error injection
	FirstError error
}

// NewMockMembershipStore creates a new mock membership store
func NewMockMembershipStore() *MockMembershipStore {
	return &MockMembershipStore{}
}

// AddMembership adds a membership record
func (m *MockMembershipStore) AddMembership(ms database.Membership) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memberships = append(m.memberships, ms)
}

// FirstMembership returns the membership with the lowest ID for the identity
func (m *MockMembershipStore) FirstMembership(ctx context.Context, identityID int64) (*database.Membership, error) {
	if m.FirstError != nil {
		return nil, m.FirstError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var first *database.Membership
	for i := range m.memberships {
		ms := m.memberships[i]
		if ms.IdentityID != identityID {
			continue
		}
		if first == nil || ms.ID < first.ID {
			first = &ms
		}
	}
	return first, nil
}

// MockAttendanceStore is a mock implementation of database.AttendanceWriter
type MockAttendanceStore struct {
	mu      sync.RWMutex
	records []database.AttendanceRecord
	nextID  int64

	// Error injection
	AppendError error
	ListError   error
	CountError  error
	AllError    error
	LatestError error
}

// NewMockAttendanceStore creates a new mock attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{nextID: 1}
}

// AddRecord inserts a record directly, assigning an ID if it has none
func (m *MockAttendanceStore) AddRecord(rec database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = m.nextID
	}
	if rec.ID >= m.nextID {
		m.nextID = rec.ID + 1
	}
	m.records = append(m.records, rec)
}

// Records returns a copy of all stored records in insertion order
func (m *MockAttendanceStore) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

// Append persists a new record
func (m *MockAttendanceStore) Append(ctx context.Context, rec *database.AttendanceRecord) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextID
	rec.CreatedAt = time.Now()
	m.nextID++
	m.records = append(m.records, *rec)
	return nil
}

// byIdentity returns the identity's records newest first. Caller must hold the lock.
func (m *MockAttendanceStore) byIdentity(identityID int64) []database.AttendanceRecord {
	var out []database.AttendanceRecord
	for _, r := range m.records {
		if r.IdentityID == identityID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b database.AttendanceRecord) int {
		return b.CheckInTime.Compare(a.CheckInTime)
	})
	return out
}

// ListByIdentity returns records newest first, sliced by limit/offset
func (m *MockAttendanceStore) ListByIdentity(ctx context.Context, identityID int64, limit, offset int) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.byIdentity(identityID)
	if offset >= len(recs) {
		return nil, nil
	}
	end := min(offset+limit, len(recs))
	return recs[offset:end], nil
}

// CountByIdentity returns the number of records of an identity
func (m *MockAttendanceStore) CountByIdentity(ctx context.Context, identityID int64) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byIdentity(identityID)), nil
}

// AllByIdentity returns every record of an identity
func (m *MockAttendanceStore) AllByIdentity(ctx context.Context, identityID int64) ([]database.AttendanceRecord, error) {
	if m.AllError != nil {
		return nil, m.AllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byIdentity(identityID), nil
}

// LatestByIdentity returns the newest record of an identity
func (m *MockAttendanceStore) LatestByIdentity(ctx context.Context, identityID int64) (*database.AttendanceRecord, error) {
	if m.LatestError != nil {
		return nil, m.LatestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.byIdentity(identityID)
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}
