package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

var (
	providerMu          sync.RWMutex
	postgresIdentity    func() IdentityWriter
	postgresEnrollment  func() EnrollmentWriter
	postgresMembership  func() MembershipReader
	postgresAttendance  func() AttendanceWriter
	postgresInitialized bool
)

// Backend bundles the repository constructors of one storage backend.
type Backend struct {
	Identities  func() IdentityWriter
	Enrollments func() EnrollmentWriter
	Memberships func() MembershipReader
	Attendance  func() AttendanceWriter
}

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// postgres.Initialize calls it once the pool is migrated.
func RegisterPostgresBackend(b Backend) {
	providerMu.Lock()
	defer providerMu.Unlock()
	postgresIdentity = b.Identities
	postgresEnrollment = b.Enrollments
	postgresMembership = b.Memberships
	postgresAttendance = b.Attendance
	postgresInitialized = true
}

// lookup returns the registered constructor or an error naming the missing repository.
func lookup[T any](ctor func() T, name string) (T, error) {
	var zero T
	providerMu.RLock()
	defer providerMu.RUnlock()
	if !postgresInitialized {
		return zero, errNotInitialized
	}
	if ctor == nil {
		return zero, fmt.Errorf("PostgreSQL %s not registered", name)
	}
	return ctor(), nil
}

// GetIdentityReader returns an IdentityReader from the PostgreSQL backend
func GetIdentityReader(ctx context.Context) (IdentityReader, error) {
	return GetIdentityWriter(ctx)
}

// GetIdentityWriter returns an IdentityWriter from the PostgreSQL backend
func GetIdentityWriter(ctx context.Context) (IdentityWriter, error) {
	providerMu.RLock()
	ctor := postgresIdentity
	providerMu.RUnlock()
	return lookup(ctor, "identity repository")
}

// GetEnrollmentReader returns an EnrollmentReader from the PostgreSQL backend
func GetEnrollmentReader(ctx context.Context) (EnrollmentReader, error) {
	return GetEnrollmentWriter(ctx)
}

// GetEnrollmentWriter returns an EnrollmentWriter from the PostgreSQL backend
func GetEnrollmentWriter(ctx context.Context) (EnrollmentWriter, error) {
	providerMu.RLock()
	ctor := postgresEnrollment
	providerMu.RUnlock()
	return lookup(ctor, "enrollment repository")
}

// GetMembershipReader returns a MembershipReader from the PostgreSQL backend
func GetMembershipReader(ctx context.Context) (MembershipReader, error) {
	providerMu.RLock()
	ctor := postgresMembership
	providerMu.RUnlock()
	return lookup(ctor, "membership repository")
}

// GetAttendanceReader returns an AttendanceReader from the PostgreSQL backend
func GetAttendanceReader(ctx context.Context) (AttendanceReader, error) {
	return GetAttendanceWriter(ctx)
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	providerMu.RLock()
	ctor := postgresAttendance
	providerMu.RUnlock()
	return lookup(ctor, "attendance repository")
}
