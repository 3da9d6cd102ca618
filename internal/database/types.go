package database

import (
	"database/sql"
	"time"
)

// StatusCheckedIn is the status every new attendance record starts with.
const StatusCheckedIn = "checked_in"

// Identity represents an enrolled person
type Identity struct {
	ID               int64
	Name             string
	OrganizationType string
	CreatedAt        time.Time
}

// StoredEmbedding represents a face template enrolled for an identity
type StoredEmbedding struct {
	ID         int64
	IdentityID int64
	Embedding  []float32
	Model      string
	Dim        int
	CreatedAt  time.Time
}

// Membership links an identity to an organization
type Membership struct {
	ID             int64
	OrganizationID int64
	IdentityID     int64
	CreatedAt      time.Time
}

// AttendanceRecord is an immutable check-in event.
type AttendanceRecord struct {
	ID             int64
	IdentityID     int64
	OrganizationID sql.Null[int64] // absent when the identity belongs to no organization
	CheckInTime    time.Time
	Similarity     float64 // 4 decimal places
	Status         string
	CreatedAt      time.Time
}
