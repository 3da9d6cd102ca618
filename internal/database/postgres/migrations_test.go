package postgres

import (
	"slices"
	"testing"
	"testing/fstest"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_add_index.sql": {Data: []byte("SELECT 1")},
		"migrations/001_init.sql":      {Data: []byte("SELECT 1")},
		"migrations/README.md":         {Data: []byte("notes")},
		"migrations/003_more.sql":      {Data: []byte("SELECT 1")},
	}

	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{"fresh database", nil, []string{"001_init.sql", "002_add_index.sql", "003_more.sql"}},
		{"partially applied", map[string]bool{"001_init.sql": true}, []string{"002_add_index.sql", "003_more.sql"}},
		{"up to date", map[string]bool{"001_init.sql": true, "002_add_index.sql": true, "003_more.sql": true}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pendingMigrations(fsys, tc.applied)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("pendingMigrations = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := pendingMigrations(migrationsFS, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) == 0 || files[0] != "001_init.sql" {
		t.Errorf("expected embedded migrations starting with 001_init.sql, got %v", files)
	}
}
