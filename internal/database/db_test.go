package database

import (
	"slices"
	"testing"
	"testing/fstest"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_reports.up.sql":   {Data: []byte("SELECT 2")},
		"001_wallets.up.sql":   {Data: []byte("SELECT 1")},
		"001_wallets.down.sql": {Data: []byte("SELECT 0")},
		"notes.txt":            {Data: []byte("ignored")},
		"003_extra.up.sql":     {Data: []byte("SELECT 3")},
	}

	tests := []struct {
		name    string
		applied map[string]struct{}
		want    []string
	}{
		{"fresh database", map[string]struct{}{}, []string{"001_wallets.up.sql", "002_reports.up.sql", "003_extra.up.sql"}},
		{"partially applied", map[string]struct{}{"001_wallets.up.sql": {}}, []string{"002_reports.up.sql", "003_extra.up.sql"}},
		{"up to date", map[string]struct{}{
			"001_wallets.up.sql": {}, "002_reports.up.sql": {}, "003_extra.up.sql": {},
		}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pendingMigrations(fsys, tt.applied)
			if err != nil {
				t.Fatalf("pendingMigrations: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
