package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umkm/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add reviewer index", "add_reviewer_index"},
		{"Add-Reviewer-Index", "add_reviewer_index"},
		{"ADD__REVIEWER__INDEX", "add_reviewer_index"},
		{"Add Column 123", "add_column_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_Numbering(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create license tables", "initial schema")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_license_tables.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_create_license_tables.down.sql"), first.DownPath)

	second, err := CreateMigration(dir, "add reviewer index", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	content, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- Migration: create license tables")
	assert.Contains(t, string(content), "-- Description: initial schema")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_add_index.up.sql":      {},
		"000010_add_index.down.sql":    {},
		"000002_add_column.up.sql":     {},
		"000002_add_column.down.sql":   {},
		"README.md":                    {},
		"seed.up.sql":                  {},
		"000003_directory.up.sql/x":    {},
		"000001_create_tables.up.sql":  {},
		"000001_create_tables.down.sq": {},
	}

	got, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_tables", "000002_add_column", "000010_add_index"}, got)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	got, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "absent")))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "000001_create_license_tables", names[0])

	for _, name := range names {
		_, err := migrations.FS.Open(name + ".down.sql")
		assert.NoError(t, err, "missing down migration for %s", name)
	}
}

func TestSourceDescribe(t *testing.T) {
	assert.Equal(t, "embedded", Embedded().Describe())
	assert.Equal(t, "file:///srv/migrations", Dir("/srv/migrations").Describe())
}
