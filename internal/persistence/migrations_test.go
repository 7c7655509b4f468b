package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSortsSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o700))

	files, err := MigrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, files)
}

func TestMigrationFilesMissingDir(t *testing.T) {
	_, err := MigrationFiles(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestRepositoryMigrationsDefineSchema(t *testing.T) {
	files, err := MigrationFiles("../../migrations")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	content, err := os.ReadFile(filepath.Join("../../migrations", files[0]))
	require.NoError(t, err)
	for _, fragment := range []string{
		"CONSTRAINT tickets_number_key UNIQUE (number)",
		"CONSTRAINT users_email_key UNIQUE (email)",
		"CHECK (quantity > 0)",
		"seq          BIGSERIAL",
		"clock_timestamp()",
	} {
		assert.Contains(t, string(content), fragment)
	}
}
