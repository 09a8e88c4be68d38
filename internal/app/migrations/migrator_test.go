package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(embedded, migrationsDir+"/*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{
		"sql/00001_create_students.sql",
		"sql/00002_create_kv_entries.sql",
	}, files)

	for _, name := range files {
		content, err := fs.ReadFile(embedded, name)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(content), "-- +goose Up"), name)
		assert.True(t, strings.Contains(string(content), "-- +goose Down"), name)
	}
}

func TestStudentsSchemaMatchesRepository(t *testing.T) {
	content, err := fs.ReadFile(embedded, "sql/00001_create_students.sql")
	require.NoError(t, err)

	// the postgres directory relies on these names
	for _, want := range []string{"students_login_key", "unlocked_videos INTEGER[]"} {
		assert.Contains(t, string(content), want)
	}
}
