package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pic.db")

	database, err := Open(path)
	require.NoError(t, err)

	version, err := SchemaVersion(database)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	for _, table := range []string{"users", "certificates", "audit_logs"} {
		var count int
		err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, table)
	}
	require.NoError(t, database.Close())

	// Reopening an initialized database is a no-op
	database, err = Open(path)
	require.NoError(t, err)
	defer database.Close()

	version, err = SchemaVersion(database)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}
