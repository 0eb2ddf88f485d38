package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppliedMigrationSelection(t *testing.T) {
	files := []string{
		"000001_create_kv_entries.up.sql",
		"000002_add_index.up.sql",
		"000003_backfill.up.sql",
	}

	assert.Equal(t, uint64(2), parseVersion(files[1]))
	assert.Zero(t, parseVersion("readme.md"))
	assert.Len(t, appliedBetween(files, 1, 3), 2)
	assert.Empty(t, appliedBetween(files, 3, 3))
	assert.Equal(t, []string{"000002_add_index.up.sql"}, appliedBetween(files, 1, 2))
}

func TestListMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_b.up.sql", "000001_a.up.sql", "000001_a.down.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	assert.Equal(t, []string{"000001_a.up.sql", "000002_b.up.sql"}, listMigrationFiles(dir))
	assert.Empty(t, listMigrationFiles(filepath.Join(dir, "missing")))
}

func TestResolveMigrationsDir(t *testing.T) {
	abs, err := resolveMigrationsDir("/srv/migrations")
	require.NoError(t, err)
	assert.Equal(t, "/srv/migrations", abs)

	rel, err := resolveMigrationsDir("")
	require.NoError(t, err)
	assert.Equal(t, "migrations", filepath.Base(rel))
	assert.True(t, filepath.IsAbs(rel))
}

func TestConfigURL(t *testing.T) {
	cfg := Config{User: "bot", Password: "pw", Host: "db", Port: "5432", Name: "ledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://bot:pw@db:5432/ledger?sslmode=disable", cfg.URL())
	assert.Equal(t, "user=bot password=pw host=db port=5432 dbname=ledger sslmode=disable", cfg.DSN())
}

func TestConfigEscapesSecrets(t *testing.T) {
	cfg := Config{User: "bot", Password: "p@ss word's", Host: "db", Port: "5432", Name: "ledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://bot:p%40ss%20word%27s@db:5432/ledger?sslmode=disable", cfg.URL())
	assert.Contains(t, cfg.DSN(), `password='p@ss word\'s'`)

	cfg.Password = ""
	assert.Contains(t, cfg.DSN(), "password='' ")
}
