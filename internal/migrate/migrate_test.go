package migrate

import (
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every embedded migration must carry both directions and a strictly
// increasing numeric prefix, otherwise goose refuses to build a provider.
func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.Glob(embedded, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	sort.Strings(entries)

	seen := map[string]bool{}
	for _, name := range entries {
		base := strings.TrimPrefix(name, "migrations/")
		prefix, _, ok := strings.Cut(base, "_")
		require.True(t, ok, "migration %s has no version prefix", base)
		assert.False(t, seen[prefix], "duplicate migration version %s", prefix)
		seen[prefix] = true

		body, err := fs.ReadFile(embedded, name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", base)
		assert.Contains(t, string(body), "-- +goose Down", base)
	}
}
