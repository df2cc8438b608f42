package database_test

import (
	"testing"

	"github.com/cueside/rackline/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDBRunsMigrations(t *testing.T) {
	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	for _, table := range []string{"players", "sessions", "matches", "games"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "expected table %s to exist", table)
		assert.Equal(t, table, name)
	}

	// Columns from the second migration must be present.
	_, err = db.Exec("SELECT rating_applied, rating_delta_p1, rating_delta_p2, rating_racks FROM matches LIMIT 1")
	assert.NoError(t, err)
}

func TestInitDBIsIdempotent(t *testing.T) {
	db, teardown, err := database.InitDB("file::memory:?cache=shared", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	db2, teardown2, err := database.InitDB("file::memory:?cache=shared", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown2()

	_ = db
	_ = db2
}
