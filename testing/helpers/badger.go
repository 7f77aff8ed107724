package helpers

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"
)

func InMemoryDB(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions("")
	opts.InMemory = true
	opts.Logger = nil

	db, err := badger.Open(opts)
	require.NoError(t, err)

	return db
}

// StoragePath returns a fresh directory for on-disk databases that is removed
// when the test ends.
func StoragePath(t *testing.T) string {
	t.Helper()

	return t.TempDir()
}
