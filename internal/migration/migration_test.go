package migration_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/migration"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *kv.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := kv.Open(filepath.Join(dir, "idx.db"), kv.DefaultOptions(), []string{
		migration.MetadataBucket, "oracle-price-feed", "vault-auction-history",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunAppliesAllStepsInOrder(t *testing.T) {
	s := openStore(t)

	require.NoError(t, migration.Run(s, migration.Steps))

	v, err := migration.ReadVersion(s)
	require.NoError(t, err)
	require.Equal(t, migration.CurrentVersion, v)
}

func TestRunIsIdempotent(t *testing.T) {
	s := openStore(t)

	require.NoError(t, migration.Run(s, migration.Steps))
	v1, err := migration.ReadVersion(s)
	require.NoError(t, err)

	// Re-running a fully migrated store must be a no-op.
	require.NoError(t, migration.Run(s, migration.Steps))
	v2, err := migration.ReadVersion(s)
	require.NoError(t, err)

	require.Equal(t, v1, v2)
}

func TestRunRejectsNewerOnDiskVersion(t *testing.T) {
	s := openStore(t)
	require.NoError(t, migration.Run(s, migration.Steps))

	// Simulate a store written by a newer binary.
	var buf bytes.Buffer
	kv.PutUint32(&buf, migration.CurrentVersion+1)
	require.NoError(t, s.Put(migration.MetadataBucket, []byte("version"), buf.Bytes()))

	err := migration.Run(s, migration.Steps)
	require.ErrorIs(t, err, ocerr.ErrUnsupportedVersion)
}
