package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "web3drender.db")

	db, err := Open(Config{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Ping(db))
	require.FileExists(t, path)
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	db, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.Equal(t, "sqlite", db.Dialector.Name())
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestOpenPostgresRequiresCredentials(t *testing.T) {
	_, err := Open(Config{Driver: "postgres"})
	require.Error(t, err)
}

func TestCloseAndPingRejectNil(t *testing.T) {
	require.Error(t, Close(nil))
	require.Error(t, Ping(nil))
}
