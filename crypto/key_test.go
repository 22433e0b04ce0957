package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyFileRoundTrip(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "config", "owner_priv_key")

	addr, err := GenerateKeyFile(path)
	require.NoError(err)

	priv, err := LoadKey(path)
	require.NoError(err)
	require.Equal(addr, KeyAddress(priv))

	info, err := os.Stat(path)
	require.NoError(err)
	require.Equal(os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadKeyRejectsGarbage(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "bad")
	require.NoError(os.WriteFile(path, []byte("zz"), 0o600))

	_, err := LoadKey(path)
	require.Error(err)

	_, err = LoadKey(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(err, os.ErrNotExist)
}
