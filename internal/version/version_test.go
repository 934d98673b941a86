package version

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "version.json"))
}

func TestCurrentSeedsDefaultWhenMissing(t *testing.T) {
	s := newStore(t)

	v, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", v)

	// The file now exists with the default version.
	_, err = os.Stat(s.path)
	assert.NoError(t, err)
}

func TestUpdateBumpLevels(t *testing.T) {
	s := newStore(t)

	v, err := s.Update("patch")
	require.NoError(t, err)
	assert.Equal(t, "0.1.1", v)

	v, err = s.Update("minor")
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", v)

	v, err = s.Update("major")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v)

	v, err = s.Current()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v)
}

func TestUpdateExplicitVersion(t *testing.T) {
	s := newStore(t)

	v, err := s.Update("2.5.3")
	require.NoError(t, err)
	assert.Equal(t, "2.5.3", v)
}

func TestUpdateRejectsGarbage(t *testing.T) {
	s := newStore(t)

	_, err := s.Update("not-a-version")
	assert.Error(t, err)

	// The stored version is untouched.
	v, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", v)
}

func TestCurrentRejectsCorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.path, []byte("{broken"), 0o644))

	_, err := s.Current()
	assert.Error(t, err)
}
