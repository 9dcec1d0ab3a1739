package polyfills

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/nodeshim/internal/shims/specifier"
)

func TestMaterialize(t *testing.T) {
	dir := t.TempDir()
	set, err := Materialize(dir)
	require.NoError(t, err)

	for _, id := range []specifier.ID{specifier.Crypto, specifier.Buffer, specifier.Process, specifier.Globals} {
		p, ok := set.Path(id)
		require.True(t, ok, id)
		assert.True(t, filepath.IsAbs(p))
		assert.Equal(t, set.Dir(), filepath.Dir(p))

		onDisk, err := os.ReadFile(p)
		require.NoError(t, err)
		embedded, err := Source(id)
		require.NoError(t, err)
		assert.Equal(t, embedded, onDisk)
	}

	_, ok := set.Path("fs")
	assert.False(t, ok)
}

func TestMaterializeKeepsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	set, err := Materialize(dir)
	require.NoError(t, err)

	p, _ := set.Path(specifier.Crypto)
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(p, old, old))

	_, err = Materialize(dir)
	require.NoError(t, err)

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old))
}

func TestMaterializeRewritesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crypto.js"), []byte("stale"), 0o644))

	set, err := Materialize(dir)
	require.NoError(t, err)

	p, _ := set.Path(specifier.Crypto)
	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(got))
}

func TestMaterializeTempDir(t *testing.T) {
	set, err := Materialize("")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(set.Dir()) })

	_, ok := set.Path(specifier.Globals)
	assert.True(t, ok)
}
