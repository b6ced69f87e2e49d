package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smedge-submit/internal/model"
)

func TestFindProjectFromAnyDepth(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "show", "seq010", "shot020")
	deep := filepath.Join(proj, "scenes", "anim", "v003")
	require.NoError(t, os.MkdirAll(deep, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(proj, MarkerFile), nil, 0o644))
	scene := filepath.Join(deep, "shot020.ma")
	require.NoError(t, os.WriteFile(scene, []byte("//Maya"), 0o644))

	for _, start := range []string{proj, filepath.Join(proj, "scenes"), deep, scene} {
		got, err := FindProject(start)
		require.NoError(t, err, "start=%s", start)
		assert.Equal(t, proj, got, "start=%s", start)
	}
}

func TestFindProjectNearestWins(t *testing.T) {
	root := t.TempDir()
	inner := filepath.Join(root, "outer", "inner")
	require.NoError(t, os.MkdirAll(inner, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "outer", MarkerFile), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inner, MarkerFile), nil, 0o644))

	got, err := FindProject(filepath.Join(inner, "scene.ma"))
	require.NoError(t, err)
	assert.Equal(t, inner, got)
}

func TestFindProjectNotFound(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	_, err := Find(deep, "no-such-marker-9f3b.mel")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestFindIgnoresMarkerDirectory(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(proj, "sub", "odd-marker.mel"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(proj, "odd-marker.mel"), nil, 0o644))

	got, err := Find(filepath.Join(proj, "sub", "x.ma"), "odd-marker.mel")
	require.NoError(t, err)
	assert.Equal(t, proj, got)
}

func TestRelScene(t *testing.T) {
	rel, err := RelScene(filepath.FromSlash("/show/proj"), filepath.FromSlash("/show/proj/scenes/a.ma"))
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("scenes/a.ma"), rel)

	_, err = RelScene(filepath.FromSlash("/show/proj"), filepath.FromSlash("/show/other/a.ma"))
	assert.Error(t, err)
}
