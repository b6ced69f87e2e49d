package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smedge-submit/internal/host"
	"smedge-submit/internal/jobfile"
	"smedge-submit/internal/model"
	"smedge-submit/internal/scenegraph"
)

func writeHostScene(t *testing.T, layers ...string) string {
	t.Helper()
	scene := filepath.Join(t.TempDir(), "shot020.scene")
	require.NoError(t, os.WriteFile(scene, []byte("scene"), 0o644))
	doc := scenegraph.New(scenegraph.PathForScene(scene))
	g := doc.EnsureNode(host.RenderGlobalsNode, "renderGlobals")
	g.Set("startFrame", 1001)
	g.Set("endFrame", 1100)
	doc.EnsureNode(host.DefaultRenderLayer, host.RenderLayerType)
	for _, l := range layers {
		doc.EnsureNode(l, host.RenderLayerType)
	}
	require.NoError(t, doc.Save())
	return scene
}

func setHostLayers(t *testing.T, scene string, layers ...string) {
	t.Helper()
	doc, err := scenegraph.Open(scenegraph.PathForScene(scene))
	require.NoError(t, err)
	kept := doc.Nodes[:0]
	for _, n := range doc.Nodes {
		if n.Type != host.RenderLayerType {
			kept = append(kept, n)
		}
	}
	doc.Nodes = kept
	for _, l := range layers {
		doc.EnsureNode(l, host.RenderLayerType)
	}
	require.NoError(t, doc.Save())
}

func testDefaults() Defaults {
	return Defaults{
		NetworkProjectLocation: "//farm/projects/shot020",
		NetworkRenderLocation:  "//farm/renders",
		ExcludeDirectories:     []string{"autosave", "incrementalSave", "images"},
		PacketSizes:            jobfile.PacketSizes{"AOVs": 20},
	}
}

func TestNodeStoreCreatesDefaultsOnFirstLoad(t *testing.T) {
	scene := writeHostScene(t, "Beauty", "AOVs")
	store := NewNodeStore(scene, testDefaults())

	cfg, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.RenderLayer{
		{Name: "Beauty", Enabled: true, PacketSize: 1},
		{Name: "AOVs", Enabled: true, PacketSize: 20},
	}, cfg.RenderLayers)
	assert.Equal(t, 1001, cfg.StartFrame)
	assert.Equal(t, 1100, cfg.EndFrame)
	assert.Equal(t, "//farm/renders", cfg.NetworkRenderLocation)
	assert.Equal(t, []string{"autosave", "incrementalSave", "images"}, cfg.ExcludeDirectories)

	doc, err := scenegraph.Open(store.Path())
	require.NoError(t, err)
	_, ok := doc.Node(SettingsNode)
	assert.True(t, ok, "expected settings node to be created")
}

func TestNodeStoreRoundTrip(t *testing.T) {
	scene := writeHostScene(t, "Beauty", "AOVs")
	store := NewNodeStore(scene, testDefaults())
	ctx := context.Background()
	_, err := store.Load(ctx)
	require.NoError(t, err)

	want := model.SubmissionConfig{
		RenderLayers: []model.RenderLayer{
			{Name: "Beauty", Enabled: true, PacketSize: 1},
			{Name: "AOVs", Enabled: false, PacketSize: 20},
		},
		GenerateTx:             true,
		ForceTx:                false,
		NetworkProjectLocation: "//farm/p",
		NetworkRenderLocation:  "//farm/r",
		ExcludeDirectories:     []string{"autosave"},
		StartFrame:             1001,
		EndFrame:               1050,
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := NewNodeStore(scene, testDefaults()).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNodeStoreParallelArraysStayAligned(t *testing.T) {
	scene := writeHostScene(t, "A", "B", "C")
	store := NewNodeStore(scene, testDefaults())
	ctx := context.Background()
	cfg, err := store.Load(ctx)
	require.NoError(t, err)

	cfg.RenderLayers = cfg.RenderLayers[:2]
	require.NoError(t, store.Save(ctx, cfg))

	doc, err := scenegraph.Open(store.Path())
	require.NoError(t, err)
	n, ok := doc.Node(SettingsNode)
	require.True(t, ok)
	names, err := n.StringArray(attrLayerNames)
	require.NoError(t, err)
	enabled, err := n.BoolArray(attrLayerEnabled)
	require.NoError(t, err)
	packets, err := n.IntArray(attrLayerPackets)
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Len(t, enabled, 2)
	assert.Len(t, packets, 2)
}

func TestNodeStoreReconcilesAgainstHostLayers(t *testing.T) {
	scene := writeHostScene(t, "Beauty", "Old")
	ctx := context.Background()
	store := NewNodeStore(scene, testDefaults())
	cfg, err := store.Load(ctx)
	require.NoError(t, err)
	cfg.RenderLayers[0].Enabled = false
	cfg.RenderLayers[0].PacketSize = 5
	require.NoError(t, store.Save(ctx, cfg))

	setHostLayers(t, scene, "Beauty", "AOVs")

	first, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.RenderLayer{
		{Name: "Beauty", Enabled: false, PacketSize: 5},
		{Name: "AOVs", Enabled: true, PacketSize: 20},
	}, first.RenderLayers)

	second, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNodeStoreDetectsStaleSave(t *testing.T) {
	scene := writeHostScene(t, "Beauty")
	ctx := context.Background()

	a := NewNodeStore(scene, testDefaults())
	cfgA, err := a.Load(ctx)
	require.NoError(t, err)

	b := NewNodeStore(scene, testDefaults())
	cfgB, err := b.Load(ctx)
	require.NoError(t, err)
	cfgB.GenerateTx = true
	require.NoError(t, b.Save(ctx, cfgB))

	stale, err := a.Stale()
	require.NoError(t, err)
	assert.True(t, stale)

	err = a.Save(ctx, cfgA)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrStale))
	assert.True(t, errors.Is(err, model.ErrConflict))

	_, err = a.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Save(ctx, cfgA))
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"), nil, Defaults{})
	err := store.Save(context.Background(), model.SubmissionConfig{StartFrame: 10, EndFrame: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestNodeStoreLoadsLegacyNodeWithUnevenArrays(t *testing.T) {
	scene := writeHostScene(t, "Beauty", "AOVs")
	doc, err := scenegraph.Open(scenegraph.PathForScene(scene))
	require.NoError(t, err)
	n := doc.EnsureNode(SettingsNode, SettingsNodeType)
	n.Set(attrLayerNames, []string{"Beauty", "AOVs"})
	n.Set(attrLayerEnabled, []bool{false})
	n.Set(attrLayerPackets, []int{3, 20})
	n.Set(attrStartFrame, 1)
	n.Set(attrEndFrame, 24)
	require.NoError(t, doc.Save())

	cfg, err := NewNodeStore(scene, Defaults{}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.RenderLayer{
		{Name: "Beauty", Enabled: false, PacketSize: 3},
		{Name: "AOVs", Enabled: true, PacketSize: 1},
	}, cfg.RenderLayers)
	assert.Equal(t, 24, cfg.EndFrame)
}

func TestFileStoreRoundTripWithoutScene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	store := NewFileStore(path, nil, testDefaults())
	ctx := context.Background()

	cfg, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cfg.RenderLayers)
	assert.Equal(t, 1, cfg.StartFrame)

	cfg.RenderLayers = []model.RenderLayer{{Name: "Beauty", Enabled: true, PacketSize: 4}}
	cfg.ForceTx = true
	require.NoError(t, store.Save(ctx, cfg))

	got, err := NewFileStore(path, nil, testDefaults()).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestStoresReturnNormalizedConfigForNilSlices(t *testing.T) {
	ctx := context.Background()
	cfg := model.SubmissionConfig{
		RenderLayers: []model.RenderLayer{{Name: "Beauty", Enabled: true, PacketSize: 1}},
		StartFrame:   1,
		EndFrame:     10,
	}
	require.Nil(t, cfg.ExcludeDirectories)

	stores := map[string]func() Store{
		"node": func() Store { return NewNodeStore(writeHostScene(t, "Beauty"), testDefaults()) },
		"file": func() Store { return NewFileStore(filepath.Join(t.TempDir(), "s.yaml"), nil, testDefaults()) },
	}
	for name, open := range stores {
		store := open()
		_, err := store.Load(ctx)
		require.NoError(t, err, name)
		require.NoError(t, store.Save(ctx, cfg), name)

		got, err := store.Load(ctx)
		require.NoError(t, err, name)
		assert.Equal(t, cfg.Normalize(), got, name)
		assert.NotNil(t, got.ExcludeDirectories, name)

		// The normalized form survives a second round trip unchanged.
		require.NoError(t, store.Save(ctx, got), name)
		again, err := store.Load(ctx)
		require.NoError(t, err, name)
		assert.Equal(t, got, again, name)
	}
}

func TestFileStoreReconcilesWithScene(t *testing.T) {
	scene, err := host.OpenScene(writeHostScene(t, "Beauty", "AOVs"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewFileStore(path, scene, testDefaults())

	cfg, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Beauty", "AOVs"}, cfg.LayerNames())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "render_layers:")
	assert.Contains(t, string(data), "revision: 1")
}

func TestReconcile(t *testing.T) {
	stored := []model.RenderLayer{
		{Name: "C", Enabled: false, PacketSize: 2},
		{Name: "Gone", Enabled: true, PacketSize: 1},
		{Name: "A", Enabled: true, PacketSize: 7},
	}
	got := Reconcile(stored, []string{"A", "B", "C"}, jobfile.PacketSizes{"B": 10})
	assert.Equal(t, []model.RenderLayer{
		{Name: "C", Enabled: false, PacketSize: 2},
		{Name: "A", Enabled: true, PacketSize: 7},
		{Name: "B", Enabled: true, PacketSize: 10},
	}, got)
}

func TestWatchReportsSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewFileStore(path, nil, Defaults{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := store.Load(ctx)
	require.NoError(t, err)

	changes, err := Watch(ctx, path)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, cfg))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}
}
