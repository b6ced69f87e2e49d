package form

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smedge-submit/internal/model"
)

func sampleConfig() model.SubmissionConfig {
	return model.SubmissionConfig{
		RenderLayers: []model.RenderLayer{
			{Name: "Beauty", Enabled: true, PacketSize: 1},
			{Name: "AOVs", Enabled: false, PacketSize: 20},
		},
		GenerateTx:             true,
		NetworkProjectLocation: `\\farm\projects\shot020`,
		NetworkRenderLocation:  `\\farm\renders`,
		ExcludeDirectories:     []string{"autosave", "images"},
		StartFrame:             1001,
		EndFrame:               1100,
	}
}

func TestReflectThenCollectRoundTrips(t *testing.T) {
	cfg := sampleConfig()
	got, err := Collect(Reflect(cfg))
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestReflectRebuildsLayerRowsInOrder(t *testing.T) {
	cfg := sampleConfig()
	fields := Reflect(cfg)
	layers := []string{}
	for _, f := range fields {
		if f.Key == KeyLayerEnabled {
			layers = append(layers, f.Layer)
		}
	}
	assert.Equal(t, []string{"Beauty", "AOVs"}, layers)

	cfg.RenderLayers = cfg.RenderLayers[:1]
	again := Reflect(cfg)
	assert.Len(t, again, len(fields)-2)
}

func TestDisabledLayerPacketSizeIsGrayed(t *testing.T) {
	fields := Reflect(sampleConfig())
	packet := map[string]Field{}
	for _, f := range fields {
		if f.Key == KeyLayerPacket {
			packet[f.Layer] = f
		}
	}
	assert.False(t, packet["Beauty"].Disabled)
	assert.True(t, packet["AOVs"].Disabled)
	assert.Equal(t, "20", packet["AOVs"].Value)
}

func TestRefreshLayerDisplayFollowsToggle(t *testing.T) {
	fields := Reflect(sampleConfig())
	for i := range fields {
		if fields[i].Key == KeyLayerEnabled && fields[i].Layer == "AOVs" {
			fields[i].Value = FormatBool(true)
		}
	}
	refreshed := RefreshLayerDisplay(fields)
	for _, f := range refreshed {
		if f.Key == KeyLayerPacket {
			assert.False(t, f.Disabled, f.Layer)
		}
	}
}

func TestLayerDisplay(t *testing.T) {
	assert.Equal(t, LayerView{Name: "a", Enabled: true, PacketEditable: true}, LayerDisplay(model.RenderLayer{Name: "a", Enabled: true, PacketSize: 3}))
	assert.Equal(t, LayerView{Name: "b", Grayed: true}, LayerDisplay(model.RenderLayer{Name: "b", PacketSize: 3}))
}

func TestCollectReportsFieldErrors(t *testing.T) {
	fields := Reflect(sampleConfig())
	for i := range fields {
		switch {
		case fields[i].Key == KeyStartFrame:
			fields[i].Value = "abc"
		case fields[i].Key == KeyLayerPacket && fields[i].Layer == "Beauty":
			fields[i].Value = "0"
		case fields[i].Key == KeyForceTx:
			fields[i].Value = "maybe"
		}
	}
	_, err := Collect(fields)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start frame must be an integer")
	assert.Contains(t, err.Error(), "beauty packet size must be an integer >= 1")
	assert.Contains(t, err.Error(), "force tx must be y or n")
}

func TestCollectEnforcesConfigInvariants(t *testing.T) {
	cfg := sampleConfig()
	cfg.EndFrame = 10
	_, err := Collect(Reflect(cfg))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
}

func TestCollectNormalizesExcludeDirectories(t *testing.T) {
	fields := Reflect(sampleConfig())
	for i := range fields {
		if fields[i].Key == KeyExcludeDirs {
			fields[i].Value = "autosave, ,images,autosave , incrementalSave"
		}
	}
	cfg, err := Collect(fields)
	require.NoError(t, err)
	assert.Equal(t, []string{"autosave", "images", "incrementalSave"}, cfg.ExcludeDirectories)
}

func TestCloneIsDeep(t *testing.T) {
	cfg := sampleConfig()
	clone, err := Clone(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, clone)

	clone.RenderLayers[0].Enabled = false
	clone.ExcludeDirectories[0] = "changed"
	assert.True(t, cfg.RenderLayers[0].Enabled)
	assert.Equal(t, "autosave", cfg.ExcludeDirectories[0])
}
