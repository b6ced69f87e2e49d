package model

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	cfg := SubmissionConfig{
		RenderLayers: []RenderLayer{
			{Name: "Beauty", Enabled: true, PacketSize: 1},
			{Name: "AOVs", Enabled: false, PacketSize: 20},
		},
		StartFrame: 1001,
		EndFrame:   1001,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_RejectsBrokenInvariants(t *testing.T) {
	cases := []struct {
		name string
		cfg  SubmissionConfig
		want string
	}{
		{"reversed range", SubmissionConfig{StartFrame: 10, EndFrame: 9}, "before start frame"},
		{"zero packet", SubmissionConfig{RenderLayers: []RenderLayer{{Name: "a", PacketSize: 0}}}, "packet size"},
		{"duplicate", SubmissionConfig{RenderLayers: []RenderLayer{{Name: "a", PacketSize: 1}, {Name: "a", PacketSize: 1}}}, "listed twice"},
		{"blank name", SubmissionConfig{RenderLayers: []RenderLayer{{Name: " ", PacketSize: 1}}}, "name is required"},
		{"case collision", SubmissionConfig{RenderLayers: []RenderLayer{{Name: "Beauty", Enabled: true, PacketSize: 1}, {Name: "beauty", Enabled: true, PacketSize: 1}}}, "same job file"},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q in %q", tc.name, tc.want, err.Error())
		}
	}
}

func TestValidate_AllowsCaseVariantWhenOneIsDisabled(t *testing.T) {
	cfg := SubmissionConfig{RenderLayers: []RenderLayer{
		{Name: "Beauty", Enabled: true, PacketSize: 1},
		{Name: "beauty", Enabled: false, PacketSize: 1},
	}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestEnabledLayersKeepsOrder(t *testing.T) {
	cfg := SubmissionConfig{RenderLayers: []RenderLayer{
		{Name: "c", Enabled: true, PacketSize: 1},
		{Name: "b", Enabled: false, PacketSize: 1},
		{Name: "a", Enabled: true, PacketSize: 1},
	}}
	got := cfg.EnabledLayers()
	if len(got) != 2 || got[0].Name != "c" || got[1].Name != "a" {
		t.Fatalf("unexpected enabled layers: %+v", got)
	}
}

func TestNormalizeFillsNilSlices(t *testing.T) {
	got := SubmissionConfig{StartFrame: 1, EndFrame: 2}.Normalize()
	if got.RenderLayers == nil || got.ExcludeDirectories == nil {
		t.Fatalf("expected empty, non-nil slices: %+v", got)
	}

	layers := []RenderLayer{{Name: "Beauty", Enabled: true, PacketSize: 1}}
	cfg := SubmissionConfig{RenderLayers: layers, ExcludeDirectories: []string{" images ", "images"}}
	got = cfg.Normalize()
	if len(got.ExcludeDirectories) != 1 || got.ExcludeDirectories[0] != "images" {
		t.Fatalf("unexpected exclude directories: %v", got.ExcludeDirectories)
	}
	got.RenderLayers[0].Enabled = false
	if !layers[0].Enabled {
		t.Fatal("Normalize must copy the layer slice")
	}
}

func TestNormalizeDirectories(t *testing.T) {
	got := NormalizeDirectories([]string{" autosave", "", "images", "autosave", "incrementalSave "})
	want := []string{"autosave", "images", "incrementalSave"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestToolErrorUnwrapsToExternalTool(t *testing.T) {
	err := &ToolError{Tool: "robocopy", ExitCode: 16, Output: "ERROR 5"}
	if !errors.Is(err, ErrExternalTool) {
		t.Fatal("expected ToolError to match ErrExternalTool")
	}
	if !strings.Contains(err.Error(), "exit 16") {
		t.Fatalf("expected exit code in message, got %q", err.Error())
	}
	if !errors.Is(ErrStale, ErrConflict) {
		t.Fatal("expected ErrStale to be a conflict")
	}
}
