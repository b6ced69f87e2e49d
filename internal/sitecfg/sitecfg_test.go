package sitecfg

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mirror.Tool != MirrorToolRobocopy {
		t.Fatalf("mirror tool default mismatch: %q", cfg.Mirror.Tool)
	}
	if strings.Join(cfg.Mirror.Exclude, ",") != "autosave,incrementalSave,images" {
		t.Fatalf("unexpected default exclusions: %v", cfg.Mirror.Exclude)
	}
	if cfg.Settings.Backend != BackendNode {
		t.Fatalf("backend default mismatch: %q", cfg.Settings.Backend)
	}
	if !cfg.MirrorEnabled() {
		t.Fatal("expected mirror enabled by default")
	}
}

func TestParsePacketSizePresets(t *testing.T) {
	cfg, err := Parse([]byte(`
paths:
  job_output: /farm/jobs
packet_sizes:
  Carliar_Reference: 10
  Scene_3D_AOVs: 20
mirror:
  tool: rsync
  exclude: [autosave]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := cfg.PacketSize("Carliar_Reference"); got != 10 {
		t.Fatalf("preset mismatch: %d", got)
	}
	if got := cfg.PacketSize("Scene_3D_AOVs"); got != 20 {
		t.Fatalf("preset mismatch: %d", got)
	}
	if got := cfg.PacketSize("Scene_3D_Beauty"); got != 1 {
		t.Fatalf("fallback mismatch: %d", got)
	}
	if cfg.Mirror.Tool != MirrorToolRsync {
		t.Fatalf("tool mismatch: %q", cfg.Mirror.Tool)
	}
	if len(cfg.Mirror.Exclude) != 1 {
		t.Fatalf("expected explicit exclusions to replace defaults, got %v", cfg.Mirror.Exclude)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	_, err := Parse([]byte(`
mirror:
  tool: xcopy
packet_sizes:
  Beauty: 0
settings:
  backend: registry
`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"mirror.tool", "packet_sizes.Beauty", "settings.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	cfg := Default()
	cfg.Paths.JobOutput = "/farm/jobs"
	cfg.PacketSizes["AOVs"] = 20
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if back.Paths.JobOutput != "/farm/jobs" || back.PacketSize("AOVs") != 20 {
		t.Fatalf("unexpected round trip: %+v", back)
	}
}
