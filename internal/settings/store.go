// Package settings persists per-scene submission options. Load reconciles
// the stored layer list with the layers the scene currently has; Save
// rewrites every field in one atomic write and refuses to clobber changes
// made since the last Load.
package settings

import (
	"context"
	"fmt"
	"sync"

	"smedge-submit/internal/host"
	"smedge-submit/internal/jobfile"
	"smedge-submit/internal/logx"
	"smedge-submit/internal/model"
)

// Store persists one scene's submission config. Load returns configs in
// model.SubmissionConfig.Normalize form, so Save(cfg) followed by Load
// yields cfg.Normalize().
type Store interface {
	Load(ctx context.Context) (model.SubmissionConfig, error)
	Save(ctx context.Context, cfg model.SubmissionConfig) error
	Path() string
}

// Defaults seed a store that does not exist yet and size new layers.
type Defaults struct {
	NetworkProjectLocation string
	NetworkRenderLocation  string
	ExcludeDirectories     []string
	PacketSizes            jobfile.PacketSizes
}

type record struct {
	Revision int
	Config   model.SubmissionConfig
}

// backend is the storage layout behind a tracker.
type backend interface {
	path() string
	// scene returns the host scene used for reconciliation, or nil.
	scene() (host.Scene, error)
	read() (record, bool, error)
	write(rec record) error
}

// tracker holds the revision seen by this store instance.
type tracker struct {
	b        backend
	defaults Defaults

	mu     sync.Mutex
	rev    int
	loaded bool
}

func (t *tracker) Path() string {
	return t.b.path()
}

func (t *tracker) Load(ctx context.Context) (model.SubmissionConfig, error) {
	if err := ctx.Err(); err != nil {
		return model.SubmissionConfig{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	scene, err := t.b.scene()
	if err != nil {
		return model.SubmissionConfig{}, err
	}

	rec, found, err := t.b.read()
	if err != nil {
		return model.SubmissionConfig{}, err
	}
	if !found {
		cfg, err := DefaultConfig(scene, t.defaults)
		if err != nil {
			return model.SubmissionConfig{}, err
		}
		rec = record{Revision: 1, Config: cfg}
		if err := t.b.write(rec); err != nil {
			return model.SubmissionConfig{}, fmt.Errorf("create settings %s: %w", t.b.path(), err)
		}
		logx.FromContext(ctx).Info("created submission settings", "path", t.b.path(), "layers", len(cfg.RenderLayers))
	}
	t.rev = rec.Revision
	t.loaded = true

	cfg := rec.Config
	if scene != nil {
		layers, err := scene.RenderLayers()
		if err != nil {
			return model.SubmissionConfig{}, fmt.Errorf("query render layers: %w", err)
		}
		cfg.RenderLayers = Reconcile(cfg.RenderLayers, layers, t.defaults.PacketSizes)
	}
	return cfg.Normalize(), nil
}

func (t *tracker) Save(ctx context.Context, cfg model.SubmissionConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	current, found, err := t.b.read()
	if err != nil {
		return err
	}
	if found && t.loaded && current.Revision != t.rev {
		return fmt.Errorf("save %s (have revision %d, store has %d): %w", t.b.path(), t.rev, current.Revision, model.ErrStale)
	}

	next := record{Revision: current.Revision + 1, Config: cfg.Normalize()}
	if err := t.b.write(next); err != nil {
		return fmt.Errorf("save settings %s: %w", t.b.path(), err)
	}
	t.rev = next.Revision
	t.loaded = true
	logx.FromContext(ctx).Debug("saved submission settings", "path", t.b.path(), "revision", next.Revision)
	return nil
}

// Stale reports whether the stored revision moved since this instance last
// loaded or saved.
func (t *tracker) Stale() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return false, nil
	}
	current, found, err := t.b.read()
	if err != nil {
		return false, err
	}
	return found && current.Revision != t.rev, nil
}

// Reconcile drops stored layers the scene no longer has and appends new
// scene layers, enabled, with their preset packet size.
func Reconcile(stored []model.RenderLayer, current []string, presets jobfile.PacketSizes) []model.RenderLayer {
	live := make(map[string]bool, len(current))
	for _, name := range current {
		live[name] = true
	}

	out := make([]model.RenderLayer, 0, len(current))
	kept := make(map[string]bool, len(stored))
	for _, l := range stored {
		if !live[l.Name] || kept[l.Name] {
			continue
		}
		kept[l.Name] = true
		out = append(out, l)
	}
	for _, name := range current {
		if kept[name] {
			continue
		}
		kept[name] = true
		out = append(out, model.RenderLayer{Name: name, Enabled: true, PacketSize: presets.For(name)})
	}
	return out
}

// DefaultConfig builds the config a new store starts with.
func DefaultConfig(scene host.Scene, d Defaults) (model.SubmissionConfig, error) {
	cfg := model.SubmissionConfig{
		RenderLayers:           []model.RenderLayer{},
		NetworkProjectLocation: d.NetworkProjectLocation,
		NetworkRenderLocation:  d.NetworkRenderLocation,
		ExcludeDirectories:     model.NormalizeDirectories(d.ExcludeDirectories),
		StartFrame:             1,
		EndFrame:               1,
	}
	if scene == nil {
		return cfg, nil
	}
	start, end, err := scene.FrameRange()
	if err != nil {
		return model.SubmissionConfig{}, fmt.Errorf("query frame range: %w", err)
	}
	cfg.StartFrame, cfg.EndFrame = start, end
	layers, err := scene.RenderLayers()
	if err != nil {
		return model.SubmissionConfig{}, fmt.Errorf("query render layers: %w", err)
	}
	cfg.RenderLayers = Reconcile(nil, layers, d.PacketSizes)
	return cfg, nil
}
