// Package submit runs a full farm submission for one scene: load settings,
// mirror the project to the network, write one job file per enabled layer,
// then record and announce the outcome.
package submit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"smedge-submit/internal/fsstore"
	"smedge-submit/internal/history"
	"smedge-submit/internal/host"
	"smedge-submit/internal/jobfile"
	"smedge-submit/internal/logx"
	"smedge-submit/internal/mirror"
	"smedge-submit/internal/model"
	"smedge-submit/internal/notify"
	"smedge-submit/internal/project"
	"smedge-submit/internal/settings"
)

// Recorder stores submission outcomes.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Submission, error)
}

type Options struct {
	Store settings.Store
	Scene host.Scene
	// JobOutputDir is where the farm manager picks up job files.
	JobOutputDir string

	// Mirror is nil when the project is already on the network.
	// Source defaults to the located project; Destination and Exclude
	// always come from the loaded settings. An empty network project
	// location skips the mirror.
	Mirror *mirror.Options

	ExtraArgs []string

	Recorder Recorder
	Notifier notify.Notifier
}

// Result describes one submission. MirrorSkipped is set when mirroring was
// requested but the settings name no network project.
type Result struct {
	ScenePath     string                `json:"scene_path"`
	ProjectDir    string                `json:"project_dir"`
	JobName       string                `json:"job_name"`
	NetworkScene  string                `json:"network_scene"`
	Mirror        *mirror.Result        `json:"mirror,omitempty"`
	MirrorSkipped bool                  `json:"mirror_skipped,omitempty"`
	Jobs          []model.JobDescriptor `json:"jobs"`
	JobFiles      []string              `json:"job_files"`
}

// Run performs one submission. Only one submission may target a job output
// directory at a time; a second one fails with model.ErrConflict.
func Run(ctx context.Context, opts Options) (res Result, err error) {
	if err := validateOptions(opts); err != nil {
		return Result{}, err
	}
	logger := logx.FromContext(ctx)
	res.ScenePath = opts.Scene.ScenePath()

	lock, err := fsstore.AcquireLock(opts.JobOutputDir, "submit "+res.ScenePath)
	if err != nil {
		return res, err
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			logger.Warn("release output lock", "dir", opts.JobOutputDir, "err", relErr)
		}
	}()

	defer func() {
		finish(ctx, opts, res, err)
	}()

	cfg, err := opts.Store.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("load submission settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return res, err
	}

	res.ProjectDir, err = project.FindProject(res.ScenePath)
	if err != nil {
		return res, err
	}
	rel, err := project.RelScene(res.ProjectDir, res.ScenePath)
	if err != nil {
		return res, err
	}

	switch {
	case opts.Mirror == nil:
	case strings.TrimSpace(cfg.NetworkProjectLocation) == "":
		// Jobs fall back to the local project, so there is nothing to mirror to.
		logger.Warn("no network project location; skipping mirror", "scene", res.ScenePath)
		res.MirrorSkipped = true
	default:
		mo := *opts.Mirror
		if strings.TrimSpace(mo.Source) == "" {
			mo.Source = res.ProjectDir
		}
		mo.Destination = cfg.NetworkProjectLocation
		mo.Exclude = cfg.ExcludeDirectories
		mr, err := mirror.Run(ctx, mo)
		res.Mirror = &mr
		if err != nil {
			return res, fmt.Errorf("mirror project: %w", err)
		}
	}

	prefix, err := opts.Scene.ImageFilePrefix()
	if err != nil {
		return res, fmt.Errorf("query image file prefix: %w", err)
	}
	res.JobName = jobfile.JobName(prefix, res.ScenePath)

	networkProject := cfg.NetworkProjectLocation
	if strings.TrimSpace(networkProject) == "" {
		networkProject = res.ProjectDir
	}
	renderRoot := cfg.NetworkRenderLocation
	if strings.TrimSpace(renderRoot) == "" {
		renderRoot = filepath.Join(networkProject, "RENDER_OUT")
	}
	res.NetworkScene = filepath.Join(networkProject, rel)

	res.Jobs = jobfile.Build(cfg, jobfile.Target{
		ProjectPath: networkProject,
		ScenePath:   res.NetworkScene,
		RenderRoot:  renderRoot,
		JobName:     res.JobName,
	}, jobfile.Options{ExtraArgs: opts.ExtraArgs})
	if len(res.Jobs) == 0 {
		logger.Warn("no enabled render layers; nothing to submit", "scene", res.ScenePath)
	}

	res.JobFiles, err = jobfile.Write(opts.JobOutputDir, res.Jobs)
	if err != nil {
		return res, err
	}
	logger.Info("job files written", "count", len(res.JobFiles), "dir", opts.JobOutputDir)
	return res, nil
}

func validateOptions(opts Options) error {
	var errs []error
	if opts.Store == nil {
		errs = append(errs, errors.New("settings store is required"))
	}
	if opts.Scene == nil {
		errs = append(errs, errors.New("host scene is required"))
	}
	if strings.TrimSpace(opts.JobOutputDir) == "" {
		errs = append(errs, errors.New("job output directory is required"))
	}
	return errors.Join(errs...)
}

// finish records and announces the outcome. Neither step can fail the
// submission.
func finish(ctx context.Context, opts Options, res Result, runErr error) {
	logger := logx.FromContext(ctx)
	layers := make([]string, 0, len(res.Jobs))
	for _, j := range res.Jobs {
		layers = append(layers, j.Layer)
	}

	if opts.Recorder != nil {
		entry := history.Entry{
			ScenePath: res.ScenePath,
			JobName:   res.JobName,
			OutputDir: opts.JobOutputDir,
			Layers:    layers,
			JobFiles:  res.JobFiles,
			Err:       runErr,
		}
		if res.Mirror != nil {
			code := res.Mirror.ExitCode
			entry.MirrorExitCode = &code
		}
		if _, err := opts.Recorder.Record(ctx, entry); err != nil {
			logger.Warn("record submission history", "err", err)
		}
	}

	if opts.Notifier != nil {
		ev := notify.Event{
			Scene:    res.ScenePath,
			JobName:  res.JobName,
			Layers:   layers,
			JobFiles: res.JobFiles,
			Err:      runErr,
		}
		if ev.JobName == "" {
			ev.JobName = filepath.Base(res.ScenePath)
		}
		_ = opts.Notifier.Notify(ctx, ev)
	}
}
