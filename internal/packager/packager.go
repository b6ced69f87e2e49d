// Package packager archives a scene with its assets through the host,
// unpacks the archive into a self-contained output directory and writes a
// single Smedge job file describing it.
package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Bios-Marcel/wastebasket/v2"

	"smedge-submit/internal/fsstore"
	"smedge-submit/internal/host"
	"smedge-submit/internal/jobfile"
	"smedge-submit/internal/logx"
	"smedge-submit/internal/model"
	"smedge-submit/internal/project"
)

const (
	ReplaceDelete = "delete"
	ReplaceTrash  = "trash"
)

type Options struct {
	ScenePath  string
	OutputRoot string
	Replace    bool
	// ReplaceMode is delete (default) or trash.
	ReplaceMode string

	Archiver host.Archiver
	// Scene supplies the frame range.
	Scene host.Scene

	GenerateTx bool
	ForceTx    bool
	ExtraArgs  []string
}

type Result struct {
	OutputDir       string              `json:"output_dir"`
	SourceProject   string              `json:"source_project"`
	PackagedScene   string              `json:"packaged_scene"`
	PackagedProject string              `json:"packaged_project"`
	JobFile         string              `json:"job_file"`
	Job             model.JobDescriptor `json:"job"`
	ReplacedOutput  bool                `json:"replaced_output"`
}

// OutputDir is the directory a scene is unpacked into.
func OutputDir(outputRoot, scenePath string) string {
	return filepath.Join(outputRoot, filepath.Base(scenePath))
}

// Package runs the whole packaging sequence. Nothing is rolled back on
// failure; directories created so far stay in place.
func Package(ctx context.Context, opts Options) (Result, error) {
	if err := validateOptions(opts); err != nil {
		return Result{}, err
	}
	logger := logx.FromContext(ctx)

	scenePath, err := filepath.Abs(opts.ScenePath)
	if err != nil {
		return Result{}, fmt.Errorf("resolve scene path %s: %w", opts.ScenePath, err)
	}
	outputRoot, err := filepath.Abs(opts.OutputRoot)
	if err != nil {
		return Result{}, fmt.Errorf("resolve output root %s: %w", opts.OutputRoot, err)
	}

	projectDir, err := project.FindProject(scenePath)
	if err != nil {
		return Result{}, err
	}

	res := Result{OutputDir: OutputDir(outputRoot, scenePath), SourceProject: projectDir}
	exists, err := fsstore.Exists(res.OutputDir)
	if err != nil {
		return res, err
	}
	if exists {
		if !opts.Replace {
			return res, fmt.Errorf("output directory %s already exists (use --replace to overwrite): %w", res.OutputDir, model.ErrConflict)
		}
		logger.Info("removing previous output", "dir", res.OutputDir, "mode", replaceMode(opts.ReplaceMode))
		if err := removeOutput(res.OutputDir, opts.ReplaceMode); err != nil {
			return res, err
		}
		res.ReplacedOutput = true
	}

	logger.Info("archiving scene", "scene", scenePath, "project", projectDir)
	archive, err := opts.Archiver.Archive(ctx, scenePath, projectDir)
	if err != nil {
		return res, fmt.Errorf("archive scene: %w", err)
	}
	if err := checkZip(archive); err != nil {
		return res, err
	}

	if err := fsstore.Mkdir(outputRoot); err != nil {
		return res, err
	}
	moved := filepath.Join(outputRoot, filepath.Base(archive))
	logger.Info("moving archive to output root", "archive", moved)
	if err := fsstore.MoveFile(archive, moved); err != nil {
		return res, err
	}

	logger.Info("extracting archive", "dir", res.OutputDir)
	if err := extractZip(moved, res.OutputDir); err != nil {
		return res, err
	}
	if err := os.Remove(moved); err != nil {
		return res, fmt.Errorf("delete archive %s: %w", moved, err)
	}

	packaged, err := findScene(res.OutputDir, filepath.Base(scenePath))
	if err != nil {
		return res, err
	}
	res.PackagedScene = packaged

	res.PackagedProject, err = project.FindProject(packaged)
	if err != nil {
		return res, fmt.Errorf("packaged scene %s: %w", packaged, err)
	}

	start, end, err := opts.Scene.FrameRange()
	if err != nil {
		return res, fmt.Errorf("query frame range: %w", err)
	}

	extra := append(jobfile.TxFlags(opts.GenerateTx, opts.ForceTx), opts.ExtraArgs...)
	res.Job = model.JobDescriptor{
		JobName:         sceneStem(scenePath),
		ProjectPath:     res.PackagedProject,
		ScenePath:       packaged,
		RenderOutputDir: filepath.Join(res.OutputDir, "RENDER_OUT", filepath.Base(scenePath)+"_render"),
		StartFrame:      start,
		EndFrame:        end,
		PacketSize:      1,
		DistributeMode:  jobfile.DistributeMode,
		ExtraEngineArgs: strings.Join(extra, " "),
	}
	res.JobFile = filepath.Join(res.OutputDir, jobfile.PackageFileName)
	if err := jobfile.WriteSingle(res.JobFile, res.Job); err != nil {
		return res, err
	}
	logger.Info("scene packaged", "dir", res.OutputDir, "job_file", res.JobFile)
	return res, nil
}

func validateOptions(opts Options) error {
	var errs []error
	if strings.TrimSpace(opts.ScenePath) == "" {
		errs = append(errs, errors.New("scene path is required"))
	}
	if strings.TrimSpace(opts.OutputRoot) == "" {
		errs = append(errs, errors.New("output root is required"))
	}
	if opts.Archiver == nil {
		errs = append(errs, errors.New("archiver is required"))
	}
	if opts.Scene == nil {
		errs = append(errs, errors.New("host scene is required"))
	}
	switch replaceMode(opts.ReplaceMode) {
	case ReplaceDelete, ReplaceTrash:
	default:
		errs = append(errs, fmt.Errorf("invalid replace mode %q (expected %s or %s)", opts.ReplaceMode, ReplaceDelete, ReplaceTrash))
	}
	return errors.Join(errs...)
}

func replaceMode(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ReplaceDelete
	}
	return v
}

func removeOutput(dir, mode string) error {
	if replaceMode(mode) == ReplaceTrash {
		if err := wastebasket.Trash(dir); err != nil {
			return fmt.Errorf("move %s to trash: %w", dir, err)
		}
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete %s: %w", dir, err)
	}
	return nil
}

// findScene returns the first regular file named name under root, in
// lexical walk order.
func findScene(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && d.Name() == name {
			found = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search %s for %s: %w", root, name, err)
	}
	if found == "" {
		return "", fmt.Errorf("packaged scene %s not found under %s: %w", name, root, model.ErrNotFound)
	}
	return found, nil
}

func sceneStem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
