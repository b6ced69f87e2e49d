// Package mirror keeps a network copy of a project in sync by driving an
// external one-way mirroring tool (robocopy on Windows hosts, rsync
// elsewhere).
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"

	"smedge-submit/internal/logx"
	"smedge-submit/internal/model"
	"smedge-submit/internal/toolexec"
)

const (
	ToolRobocopy = "robocopy"
	ToolRsync    = "rsync"
)

type Options struct {
	Tool string
	// Binary overrides the executable looked up on PATH.
	Binary      string
	Source      string
	Destination string
	// Exclude names directories skipped at any depth.
	Exclude   []string
	ExtraArgs string
	DryRun    bool

	LogWriter io.Writer
	Progress  func(line string)
}

type Result struct {
	Command  []string `json:"command"`
	ExitCode int      `json:"exit_code"`
	DryRun   bool     `json:"dry_run,omitempty"`
}

// Command builds the argv for the configured tool.
func Command(opts Options) ([]string, error) {
	src := strings.TrimSpace(opts.Source)
	dst := strings.TrimSpace(opts.Destination)
	if src == "" {
		return nil, errors.New("mirror source is required")
	}
	if dst == "" {
		return nil, errors.New("mirror destination is required")
	}
	extra, err := shellwords.Parse(opts.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("parse mirror extra args: %w", err)
	}
	exclude := model.NormalizeDirectories(opts.Exclude)

	tool := normalizeTool(opts.Tool)
	bin := strings.TrimSpace(opts.Binary)
	if bin == "" {
		bin = tool
	}

	switch tool {
	case ToolRobocopy:
		argv := []string{bin, src, dst, "/XO", "/MIR"}
		for _, d := range exclude {
			argv = append(argv, "/XD", d)
		}
		if opts.DryRun {
			argv = append(argv, "/L")
		}
		return append(argv, extra...), nil
	case ToolRsync:
		argv := []string{bin, "-a", "--delete", "--update"}
		for _, d := range exclude {
			argv = append(argv, "--exclude", d+"/")
		}
		if opts.DryRun {
			argv = append(argv, "--dry-run")
		}
		argv = append(argv, extra...)
		return append(argv, withTrailingSlash(src), withTrailingSlash(dst)), nil
	default:
		return nil, fmt.Errorf("unsupported mirror tool %q (expected %s or %s)", opts.Tool, ToolRobocopy, ToolRsync)
	}
}

// Succeeded interprets a tool exit code. Robocopy uses bits 0-2 for
// "files copied", "extra files", "mismatches"; 8 and above is failure.
// Rsync's 24 means source files vanished mid-transfer.
func Succeeded(tool string, exitCode int) bool {
	switch normalizeTool(tool) {
	case ToolRobocopy:
		return exitCode >= 0 && exitCode < 8
	case ToolRsync:
		return exitCode == 0 || exitCode == 24
	default:
		return exitCode == 0
	}
}

// Run mirrors Source into Destination and fails on any unsuccessful exit.
func Run(ctx context.Context, opts Options) (Result, error) {
	argv, err := Command(opts)
	if err != nil {
		return Result{}, err
	}
	logger := logx.FromContext(ctx)
	logger.Info("mirroring project", "tool", normalizeTool(opts.Tool), "source", opts.Source, "destination", opts.Destination, "dry_run", opts.DryRun)

	cmd := toolexec.Command{
		Name:      argv[0],
		Args:      argv[1:],
		LogWriter: opts.LogWriter,
	}
	if opts.Progress != nil {
		cmd.Progress = func(_ toolexec.OutputStream, line string) { opts.Progress(line) }
	}
	res, err := toolexec.Run(ctx, cmd)
	out := Result{Command: res.Command, ExitCode: res.ExitCode, DryRun: opts.DryRun}
	if err != nil {
		return out, err
	}
	if !Succeeded(opts.Tool, res.ExitCode) {
		return out, res.Failure(normalizeTool(opts.Tool), nil)
	}
	logger.Debug("mirror finished", "exit_code", res.ExitCode)
	return out, nil
}

func normalizeTool(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ToolRobocopy
	}
	return v
}

func withTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") || strings.HasSuffix(p, string(filepath.Separator)) {
		return p
	}
	return p + "/"
}
