package cli

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"smedge-submit/internal/mirror"
	"smedge-submit/internal/project"
)

func runMirror(args []string) error {
	fs := flag.NewFlagSet("mirror", flag.ContinueOnError)
	config, logLevel := commonFlags(fs)
	source := fs.String("source", "", "project directory to mirror (default: mirror.source, or the project of --scene)")
	scenePath := fs.String("scene", "", "locate the source project from this scene")
	dest := fs.String("dest", "", "destination directory (default: paths.network_project)")
	var exclude stringList
	fs.Var(&exclude, "exclude", "directory name to skip (repeatable; default: mirror.exclude)")
	dryRun := fs.Bool("dry-run", false, "list what would be copied without copying")
	schedule := fs.String("schedule", "", "cron expression; keep mirroring until interrupted")
	useSchedule := fs.Bool("scheduled", false, "keep mirroring on mirror.schedule from the site config")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := loadRuntime(*config, *logLevel)
	if err != nil {
		return err
	}
	defer rt.close()

	src := strings.TrimSpace(*source)
	if src == "" && strings.TrimSpace(*scenePath) != "" {
		abs, err := filepath.Abs(strings.TrimSpace(*scenePath))
		if err != nil {
			return fmt.Errorf("resolve scene path: %w", err)
		}
		src, err = project.FindProject(abs)
		if err != nil {
			return err
		}
	}
	src = defaultIfEmpty(src, rt.cfg.Mirror.Source)
	if src == "" {
		return errors.New("--source or --scene is required when mirror.source is not set")
	}

	opts := mirror.Options{
		Tool:        rt.cfg.Mirror.Tool,
		Binary:      rt.cfg.Mirror.Binary,
		Source:      src,
		Destination: defaultIfEmpty(strings.TrimSpace(*dest), rt.cfg.Paths.NetworkProject),
		Exclude:     rt.cfg.Mirror.Exclude,
		ExtraArgs:   rt.cfg.Mirror.ExtraArgs,
		DryRun:      *dryRun,
	}
	if len(exclude) > 0 {
		opts.Exclude = exclude
	}
	if !*jsonOut {
		opts.Progress = func(line string) { fmt.Println(line) }
	}

	expr := strings.TrimSpace(*schedule)
	if expr == "" && *useSchedule {
		expr = strings.TrimSpace(rt.cfg.Mirror.Schedule)
		if expr == "" {
			return fmt.Errorf("mirror.schedule is not set in %s", rt.configPath)
		}
	}
	if expr != "" {
		err := mirror.Schedule(rt.ctx, expr, opts, func(res mirror.Result, err error) {
			if *jsonOut {
				_ = printJSON(mirrorReport(res, err))
				return
			}
			printMirrorResult(res, err)
		})
		if err != nil && rt.ctx.Err() != nil {
			return nil
		}
		return err
	}

	res, err := mirror.Run(rt.ctx, opts)
	if *jsonOut {
		if jerr := printJSON(mirrorReport(res, err)); jerr != nil {
			return jerr
		}
		return err
	}
	printMirrorResult(res, err)
	return err
}

type mirrorReportJSON struct {
	mirror.Result
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func mirrorReport(res mirror.Result, err error) mirrorReportJSON {
	out := mirrorReportJSON{Result: res, OK: err == nil}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

func printMirrorResult(res mirror.Result, err error) {
	status := "ok"
	if err != nil {
		status = "fail"
	}
	fmt.Printf("mirror: %s (exit %d)\n", status, res.ExitCode)
	if len(res.Command) > 0 {
		fmt.Println(kv("command", strings.Join(res.Command, " ")))
	}
}
