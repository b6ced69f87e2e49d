package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"smedge-submit/internal/host"
	"smedge-submit/internal/settings"
	"smedge-submit/internal/submit"
)

func runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	config, logLevel := commonFlags(fs)
	scenePath := fs.String("scene", "", "scene file to submit")
	output := fs.String("output", "", "job file directory (default: paths.job_output)")
	settingsFile := fs.String("settings-file", "", "settings file for the file backend (default: <scene>.smedge.yaml)")
	noMirror := fs.Bool("no-mirror", false, "skip mirroring the project to the network")
	dryRun := fs.Bool("dry-run-mirror", false, "list what the mirror would copy without copying")
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

	scene, err := openScene(*scenePath)
	if err != nil {
		return err
	}
	store := rt.openStore(scene, *settingsFile)
	outputDir := defaultIfEmpty(strings.TrimSpace(*output), rt.cfg.Paths.JobOutput)

	run, cleanup, err := rt.submitter(scene, store, outputDir, *noMirror, *dryRun)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := run(rt.ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	printSubmitResult(res)
	return nil
}

// submitter binds one scene to a ready-to-run submission so the form can
// trigger the same path as the submit command.
func (r *runtimeEnv) submitter(scene host.Scene, store settings.Store, outputDir string, noMirror, dryRun bool) (func(context.Context) (submit.Result, error), func(), error) {
	if strings.TrimSpace(outputDir) == "" {
		return nil, nil, fmt.Errorf("--output is required when paths.job_output is not set in %s", r.configPath)
	}
	extra, err := r.engineArgs()
	if err != nil {
		return nil, nil, err
	}

	opts := submit.Options{
		Store:        store,
		Scene:        scene,
		JobOutputDir: outputDir,
		ExtraArgs:    extra,
		Notifier:     r.notifier(),
	}
	if !noMirror {
		opts.Mirror = r.mirrorOptions(dryRun)
	}
	cleanup := func() {}
	if ledger := r.openLedger(); ledger != nil {
		opts.Recorder = ledger
		cleanup = func() {
			if err := ledger.Close(); err != nil {
				r.logger.Warn("close history ledger", "err", err)
			}
		}
	}

	run := func(ctx context.Context) (submit.Result, error) {
		return submit.Run(ctx, opts)
	}
	return run, cleanup, nil
}

func printSubmitResult(res submit.Result) {
	fmt.Println("submission written")
	fmt.Println(kv("scene", res.ScenePath))
	fmt.Println(kv("project", res.ProjectDir))
	fmt.Println(kv("network_scene", res.NetworkScene))
	fmt.Println(kv("job_name", res.JobName))
	if res.Mirror != nil {
		status := fmt.Sprintf("exit %d", res.Mirror.ExitCode)
		if res.Mirror.DryRun {
			status += " (dry run)"
		}
		fmt.Println(kv("mirror", status))
	} else if res.MirrorSkipped {
		fmt.Println(kv("mirror", "skipped (no network project)"))
	} else {
		fmt.Println(kv("mirror", "skipped"))
	}
	if len(res.JobFiles) == 0 {
		fmt.Println("job_files: (none, no enabled layers)")
		return
	}
	fmt.Println("job_files:")
	for i, p := range res.JobFiles {
		fmt.Printf("  %d. %s\n", i+1, p)
	}
}
