package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"smedge-submit/internal/fsstore"
	"smedge-submit/internal/packager"
)

func runPackage(args []string) error {
	fs := flag.NewFlagSet("package", flag.ContinueOnError)
	config, logLevel := commonFlags(fs)
	scenePath := fs.String("scene", "", "scene file to package")
	output := fs.String("output", "", "output root (default: paths.package_output)")
	replace := fs.Bool("replace", false, "replace an existing output directory")
	replaceMode := fs.String("replace-mode", "", "how to replace: delete|trash (default: archiver.replace_mode)")
	generateTx := fs.Bool("generate-tx", false, "let the renderer build missing .tx textures")
	forceTx := fs.Bool("force-tx", false, "rebuild .tx textures even when up to date")
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
	extra, err := rt.engineArgs()
	if err != nil {
		return err
	}
	outputRoot := defaultIfEmpty(strings.TrimSpace(*output), rt.cfg.Paths.PackageOutput)
	if outputRoot == "" {
		return fmt.Errorf("--output is required when paths.package_output is not set in %s", rt.configPath)
	}

	if !*replace && stdinIsTTY() {
		dir := packager.OutputDir(outputRoot, scene.ScenePath())
		exists, err := fsstore.Exists(dir)
		if err != nil {
			return err
		}
		if exists {
			ok, err := promptConfirm(fmt.Sprintf("output %s already exists, replace it? [y/N] ", dir))
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("packaging cancelled")
			}
			*replace = true
		}
	}

	res, err := packager.Package(rt.ctx, packager.Options{
		ScenePath:   scene.ScenePath(),
		OutputRoot:  outputRoot,
		Replace:     *replace,
		ReplaceMode: defaultIfEmpty(strings.TrimSpace(*replaceMode), rt.cfg.Archiver.ReplaceMode),
		Archiver:    rt.archiver(),
		Scene:       scene,
		GenerateTx:  *generateTx,
		ForceTx:     *forceTx,
		ExtraArgs:   extra,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	fmt.Println("scene packaged")
	fmt.Println(kv("output_dir", res.OutputDir))
	fmt.Println(kv("replaced_output", fmt.Sprintf("%t", res.ReplacedOutput)))
	fmt.Println(kv("project", res.PackagedProject))
	fmt.Println(kv("scene", res.PackagedScene))
	fmt.Println(kv("frames", fmt.Sprintf("%d-%d", res.Job.StartFrame, res.Job.EndFrame)))
	fmt.Println(kv("job_file", res.JobFile))
	return nil
}
