package cli

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"smedge-submit/internal/form"
	"smedge-submit/internal/model"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	config, logLevel := commonFlags(fs)
	scenePath := fs.String("scene", "", "scene file")
	settingsFile := fs.String("settings-file", "", "settings file for the file backend")
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
	cfg, err := store.Load(rt.ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"scene":    scene.ScenePath(),
			"store":    store.Path(),
			"settings": cfg,
		})
	}

	fmt.Println(kv("scene", scene.ScenePath()))
	fmt.Println(kv("store", store.Path()))
	printSubmissionConfig(cfg)
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	config, logLevel := commonFlags(fs)
	scenePath := fs.String("scene", "", "scene file")
	settingsFile := fs.String("settings-file", "", "settings file for the file backend")
	var enable, disable, packets stringList
	fs.Var(&enable, "enable", "enable a render layer (repeatable)")
	fs.Var(&disable, "disable", "disable a render layer (repeatable)")
	fs.Var(&packets, "packet", "set a layer packet size as <layer>=<n> (repeatable)")
	generateTx := fs.String("generate-tx", "", "y|n (empty keeps current)")
	forceTx := fs.String("force-tx", "", "y|n (empty keeps current)")
	frames := fs.String("frames", "", "frame range as <start>-<end> (empty keeps current)")
	networkProject := fs.String("network-project", "", "network project directory")
	networkRender := fs.String("network-render", "", "network render output directory")
	exclude := fs.String("exclude", "", "comma-separated directory names skipped when mirroring")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

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
	cfg, err := store.Load(rt.ctx)
	if err != nil {
		return err
	}

	for _, name := range enable {
		if err := setLayerEnabled(&cfg, name, true); err != nil {
			return err
		}
	}
	for _, name := range disable {
		if err := setLayerEnabled(&cfg, name, false); err != nil {
			return err
		}
	}
	for _, raw := range packets {
		if err := setLayerPacket(&cfg, raw); err != nil {
			return err
		}
	}
	if v := strings.TrimSpace(*generateTx); v != "" {
		b, ok := form.ParseBool(v)
		if !ok {
			return fmt.Errorf("--generate-tx must be y or n, got %q", v)
		}
		cfg.GenerateTx = b
	}
	if v := strings.TrimSpace(*forceTx); v != "" {
		b, ok := form.ParseBool(v)
		if !ok {
			return fmt.Errorf("--force-tx must be y or n, got %q", v)
		}
		cfg.ForceTx = b
	}
	if v := strings.TrimSpace(*frames); v != "" {
		start, end, err := parseFrameRange(v)
		if err != nil {
			return err
		}
		cfg.StartFrame, cfg.EndFrame = start, end
	}
	if set["network-project"] {
		cfg.NetworkProjectLocation = strings.TrimSpace(*networkProject)
	}
	if set["network-render"] {
		cfg.NetworkRenderLocation = strings.TrimSpace(*networkRender)
	}
	if set["exclude"] {
		cfg.ExcludeDirectories = model.NormalizeDirectories(strings.Split(*exclude, ","))
	}

	if err := store.Save(rt.ctx, cfg); err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"scene":    scene.ScenePath(),
			"store":    store.Path(),
			"settings": cfg,
		})
	}
	fmt.Println("settings updated")
	printSubmissionConfig(cfg)
	return nil
}

func setLayerEnabled(cfg *model.SubmissionConfig, name string, enabled bool) error {
	i, err := layerIndex(*cfg, name)
	if err != nil {
		return err
	}
	cfg.RenderLayers[i].Enabled = enabled
	return nil
}

func setLayerPacket(cfg *model.SubmissionConfig, raw string) error {
	name, value, ok := strings.Cut(raw, "=")
	if !ok {
		return fmt.Errorf("--packet expects <layer>=<n>, got %q", raw)
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return fmt.Errorf("packet size for %s must be an integer >= 1", strings.TrimSpace(name))
	}
	i, err := layerIndex(*cfg, name)
	if err != nil {
		return err
	}
	cfg.RenderLayers[i].PacketSize = n
	return nil
}

func layerIndex(cfg model.SubmissionConfig, name string) (int, error) {
	name = strings.TrimSpace(name)
	for i, l := range cfg.RenderLayers {
		if l.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("render layer %q: %w", name, model.ErrNotFound)
}

// parseFrameRange splits on the first '-' after a leading sign, so pre-roll
// ranges like -10-20 parse.
func parseFrameRange(raw string) (int, int, error) {
	raw = strings.TrimSpace(raw)
	sep := -1
	if len(raw) > 1 {
		if i := strings.Index(raw[1:], "-"); i >= 0 {
			sep = i + 1
		}
	}
	if sep < 0 {
		return 0, 0, errors.New("--frames expects <start>-<end>")
	}
	a, b := raw[:sep], raw[sep+1:]
	start, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start frame %q", a)
	}
	end, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end frame %q", b)
	}
	return start, end, nil
}

func printSubmissionConfig(cfg model.SubmissionConfig) {
	fmt.Println(kv("frames", fmt.Sprintf("%d-%d", cfg.StartFrame, cfg.EndFrame)))
	fmt.Println(kv("generate_tx", yesNo(cfg.GenerateTx)))
	fmt.Println(kv("force_tx", yesNo(cfg.ForceTx)))
	fmt.Println(kv("network_project", defaultIfEmpty(cfg.NetworkProjectLocation, "(local project)")))
	fmt.Println(kv("network_render", defaultIfEmpty(cfg.NetworkRenderLocation, "(<network project>/RENDER_OUT)")))
	if len(cfg.ExcludeDirectories) == 0 {
		fmt.Println("exclude: (none)")
	} else {
		fmt.Println(kv("exclude", strings.Join(cfg.ExcludeDirectories, ", ")))
	}
	if len(cfg.RenderLayers) == 0 {
		fmt.Println("layers: (none)")
		return
	}
	fmt.Println("layers:")
	for _, l := range cfg.RenderLayers {
		state := "enabled"
		if !l.Enabled {
			state = "disabled"
		}
		fmt.Printf("  %s: %s (packet %d)\n", l.Name, state, l.PacketSize)
	}
}

func printSettingsUsage() {
	fmt.Println("smedge-submit settings: show/update stored submission settings")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  smedge-submit settings show --scene <scene> [--json]")
	fmt.Println("  smedge-submit settings set --scene <scene> [--enable <layer>] [--disable <layer>] [--packet <layer>=<n>]")
	fmt.Println("                             [--generate-tx y|n] [--force-tx y|n] [--frames <start>-<end>]")
	fmt.Println("                             [--network-project <dir>] [--network-render <dir>] [--exclude a,b]")
}
