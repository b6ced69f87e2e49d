package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"smedge-submit/internal/history"
	"smedge-submit/internal/host"
	"smedge-submit/internal/jobfile"
	"smedge-submit/internal/logx"
	"smedge-submit/internal/mirror"
	"smedge-submit/internal/notify"
	"smedge-submit/internal/settings"
	"smedge-submit/internal/sitecfg"
)

// runtimeEnv is what every scene command needs: the site config and a
// logger-carrying context cancelled on interrupt.
type runtimeEnv struct {
	configPath string
	cfg        *sitecfg.Config
	logger     *slog.Logger
	ctx        context.Context
	stop       context.CancelFunc
}

// commonFlags registers --config and --log-level on fs.
func commonFlags(fs *flag.FlagSet) (config, logLevel *string) {
	config = fs.String("config", sitecfg.DefaultPath, "site config path")
	logLevel = fs.String("log-level", "", "log level override: debug|info|warn|error")
	return config, logLevel
}

func loadRuntime(configPath, logLevel string) (*runtimeEnv, error) {
	path := strings.TrimSpace(configPath)
	cfg, err := sitecfg.Load(path)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if strings.TrimSpace(logLevel) != "" {
		level = logLevel
	}
	logger := logx.New(level, cfg.Log.Format, os.Stderr)
	ctx, stop := signal.NotifyContext(logx.WithLogger(context.Background(), logger), os.Interrupt)
	return &runtimeEnv{
		configPath: path,
		cfg:        cfg,
		logger:     logger,
		ctx:        ctx,
		stop:       stop,
	}, nil
}

// alertWait bounds how long exit waits for a completion sound to finish.
const alertWait = 5 * time.Second

func (r *runtimeEnv) close() {
	if r == nil {
		return
	}
	if !notify.Wait(alertWait) {
		r.logger.Debug("alert sound still playing at exit")
	}
	if r.stop != nil {
		r.stop()
	}
}

func (r *runtimeEnv) settingsDefaults() settings.Defaults {
	return settings.Defaults{
		NetworkProjectLocation: r.cfg.Paths.NetworkProject,
		NetworkRenderLocation:  r.cfg.Paths.NetworkRender,
		ExcludeDirectories:     r.cfg.Mirror.Exclude,
		PacketSizes:            jobfile.PacketSizes(r.cfg.PacketSizes),
	}
}

// settingsFilePath is the FileStore location used when --settings-file is
// not given.
func settingsFilePath(scenePath string) string {
	return scenePath + ".smedge.yaml"
}

// openScene resolves the scene path and opens its host document.
func openScene(scenePath string) (*host.DocumentScene, error) {
	raw := strings.TrimSpace(scenePath)
	if raw == "" {
		return nil, errors.New("--scene is required")
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return nil, fmt.Errorf("resolve scene path: %w", err)
	}
	return host.OpenScene(abs)
}

// openStore builds the settings store selected by settings.backend.
func (r *runtimeEnv) openStore(scene *host.DocumentScene, settingsFile string) settings.Store {
	var store settings.Store
	switch r.cfg.Settings.Backend {
	case sitecfg.BackendFile:
		file := strings.TrimSpace(settingsFile)
		if file == "" {
			file = settingsFilePath(scene.ScenePath())
		}
		store = settings.NewFileStore(file, scene, r.settingsDefaults())
	default:
		store = settings.NewNodeStore(scene.ScenePath(), r.settingsDefaults())
	}
	r.logger.Debug("settings store", "backend", r.cfg.Settings.Backend, "path", store.Path())
	return store
}

// openLedger returns nil when history is disabled or cannot be opened; a
// broken ledger never blocks a submission.
func (r *runtimeEnv) openLedger() *history.Ledger {
	if r.cfg.History.Disabled {
		return nil
	}
	ledger, err := history.Open(r.cfg.History.Path)
	if err != nil {
		r.logger.Warn("history ledger unavailable", "path", r.cfg.History.Path, "err", err)
		return nil
	}
	return ledger
}

func (r *runtimeEnv) notifier() notify.Notifier {
	multi, err := notify.FromConfig(notify.Config{
		SoundPath:      r.cfg.Notify.Sound,
		SlackWebhook:   r.cfg.Notify.SlackWebhook,
		DiscordWebhook: r.cfg.Notify.DiscordWebhook,
	})
	if err != nil {
		r.logger.Warn("notifications disabled", "err", err)
		return nil
	}
	if len(multi) == 0 {
		return nil
	}
	return multi
}

// mirrorOptions returns nil when mirroring is switched off in the site
// config. Destination and exclusions are filled in per submission.
func (r *runtimeEnv) mirrorOptions(dryRun bool) *mirror.Options {
	if !r.cfg.MirrorEnabled() {
		return nil
	}
	return &mirror.Options{
		Tool:      r.cfg.Mirror.Tool,
		Binary:    r.cfg.Mirror.Binary,
		Source:    r.cfg.Mirror.Source,
		ExtraArgs: r.cfg.Mirror.ExtraArgs,
		DryRun:    dryRun,
		LogWriter: os.Stderr,
	}
}

func (r *runtimeEnv) engineArgs() ([]string, error) {
	args, err := shellwords.Parse(r.cfg.Engine.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("parse engine extra args: %w", err)
	}
	return args, nil
}

func (r *runtimeEnv) archiver() host.ExternalArchiver {
	return host.ExternalArchiver{
		Template:  r.cfg.Archiver.Command,
		LogWriter: os.Stderr,
	}
}
