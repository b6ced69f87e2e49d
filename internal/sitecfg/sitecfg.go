// Package sitecfg loads the studio-wide YAML configuration: network
// locations, mirror exclusions, archiver command, packet-size presets and
// notification targets.
package sitecfg

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"smedge-submit/internal/fsstore"
	"smedge-submit/internal/jobfile"
)

const DefaultPath = "config/smedge-submit.yaml"

const (
	MirrorToolRobocopy = "robocopy"
	MirrorToolRsync    = "rsync"

	BackendNode = "node"
	BackendFile = "file"

	ReplaceDelete = "delete"
	ReplaceTrash  = "trash"
)

// Config is the top-level site configuration.
type Config struct {
	Paths       PathsConfig    `yaml:"paths"`
	Mirror      MirrorConfig   `yaml:"mirror"`
	Archiver    ArchiverConfig `yaml:"archiver"`
	Engine      EngineConfig   `yaml:"engine"`
	PacketSizes map[string]int `yaml:"packet_sizes"`
	Settings    SettingsConfig `yaml:"settings"`
	Notify      NotifyConfig   `yaml:"notify"`
	History     HistoryConfig  `yaml:"history"`
	Log         LogConfig      `yaml:"log"`
}

type PathsConfig struct {
	// JobOutput receives the generated job files.
	JobOutput string `yaml:"job_output"`
	// PackageOutput receives packaged scene trees.
	PackageOutput  string `yaml:"package_output"`
	NetworkProject string `yaml:"network_project"`
	NetworkRender  string `yaml:"network_render"`
}

type MirrorConfig struct {
	Tool   string `yaml:"tool"`
	Binary string `yaml:"binary,omitempty"`
	// Source overrides the project located from the scene.
	Source    string   `yaml:"source,omitempty"`
	Exclude   []string `yaml:"exclude"`
	ExtraArgs string   `yaml:"extra_args,omitempty"`
	Schedule  string   `yaml:"schedule,omitempty"`
	Enabled   *bool    `yaml:"enabled,omitempty"`
}

type ArchiverConfig struct {
	// Command is split shell-style; {scene} and {project} are substituted.
	Command     string `yaml:"command"`
	ReplaceMode string `yaml:"replace_mode"`
}

type EngineConfig struct {
	ExtraArgs string `yaml:"extra_args,omitempty"`
}

type SettingsConfig struct {
	Backend string `yaml:"backend"`
}

type NotifyConfig struct {
	Sound          string `yaml:"sound,omitempty"`
	SlackWebhook   string `yaml:"slack_webhook,omitempty"`
	DiscordWebhook string `yaml:"discord_webhook,omitempty"`
}

type HistoryConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Mirror: MirrorConfig{
			Tool:    MirrorToolRobocopy,
			Exclude: []string{"autosave", "incrementalSave", "images"},
		},
		Archiver: ArchiverConfig{
			Command:     "mayabatch -file {scene} -proj {project} -command ArchiveScene",
			ReplaceMode: ReplaceDelete,
		},
		PacketSizes: map[string]int{},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML config at path. A missing file yields Default().
func Load(path string) (*Config, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		p = DefaultPath
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", p, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return fsstore.WriteBytes(path, data)
}

// MirrorEnabled reports whether submissions sync the project first.
func (c *Config) MirrorEnabled() bool {
	if c.Mirror.Enabled == nil {
		return true
	}
	return *c.Mirror.Enabled
}

// PacketSize returns the preset for a layer name, or 1.
func (c *Config) PacketSize(layer string) int {
	return jobfile.PacketSizes(c.PacketSizes).For(layer)
}

func (c *Config) applyDefaults() {
	if c.Mirror.Tool == "" {
		c.Mirror.Tool = MirrorToolRobocopy
	}
	c.Mirror.Tool = strings.ToLower(strings.TrimSpace(c.Mirror.Tool))
	if c.Archiver.ReplaceMode == "" {
		c.Archiver.ReplaceMode = ReplaceDelete
	}
	if c.Settings.Backend == "" {
		c.Settings.Backend = BackendNode
	}
	if c.History.Path == "" {
		c.History.Path = "~/.smedge-submit/history.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.PacketSizes == nil {
		c.PacketSizes = map[string]int{}
	}
}

func (c *Config) expandPaths() error {
	targets := []*string{
		&c.Paths.JobOutput,
		&c.Paths.PackageOutput,
		&c.Paths.NetworkProject,
		&c.Paths.NetworkRender,
		&c.Mirror.Source,
		&c.Notify.Sound,
		&c.History.Path,
	}
	for _, p := range targets {
		v, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

func (c *Config) validate() error {
	var errs []string
	switch c.Mirror.Tool {
	case MirrorToolRobocopy, MirrorToolRsync:
	default:
		errs = append(errs, fmt.Sprintf("mirror.tool must be %s or %s", MirrorToolRobocopy, MirrorToolRsync))
	}
	switch c.Settings.Backend {
	case BackendNode, BackendFile:
	default:
		errs = append(errs, fmt.Sprintf("settings.backend must be %s or %s", BackendNode, BackendFile))
	}
	switch c.Archiver.ReplaceMode {
	case ReplaceDelete, ReplaceTrash:
	default:
		errs = append(errs, fmt.Sprintf("archiver.replace_mode must be %s or %s", ReplaceDelete, ReplaceTrash))
	}
	for name, size := range c.PacketSizes {
		if size < 1 {
			errs = append(errs, fmt.Sprintf("packet_sizes.%s must be >= 1", name))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, "log.format must be text or json")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	v := strings.TrimSpace(p)
	if v == "" {
		return "", nil
	}
	out, err := homedir.Expand(v)
	if err != nil {
		return "", fmt.Errorf("config: expand path %s: %w", v, err)
	}
	return out, nil
}
