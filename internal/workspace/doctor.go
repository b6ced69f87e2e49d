// Package workspace bootstraps the site config and runs preflight checks
// for the external tools and output locations a submission needs.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"

	"smedge-submit/internal/fsstore"
	"smedge-submit/internal/sitecfg"
	"smedge-submit/internal/toolexec"
)

type DoctorOptions struct {
	ConfigPath string
}

type DoctorResult struct {
	OK     bool          `json:"ok"`
	Checks []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type InitOptions struct {
	ConfigPath string
}

type InitResult struct {
	ConfigPath    string       `json:"config_path"`
	CreatedConfig bool         `json:"created_config"`
	DoctorResult  DoctorResult `json:"doctor"`
}

func Doctor(opts DoctorOptions) (DoctorResult, error) {
	configPath := normalizeConfigPath(opts.ConfigPath)
	checks := make([]DoctorCheck, 0, 6)

	cfg, err := sitecfg.Load(configPath)
	if err != nil {
		checks = append(checks, DoctorCheck{Name: "config:site", OK: false, Message: err.Error()})
		return DoctorResult{OK: false, Checks: checks}, nil
	}
	checks = append(checks, DoctorCheck{Name: "config:site", OK: true, Message: "loaded " + configPath})

	bins := []string{defaultIfEmpty(cfg.Mirror.Binary, cfg.Mirror.Tool)}
	if bin := archiverBinary(cfg.Archiver.Command); bin != "" {
		bins = append(bins, bin)
	}
	for _, dep := range toolexec.DependencyStatus(bins...) {
		checks = append(checks, DoctorCheck{
			Name:    "dependency:" + dep.Name,
			OK:      dep.Found,
			Message: dep.Message(),
		})
	}

	dirs := []struct {
		name string
		path string
	}{
		{"directory:job_output", cfg.Paths.JobOutput},
		{"directory:package_output", cfg.Paths.PackageOutput},
		{"directory:history", historyDir(cfg)},
	}
	for _, d := range dirs {
		if strings.TrimSpace(d.path) == "" {
			checks = append(checks, DoctorCheck{Name: d.name, OK: true, Message: "not configured"})
			continue
		}
		ok, msg := ensureWritableDir(d.path)
		checks = append(checks, DoctorCheck{Name: d.name, OK: ok, Message: msg})
	}

	ok := true
	for _, c := range checks {
		if !c.OK {
			ok = false
			break
		}
	}
	return DoctorResult{OK: ok, Checks: checks}, nil
}

// Init writes a default site config when none exists, then runs Doctor.
func Init(opts InitOptions) (InitResult, error) {
	configPath := normalizeConfigPath(opts.ConfigPath)

	exists, err := fsstore.Exists(configPath)
	if err != nil {
		return InitResult{}, err
	}
	if !exists {
		if err := sitecfg.Save(configPath, sitecfg.Default()); err != nil {
			return InitResult{}, err
		}
	}

	doc, err := Doctor(DoctorOptions{ConfigPath: configPath})
	if err != nil {
		return InitResult{}, err
	}
	return InitResult{
		ConfigPath:    configPath,
		CreatedConfig: !exists,
		DoctorResult:  doc,
	}, nil
}

func normalizeConfigPath(p string) string {
	return defaultIfEmpty(strings.TrimSpace(p), sitecfg.DefaultPath)
}

func archiverBinary(template string) string {
	words, err := shellwords.Parse(template)
	if err != nil || len(words) == 0 {
		return ""
	}
	return words[0]
}

func historyDir(cfg *sitecfg.Config) string {
	if cfg.History.Disabled || strings.TrimSpace(cfg.History.Path) == "" || cfg.History.Path == ":memory:" {
		return ""
	}
	return filepath.Dir(cfg.History.Path)
}

func ensureWritableDir(path string) (bool, string) {
	if err := fsstore.Mkdir(path); err != nil {
		return false, err.Error()
	}
	f, err := os.CreateTemp(path, "smedge-submit-check-*.tmp")
	if err != nil {
		return false, err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, "writable"
}

func defaultIfEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
