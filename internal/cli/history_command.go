package cli

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"smedge-submit/internal/history"
)

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	config, logLevel := commonFlags(fs)
	limit := fs.Int("limit", 20, "maximum rows to show")
	scenePath := fs.String("scene", "", "only show submissions of this scene")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 1 {
		return errors.New("--limit must be >= 1")
	}

	rt, err := loadRuntime(*config, *logLevel)
	if err != nil {
		return err
	}
	defer rt.close()
	if rt.cfg.History.Disabled {
		return fmt.Errorf("history is disabled in %s", rt.configPath)
	}

	ledger, err := history.Open(rt.cfg.History.Path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	scene := strings.TrimSpace(*scenePath)
	if scene != "" {
		if scene, err = filepath.Abs(scene); err != nil {
			return fmt.Errorf("resolve scene path: %w", err)
		}
	}
	rows, err := ledger.Recent(rt.ctx, *limit, scene)
	if err != nil {
		return err
	}
	if *jsonOut {
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			out = append(out, map[string]any{
				"submission": r,
				"layers":     r.LayerList(),
				"job_files":  r.JobFileList(),
			})
		}
		return printJSON(out)
	}

	if len(rows) == 0 {
		fmt.Println("no submissions recorded")
		return nil
	}
	for _, r := range rows {
		line := fmt.Sprintf("%s  %-9s  %s", r.CreatedAt.Local().Format(time.DateTime), r.Status, defaultIfEmpty(r.JobName, filepath.Base(r.ScenePath)))
		if layers := r.LayerList(); len(layers) > 0 {
			line += "  [" + strings.Join(layers, ", ") + "]"
		}
		fmt.Println(line)
		if r.Error != "" {
			fmt.Println("  error: " + truncateRunes(r.Error, 200))
		}
	}
	return nil
}
