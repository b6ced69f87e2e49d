package mirror

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smedge-submit/internal/model"
)

func writeFakeMirror(t *testing.T, name, script string) string {
	t.Helper()
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/usr/bin/env bash\nset -euo pipefail\n"+script), 0o755); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	argsFile := filepath.Join(binDir, "args.txt")
	t.Setenv("FAKE_MIRROR_ARGS", argsFile)
	return argsFile
}

func TestCommandRobocopyMatchesProduction(t *testing.T) {
	argv, err := Command(Options{
		Source:      `D:\projects\shot020`,
		Destination: `\\farm\projects\shot020`,
		Exclude:     []string{"autosave", "incrementalSave", "images", "autosave"},
	})
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	want := `robocopy D:\projects\shot020 \\farm\projects\shot020 /XO /MIR /XD autosave /XD incrementalSave /XD images`
	if got := strings.Join(argv, " "); got != want {
		t.Fatalf("unexpected argv:\n got: %s\nwant: %s", got, want)
	}
}

func TestCommandRsyncWithDryRunAndExtraArgs(t *testing.T) {
	argv, err := Command(Options{
		Tool:        "rsync",
		Source:      "/projects/shot020",
		Destination: "/mnt/farm/shot020/",
		Exclude:     []string{"autosave"},
		ExtraArgs:   `--bwlimit=50000 --chmod="ug+rw"`,
		DryRun:      true,
	})
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	want := "rsync -a --delete --update --exclude autosave/ --dry-run --bwlimit=50000 --chmod=ug+rw /projects/shot020/ /mnt/farm/shot020/"
	if got := strings.Join(argv, " "); got != want {
		t.Fatalf("unexpected argv:\n got: %s\nwant: %s", got, want)
	}
}

func TestCommandValidation(t *testing.T) {
	if _, err := Command(Options{Destination: "/x"}); err == nil {
		t.Fatal("expected missing source error")
	}
	if _, err := Command(Options{Source: "/x", Destination: "/y", Tool: "xcopy"}); err == nil {
		t.Fatal("expected unsupported tool error")
	}
}

func TestSucceeded(t *testing.T) {
	for code := 0; code < 8; code++ {
		if !Succeeded("robocopy", code) {
			t.Fatalf("robocopy exit %d should succeed", code)
		}
	}
	if Succeeded("robocopy", 8) || Succeeded("robocopy", 16) {
		t.Fatal("robocopy exit >= 8 should fail")
	}
	if !Succeeded("rsync", 24) || Succeeded("rsync", 23) {
		t.Fatal("unexpected rsync exit interpretation")
	}
}

func TestRunPassesArgsToTool(t *testing.T) {
	argsFile := writeFakeMirror(t, "robocopy", "printf '%s\\n' \"$@\" > \"$FAKE_MIRROR_ARGS\"\nexit 3\n")

	res, err := Run(context.Background(), Options{Source: "/src", Destination: "/dst", Exclude: []string{"images"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code mismatch: %d", res.ExitCode)
	}
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got := strings.Fields(string(data)); strings.Join(got, " ") != "/src /dst /XO /MIR /XD images" {
		t.Fatalf("unexpected args: %v", got)
	}
}

func TestRunSurfacesFailure(t *testing.T) {
	writeFakeMirror(t, "robocopy", "echo 'ERROR 53 network path not found' >&2\nexit 16\n")

	_, err := Run(context.Background(), Options{Source: "/src", Destination: "/dst"})
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, model.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	var toolErr *model.ToolError
	if !errors.As(err, &toolErr) || toolErr.ExitCode != 16 {
		t.Fatalf("expected ToolError with exit 16, got %v", err)
	}
	if !strings.Contains(toolErr.Output, "network path not found") {
		t.Fatalf("expected output tail, got %q", toolErr.Output)
	}
}

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule("*/15 * * * *")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	from := time.Date(2026, 1, 1, 10, 2, 0, 0, time.UTC)
	if next := sched.Next(from); !next.Equal(time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next run: %s", next)
	}
	if _, err := ParseSchedule("not a cron expr"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestScheduleStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Schedule(ctx, "0 3 * * *", Options{Source: "/a", Destination: "/b"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
