package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"

	"smedge-submit/internal/fsstore"
	"smedge-submit/internal/model"
	"smedge-submit/internal/toolexec"
)

// ExternalArchiver runs a command template such as
// "mayabatch -file {scene} -proj {project} -command ArchiveScene".
type ExternalArchiver struct {
	Template  string
	LogWriter io.Writer
}

// ArchivePath is where the host leaves the archive for a scene.
func ArchivePath(scenePath string) string {
	return scenePath + ".zip"
}

// Command expands the template for one scene.
func (a ExternalArchiver) Command(scenePath, projectDir string) ([]string, error) {
	if strings.TrimSpace(a.Template) == "" {
		return nil, errors.New("archiver command is not configured")
	}
	words, err := shellwords.Parse(a.Template)
	if err != nil {
		return nil, fmt.Errorf("parse archiver command: %w", err)
	}
	if len(words) == 0 {
		return nil, errors.New("archiver command is empty")
	}
	replacer := strings.NewReplacer("{scene}", scenePath, "{project}", projectDir)
	for i, w := range words {
		words[i] = replacer.Replace(w)
	}
	return words, nil
}

func (a ExternalArchiver) Archive(ctx context.Context, scenePath, projectDir string) (string, error) {
	argv, err := a.Command(scenePath, projectDir)
	if err != nil {
		return "", err
	}
	res, err := toolexec.Run(ctx, toolexec.Command{
		Name:      argv[0],
		Args:      argv[1:],
		Dir:       filepath.Dir(scenePath),
		LogWriter: a.LogWriter,
	})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", res.Failure(argv[0], nil)
	}

	archive := ArchivePath(scenePath)
	ok, err := fsstore.Exists(archive)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", res.Failure(argv[0], fmt.Errorf("archive %s was not produced: %w", archive, model.ErrNotFound))
	}
	return archive, nil
}
