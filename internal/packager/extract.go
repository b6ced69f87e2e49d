package packager

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/klauspost/compress/zip"

	"smedge-submit/internal/fsstore"
	"smedge-submit/internal/model"
)

// checkZip sniffs the archive header so a host that wrote something other
// than a zip fails before anything is moved.
func checkZip(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", path, err)
	}
	defer closeQuietly(f)

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("read archive %s: %w", path, err)
	}
	if !filetype.Is(head[:n], "zip") {
		return fmt.Errorf("archive %s is not a zip file: %w", path, model.ErrExternalTool)
	}
	return nil
}

func extractZip(archivePath, dst string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer closeQuietly(reader)

	if err := fsstore.Mkdir(dst); err != nil {
		return err
	}
	for _, f := range reader.File {
		target, err := entryPath(dst, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := fsstore.Mkdir(target); err != nil {
				return err
			}
			continue
		}
		if err := extractEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

// entryPath joins an entry name under dst and rejects names that escape it.
func entryPath(dst, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))
	target := filepath.Join(dst, clean)
	rel, err := filepath.Rel(dst, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("archive entry %q escapes the output directory", name)
	}
	return target, nil
}

func extractEntry(f *zip.File, target string) error {
	if err := fsstore.Mkdir(filepath.Dir(target)); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", f.Name, err)
	}
	defer closeQuietly(src)

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}
	return nil
}
