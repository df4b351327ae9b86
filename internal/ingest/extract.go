package ingest

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Extract unpacks every file of archive into dir, then removes archive.
// Names are returned in archive order, directories excluded.
func Extract(archive, dir string) ([]string, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", archive)
	}

	root := filepath.Clean(dir)
	var names []string
	for _, f := range r.File {
		target := filepath.Join(root, f.Name)
		if !within(root, target) {
			r.Close()
			return nil, errors.Errorf("archive entry %q escapes %s", f.Name, dir)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				r.Close()
				return nil, errors.Wrapf(err, "creating %s", target)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			r.Close()
			return nil, err
		}
		names = append(names, f.Name)
	}

	if err := r.Close(); err != nil {
		return nil, errors.Wrapf(err, "closing %s", archive)
	}
	if err := os.Remove(archive); err != nil {
		return nil, errors.Wrapf(err, "removing %s", archive)
	}
	return names, nil
}

// within reports whether target stays inside root once both are cleaned.
func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(target))
	}
	src, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "opening entry %s", f.Name)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "creating %s", target)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return errors.Wrapf(err, "extracting %s", f.Name)
	}
	return errors.Wrapf(dst.Close(), "extracting %s", f.Name)
}
