package dataset

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Extract unpacks the zip archive at archivePath into destDir. Entries that
// would escape destDir are rejected (zip-slip).
func Extract(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to open archive")
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to create destination")
	}

	for _, entry := range r.File {
		if err := extractEntry(entry, destDir); err != nil {
			return errors.Wrapf(err, "failed to extract %s", entry.Name)
		}
	}

	return nil
}

func extractEntry(entry *zip.File, destDir string) error {
	path := filepath.Join(destDir, filepath.FromSlash(entry.Name))

	// reject entries escaping the destination
	rel, err := filepath.Rel(destDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.Errorf("archive entry escapes destination: %s", entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(path, os.ModePerm)
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}

	_, err = io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}

	return err
}
