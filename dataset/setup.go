package dataset

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/jamestannner/NeuralNourishment/store"
)

// SetupOptions tune Setup. The zero value gives spec behavior: fetch,
// extract, delete the archive.
type SetupOptions struct {
	// KeepArchive leaves the archive in place after extraction.
	KeepArchive bool
}

// Setup runs the full acquisition sequence against the data directory:
// download the archive, extract it, remove the archive, verify the CSV.
// It is idempotent: when the extracted dataset already verifies, nothing is
// fetched.
func (f *Fetcher) Setup(ctx context.Context, m Manifest, opts SetupOptions) error {
	if err := Verify(f.store, m); err == nil {
		f.log.Info().Str("csv", filepath.Join(m.Dir, m.CSV)).Msg("Dataset already present, nothing to do")
		return nil
	}

	archivePath, err := f.Fetch(ctx, m)
	if err != nil {
		return err
	}

	destDir := f.store.Path(m.Dir)
	f.log.Info().Str("dir", destDir).Msg("Extracting archive")

	if err := Extract(archivePath, destDir); err != nil {
		return err
	}

	if !opts.KeepArchive {
		if err := os.Remove(archivePath); err != nil {
			return errors.Wrap(err, "failed to remove archive")
		}
		f.log.Info().Str("archive", m.Archive).Msg("Archive removed")
	}

	if err := Verify(f.store, m); err != nil {
		return err
	}

	f.log.Info().Str("csv", filepath.Join(m.Dir, m.CSV)).Msg("Dataset ready")

	return nil
}

// Verify checks that the extracted dataset CSV exists and is non-empty.
func Verify(fs *store.FileStore, m Manifest) error {
	path := fs.Path(filepath.Join(m.Dir, m.CSV))

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.Errorf("dataset CSV missing: %s", path)
	}
	if err != nil {
		return errors.Wrap(err, "failed to stat dataset CSV")
	}

	if info.Size() == 0 {
		return errors.Errorf("dataset CSV is empty: %s", path)
	}

	return nil
}
