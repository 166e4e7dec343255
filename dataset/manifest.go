// Package dataset automates acquisition of the RecipeNLG dataset artifact:
// download, checksum verification, extraction into the data directory, and
// cleanup of the archive. The artifact is immutable once extracted; nothing
// here ever rewrites the CSV.
package dataset

import (
	"os"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ManifestFile is the optional manifest name inside the data directory.
	ManifestFile = "dataset.yaml"

	// DefaultURL is the official RecipeNLG download. Kaggle mirrors work too,
	// with DATASET_TOKEN set for authenticated downloads.
	DefaultURL = "https://recipenlg.cs.put.poznan.pl/dataset"

	DefaultArchive = "dataset.zip"
	DefaultDir     = "RecipeNLG"
	DefaultCSV     = "RecipeNLG_dataset.csv"
)

// Manifest describes the dataset artifact: where it comes from, what the
// archive is called, and what must exist after extraction.
type Manifest struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
	URL     string `yaml:"url"`
	Archive string `yaml:"archive"`
	// Dir is the directory the archive extracts into, relative to the data dir.
	Dir string `yaml:"dir"`
	// CSV is the dataset file expected inside Dir after extraction.
	CSV string `yaml:"csv"`
	// SHA256 pins the archive checksum when set.
	SHA256 string `yaml:"sha256,omitempty"`
	// Size is the expected archive size in bytes when known.
	Size int64 `yaml:"size,omitempty"`
	// Records is the approximate record count, informational only.
	Records int `yaml:"records,omitempty"`
}

// Default returns the manifest for the published RecipeNLG dataset:
// a ~2.29GB zip holding ~2.23M recipe records.
func Default() Manifest {
	return Manifest{
		Name:    "RecipeNLG",
		Version: "1.0",
		URL:     DefaultURL,
		Archive: DefaultArchive,
		Dir:     DefaultDir,
		CSV:     DefaultCSV,
		Size:    2_460_000_000,
		Records: 2_231_142,
	}
}

// LoadManifest reads the manifest at path, falling back to Default when the
// file does not exist.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Manifest{}, errors.Wrap(err, "failed to read manifest")
	}

	m := Default()
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, errors.Wrap(err, "failed to parse manifest")
	}

	return m, nil
}

// Save writes the manifest atomically to path.
func (m Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "failed to marshal manifest")
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write manifest")
	}

	return nil
}
