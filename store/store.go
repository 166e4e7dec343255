package store

import (
	"io"
	"os"
	"path/filepath"
)

// LocalStore is the interface over the local data directory that holds the
// dataset, tokenizer vocabulary, training shards and scraped pages.
type LocalStore interface {
	// List returns a list of all files in the store.
	List() ([]string, error)

	Contains(name string) (bool, error)

	Store(name string, content io.Reader) error

	// Get returns a reader for the file with the given name. The caller is responsible for closing the reader!
	Get(name string) (io.ReadCloser, error)

	// Remove deletes the file with the given name.
	Remove(name string) error
}

type FileStore struct {
	dataDir string
}

// NewFileStore creates a store rooted at dataDir. Nested names like
// "RecipeNLG/RecipeNLG_dataset.csv" are resolved relative to the root.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		dataDir: dataDir,
	}
}

// Root returns the store's root directory.
func (fs *FileStore) Root() string {
	return fs.dataDir
}

// Path returns the absolute path of a name inside the store.
func (fs *FileStore) Path(name string) string {
	return filepath.Join(fs.dataDir, name)
}

func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

func (fs *FileStore) Contains(name string) (bool, error) {
	_, err := os.Stat(fs.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (fs *FileStore) Store(name string, content io.Reader) error {
	filePath := fs.Path(name)

	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, content)
	return err
}

func (fs *FileStore) Get(name string) (io.ReadCloser, error) {
	return os.Open(fs.Path(name))
}

func (fs *FileStore) Remove(name string) error {
	return os.Remove(fs.Path(name))
}
