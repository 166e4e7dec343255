package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jamestannner/NeuralNourishment/log"
	"github.com/jamestannner/NeuralNourishment/store"
	"github.com/jamestannner/NeuralNourishment/util"
)

// TokenEnv holds an optional bearer token for authenticated dataset mirrors.
const TokenEnv = "DATASET_TOKEN"

const progressInterval = 10 * time.Second

// Fetcher downloads dataset archives into a local store.
type Fetcher struct {
	log zerolog.Logger

	client *http.Client
	store  *store.FileStore
}

func NewFetcher(fs *store.FileStore) *Fetcher {
	return &Fetcher{
		log:    log.NewLogger("dataset"),
		client: &http.Client{},
		store:  fs,
	}
}

// Fetch downloads the manifest's archive into the store and returns its path.
// An archive already on disk with a matching checksum (or matching size when
// no checksum is pinned) is reused without downloading.
func (f *Fetcher) Fetch(ctx context.Context, m Manifest) (string, error) {
	path := f.store.Path(m.Archive)

	if ok, err := f.satisfied(path, m); err != nil {
		return "", err
	} else if ok {
		f.log.Info().Str("archive", m.Archive).Msg("Archive already downloaded, skipping fetch")
		return path, nil
	}

	f.log.Info().Str("url", m.URL).Str("archive", m.Archive).Msg("Downloading dataset archive")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}

	if token := os.Getenv(TokenEnv); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to download archive")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status %s from %s", resp.Status, m.URL)
	}

	// Auth walls and mirrors serve HTML error pages with a 200.
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil && strings.HasPrefix(mediaType, "text/") {
			return "", errors.Errorf("unexpected content type %s from %s", mediaType, m.URL)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to create archive file")
	}

	hash := sha256.New()
	counter := &progressWriter{log: f.log, total: resp.ContentLength, last: time.Now()}

	_, err = io.Copy(io.MultiWriter(file, hash, counter), resp.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", errors.Wrap(err, "failed to write archive")
	}

	sum := hex.EncodeToString(hash.Sum(nil))
	if m.SHA256 != "" && sum != m.SHA256 {
		os.Remove(path)
		return "", errors.Errorf("archive checksum mismatch: got %s, want %s", sum, m.SHA256)
	}

	f.log.Info().Str("archive", m.Archive).Str("size", util.FormatBytes(counter.written)).Str("sha256", sum).Msg("Download complete")

	return path, nil
}

// satisfied reports whether the archive on disk already matches the manifest.
func (f *Fetcher) satisfied(path string, m Manifest) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to stat archive")
	}

	if m.SHA256 != "" {
		sum, err := checksumFile(path)
		if err != nil {
			return false, err
		}
		return sum == m.SHA256, nil
	}

	if m.Size > 0 {
		return info.Size() == m.Size, nil
	}

	return info.Size() > 0, nil
}

func checksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to open archive")
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", errors.Wrap(err, "failed to hash archive")
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// progressWriter logs download progress periodically. Multi-gigabyte
// downloads otherwise look stalled.
type progressWriter struct {
	log     zerolog.Logger
	total   int64
	written int64
	last    time.Time
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))

	if time.Since(p.last) >= progressInterval {
		p.last = time.Now()
		ev := p.log.Info().Str("downloaded", util.FormatBytes(p.written))
		if p.total > 0 {
			ev = ev.Str("total", util.FormatBytes(p.total))
		}
		ev.Msg("Downloading")
	}

	return len(b), nil
}
