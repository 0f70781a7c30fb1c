// Package dictfile makes sure the frequency dictionary exists on disk,
// downloading it when absent.
package dictfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"

	"gramfix/internal/platform/logger"
)

const (
	// DefaultURL is the English unigram list the corrector is tuned for.
	DefaultURL = "https://raw.githubusercontent.com/mammothb/symspellpy/master/symspellpy/frequency_dictionary_en_82_765.txt"
	// DefaultBigramURL is the matching bigram list, fetched only when a
	// bigram path is configured.
	DefaultBigramURL = "https://raw.githubusercontent.com/mammothb/symspellpy/master/symspellpy/frequency_bigramdictionary_en_243_342.txt"
)

// ErrEmptyDownload is returned when the server answers with an empty body.
var ErrEmptyDownload = errors.New("dictfile: downloaded file is empty")

// Downloader fetches dictionary files with retries.
type Downloader struct {
	Client   *http.Client
	Attempts uint
	Delay    time.Duration
}

// NewDownloader returns a Downloader with three attempts and exponential backoff from one second.
func NewDownloader() *Downloader {
	return &Downloader{
		Client:   &http.Client{Timeout: 2 * time.Minute},
		Attempts: 3,
		Delay:    time.Second,
	}
}

// Ensure downloads url to path unless path already exists and reports
// whether a download happened.
func (d *Downloader) Ensure(ctx context.Context, path, url string) (bool, error) {
	if st, err := os.Stat(path); err == nil {
		if st.IsDir() {
			return false, fmt.Errorf("dictfile: %s is a directory", path)
		}
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("dictfile: stat %s: %w", path, err)
	}
	if url == "" {
		return false, fmt.Errorf("dictfile: %s is missing and no download url is configured", path)
	}
	return true, d.Fetch(ctx, path, url)
}

// Fetch downloads url to path, replacing any existing file. The content is
// written to a temporary file in the same directory and renamed into place,
// so readers never observe a partial dictionary.
func (d *Downloader) Fetch(ctx context.Context, path, url string) error {
	log := logger.Named("dictfile")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dictfile: create dir: %w", err)
	}

	start := time.Now()
	var size int64
	err := retry.Do(
		func() error {
			n, err := d.download(ctx, path, url)
			size = n
			return err
		},
		retry.Context(ctx),
		retry.Attempts(d.Attempts),
		retry.Delay(d.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("url", url).Msg("dictionary download failed, retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("dictfile: download %s: %w", url, err)
	}

	log.Info().Str("url", url).Str("path", path).Int64("bytes", size).Dur("elapsed", time.Since(start)).Msg("dictionary downloaded")
	return nil
}

func (d *Downloader) download(ctx context.Context, path, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, retry.Unrecoverable(err)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status: %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return 0, retry.Unrecoverable(err)
		}
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dict-*.tmp")
	if err != nil {
		return 0, retry.Unrecoverable(err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrEmptyDownload
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, retry.Unrecoverable(err)
	}
	return n, nil
}
