package dictfile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastDownloader() *Downloader {
	return &Downloader{Client: &http.Client{Timeout: 5 * time.Second}, Attempts: 3, Delay: time.Millisecond}
}

func TestEnsure_DownloadsWhenMissing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("the 23135851162\nof 13151942776\n"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "nested", "dict.txt")
	fetched, err := fastDownloader().Ensure(context.Background(), path, srv.URL)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !fetched {
		t.Fatalf("expected a download")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(b), "the 23135851162") {
		t.Fatalf("unexpected content %q", b)
	}

	fetched, err = fastDownloader().Ensure(context.Background(), path, srv.URL)
	if err != nil || fetched {
		t.Fatalf("second Ensure = %v, %v; want no download", fetched, err)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1", hits.Load())
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("word 1\n"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "dict.txt")
	if err := fastDownloader().Fetch(context.Background(), path, srv.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("server hit %d times, want 3", hits.Load())
	}
}

func TestFetch_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "dict.txt")
	if err := fastDownloader().Fetch(context.Background(), path, srv.URL); err == nil {
		t.Fatalf("expected error")
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1", hits.Load())
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no file should be left behind, stat err = %v", err)
	}
}

func TestFetch_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	d := fastDownloader()
	d.Attempts = 1
	err := d.Fetch(context.Background(), filepath.Join(t.TempDir(), "dict.txt"), srv.URL)
	if !errors.Is(err, ErrEmptyDownload) {
		t.Fatalf("Fetch err = %v, want ErrEmptyDownload", err)
	}
}

func TestEnsure_NoURL(t *testing.T) {
	_, err := fastDownloader().Ensure(context.Background(), filepath.Join(t.TempDir(), "dict.txt"), "")
	if err == nil {
		t.Fatalf("expected error when the file is missing and no url is set")
	}
}

func TestEnsure_PathIsDirectory(t *testing.T) {
	_, err := fastDownloader().Ensure(context.Background(), t.TempDir(), "http://unused")
	if err == nil {
		t.Fatalf("expected error for a directory path")
	}
}
