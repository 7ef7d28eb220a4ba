package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// LocalStore writes uploads under a directory and serves them back at
// RefPrefix.
type LocalStore struct {
	dir string
	now func() time.Time
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{dir: dir, now: time.Now}, nil
}

func (s *LocalStore) Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error) {
	name := objectName(filename, s.now())
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	// One extra byte detects a body larger than declared.
	n, err := io.Copy(f, io.LimitReader(r, MaxUploadSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxUploadSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", err
	}
	return RefPrefix + name, nil
}

func (s *LocalStore) URL(ctx context.Context, ref string) (string, error) {
	name, err := objectFromRef(ref)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
		return "", ErrInvalidRef
	}
	return ref, nil
}

// ServeHTTP serves one stored object per request; mount it at RefPrefix.
// Directory paths and anything outside the store answer 404.
func (s *LocalStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, err := objectFromRef(r.URL.Path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}
