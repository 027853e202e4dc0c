// Package cache stores rendered pages for anonymous visitors for a short TTL.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"blogpress/config"
)

// Entry is one cached response.
type Entry struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store is implemented by every cache backend. A miss is reported as
// ok == false, never as an error.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, e *Entry) error
	Clear(ctx context.Context) error
	// Sweep drops expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}

// New builds the backend selected by cfg.Backend. "none" yields a nil Store,
// which the middleware treats as disabled.
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "file":
		return NewFileStore(cfg.Dir, cfg.TTL), nil
	case "redis":
		s, err := NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none", "":
		return nil, nil
	default:
		return nil, errors.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Key hashes the request URI into a short stable key.
func Key(uri string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(uri))
}

// FileStore keeps one file per key; the file modification time is the
// insertion time.
type FileStore struct {
	dir string
	ttl time.Duration
}

func NewFileStore(dir string, ttl time.Duration) *FileStore {
	return &FileStore{dir: dir, ttl: ttl}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".cache")
}

func (s *FileStore) Get(_ context.Context, key string) (*Entry, bool) {
	p := s.path(key)
	info, err := os.Stat(p)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > s.ttl {
		return nil, false
	}

	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	return &e, true
}

func (s *FileStore) Set(_ context.Context, key string, e *Entry) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrap(err, "create cache dir")
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}

	// write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create cache file")
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write cache file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close cache file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path(key)), "store cache file")
}

// Clear removes every cached page.
func (s *FileStore) Clear(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read cache dir")
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".cache") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, de.Name())); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "remove cache file")
		}
	}
	return nil
}

// Sweep removes cache files older than the TTL.
func (s *FileStore) Sweep(_ context.Context) (int, error) {
	removed := 0
	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".cache") {
			return nil
		}
		if time.Since(info.ModTime()) > s.ttl {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, errors.Wrap(err, "sweep cache dir")
}
