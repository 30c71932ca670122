// Package registry holds the process-wide response cache and the
// model-selection preferences shared across runs.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrCacheMiss is returned when a key is absent or its entry expired.
var ErrCacheMiss = errors.New("registry: cache miss")

const (
	// ResponseTTL bounds how long a cached brief is served.
	ResponseTTL = 20 * time.Hour
	// ModelPrefTTL bounds how long a model selection is trusted.
	ModelPrefTTL = 96 * time.Hour

	prefFile = "model_prefs.json"
)

// Stats summarizes cache occupancy.
type Stats struct {
	Entries   int   `json:"entries"`
	SizeBytes int64 `json:"size_bytes"`
}

// Store is the response-cache contract. Reads never touch the network;
// writes are best-effort and a failure is non-fatal to the caller.
type Store interface {
	Load(ctx context.Context, key string, ttl time.Duration) (json.RawMessage, error)
	LoadWithAge(ctx context.Context, key string, ttl time.Duration) (json.RawMessage, time.Duration, error)
	Save(ctx context.Context, key string, obj any) error
	Stats(ctx context.Context) (Stats, error)
	ClearAll(ctx context.Context) error
}

// Key derives the content-addressed cache key for a run.
func Key(topic, start, end string, channels []string) string {
	sorted := append([]string(nil), channels...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s", topic, start, end, strings.Join(sorted, ","))))
	return hex.EncodeToString(sum[:])[:16]
}

// FileStore keeps one JSON file per key under a cache directory. File
// mtime is authoritative for TTL.
type FileStore struct {
	dir string
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolve cache dir: %w", err)
		}
		dir = filepath.Join(base, "briefbot")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir exposes the backing directory.
func (fs *FileStore) Dir() string { return fs.dir }

func (fs *FileStore) path(key string) string {
	return filepath.Join(fs.dir, key+".json")
}

// Load returns the cached object iff its mtime is within ttl.
func (fs *FileStore) Load(_ context.Context, key string, ttl time.Duration) (json.RawMessage, error) {
	obj, _, err := fs.loadWithAge(key, ttl)
	return obj, err
}

// LoadWithAge also reports how old the entry is.
func (fs *FileStore) LoadWithAge(_ context.Context, key string, ttl time.Duration) (json.RawMessage, time.Duration, error) {
	return fs.loadWithAge(key, ttl)
}

func (fs *FileStore) loadWithAge(key string, ttl time.Duration) (json.RawMessage, time.Duration, error) {
	path := fs.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, ErrCacheMiss
	}
	age := time.Since(info.ModTime())
	if age > ttl {
		return nil, 0, ErrCacheMiss
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, ErrCacheMiss
	}
	if !json.Valid(raw) {
		return nil, 0, ErrCacheMiss
	}
	return raw, age, nil
}

// Save writes atomically: temp file then rename, so readers never see a
// torn entry.
func (fs *FileStore) Save(_ context.Context, key string, obj any) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return fs.writeAtomic(fs.path(key), raw)
}

func (fs *FileStore) writeAtomic(path string, raw []byte) error {
	tmp, err := os.CreateTemp(fs.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Stats counts cache files and their total size.
func (fs *FileStore) Stats(_ context.Context) (Stats, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return Stats{}, fmt.Errorf("read cache dir: %w", err)
	}
	var stats Stats
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.SizeBytes += info.Size()
	}
	return stats, nil
}

// ClearAll removes every cache file except the model-preference file.
func (fs *FileStore) ClearAll(_ context.Context) error {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == prefFile {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		os.Remove(filepath.Join(fs.dir, entry.Name()))
	}
	return nil
}
