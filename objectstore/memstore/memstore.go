// Package memstore is an in-process objectstore.Store used by the unit
// tests so they run without network access, in place of the
// HTTP-server-backed gofakes3 fixture the wider example corpus uses for its
// own S3-facing tests.
package memstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"sync"

	apperror "github.com/drinkcat/simple-serac/error"
	"github.com/drinkcat/simple-serac/objectstore"
)

type object struct {
	data  []byte
	class string
	etag  string
}

// Store is a goroutine-safe in-memory objectstore.Store.
type Store struct {
	mu      sync.Mutex
	objects map[string]object
	history map[string][]object // noncurrent versions, most-recent-first

	// BucketConfig is returned verbatim by GetBucketConfig; tests populate
	// it directly to exercise the bucket-policy checker.
	BucketConfig objectstore.BucketConfig

	DryRun bool
}

var _ objectstore.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		objects: make(map[string]object),
		history: make(map[string][]object),
	}
}

func (s *Store) ListCurrent(ctx context.Context, prefix string) (map[string]objectstore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]objectstore.Object)
	for k, v := range s.objects {
		if hasPrefix(k, prefix) {
			out[k] = objectstore.Object{Key: k, Size: int64(len(v.data)), StorageClass: v.class, ETag: v.etag}
		}
	}
	return out, nil
}

func (s *Store) ListVersions(ctx context.Context, prefix string) (map[string]objectstore.Object, map[string][]objectstore.Object, error) {
	if !s.BucketConfig.VersioningEnabled {
		return nil, nil, &apperror.ConfigError{Reason: "memstore: versioning not enabled"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.listCurrentLocked(prefix)
	outdated := make(map[string][]objectstore.Object)
	for k, versions := range s.history {
		if !hasPrefix(k, prefix) {
			continue
		}
		for _, v := range versions {
			outdated[k] = append(outdated[k], objectstore.Object{Key: k, Size: int64(len(v.data)), StorageClass: v.class, ETag: v.etag})
		}
	}
	return current, outdated, nil
}

func (s *Store) listCurrentLocked(prefix string) (map[string]objectstore.Object, error) {
	out := make(map[string]objectstore.Object)
	for k, v := range s.objects {
		if hasPrefix(k, prefix) {
			out[k] = objectstore.Object{Key: k, Size: int64(len(v.data)), StorageClass: v.class, ETag: v.etag}
		}
	}
	return out, nil
}

func (s *Store) Download(ctx context.Context, key, localPath string) error {
	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return &apperror.ConfigError{Reason: "memstore: no such key: " + key}
	}

	tmp, err := os.CreateTemp("", ".serac-memstore-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(obj.data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), localPath)
}

func (s *Store) Upload(ctx context.Context, localPath, key, class string) error {
	s.mu.Lock()
	if _, exists := s.objects[key]; exists {
		s.mu.Unlock()
		return &apperror.AlreadyExists{Key: key}
	}
	s.mu.Unlock()

	if s.DryRun {
		return nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: data, class: class, etag: etagOf(data)}
	return nil
}

func (s *Store) GetBucketConfig(ctx context.Context) (*objectstore.BucketConfig, error) {
	cfg := s.BucketConfig
	return &cfg, nil
}

// Supersede moves the current object at key into its version history and
// replaces it, letting tests simulate a versioned bucket's noncurrent
// versions without going through Upload's AlreadyExists refusal.
func (s *Store) Supersede(key string, data []byte, class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.objects[key]; ok {
		s.history[key] = append([]object{old}, s.history[key]...)
	}
	s.objects[key] = object{data: data, class: class, etag: etagOf(data)}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
