// Package manifeststore manages the local manifest cache directory and its
// reconciliation against the remote db/ prefix.
package manifeststore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/drinkcat/simple-serac/log"
	"github.com/drinkcat/simple-serac/manifest"
	"github.com/drinkcat/simple-serac/message"
	"github.com/drinkcat/simple-serac/objectstore"
)

// Store mediates all manifest JSON reads/writes and the local cache's
// coherency with the remote db/ prefix.
type Store struct {
	objects  objectstore.Store
	cacheDir string
	prefix   string
}

// New creates a Store backed by objects, caching manifests under cacheDir.
// prefix is the configured URL's prefix (already normalized: no leading
// slash, single trailing slash or empty).
func New(objects objectstore.Store, cacheDir, prefix string) *Store {
	return &Store{objects: objects, cacheDir: cacheDir, prefix: prefix}
}

// CachePath derives the local cache directory for a remote URL: alphanumerics
// pass through, everything else becomes an underscore. This is deliberately
// not a general-purpose URL-safe encoding — it exists only to produce a
// stable, collision-avoiding directory name per distinct URL, matching the
// original tool's cache layout so existing caches on an operator's machine
// stay valid across a migration.
func CachePath(cacheHome, remoteURL string) string {
	var b strings.Builder
	for _, r := range remoteURL {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return filepath.Join(cacheHome, "simple-uploader", b.String())
}

// Sync brings the local cache directory in line with the remote db/ prefix:
// missing manifests are downloaded, locally-corrupt or stale manifests are
// renamed aside and re-downloaded, and any local leftover not matched by a
// remote manifest is renamed aside. Nothing under the cache directory is
// ever deleted.
func (s *Store) Sync(ctx context.Context) error {
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return err
	}

	remote, err := s.objects.ListCurrent(ctx, s.prefix+"db/")
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(remote))
	for key, obj := range remote {
		name := path.Base(key)
		seen[name] = true
		if err := s.syncOne(ctx, key, obj, name); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), "~") || seen[e.Name()] {
			continue
		}
		s.renameAside(e.Name(), "not present on remote")
	}

	return nil
}

func (s *Store) syncOne(ctx context.Context, key string, obj objectstore.Object, name string) error {
	localPath := filepath.Join(s.cacheDir, name)

	fi, err := os.Lstat(localPath)
	switch {
	case os.IsNotExist(err):
		return s.download(ctx, key, localPath, name, "missing locally")
	case err != nil:
		return err
	case fi.Mode()&os.ModeSymlink != 0:
		s.renameAside(name, "local copy is a symlink")
		return s.download(ctx, key, localPath, name, "replacing symlink")
	case fi.Size() != obj.Size:
		s.renameAside(name, "size mismatch")
		return s.download(ctx, key, localPath, name, "size mismatch")
	}

	if isMD5ETag(obj.ETag) {
		sum, err := md5File(localPath)
		if err != nil {
			return err
		}
		if sum != obj.ETag {
			s.renameAside(name, "content hash mismatch")
			return s.download(ctx, key, localPath, name, "content hash mismatch")
		}
	}
	// Unverifiable ETag (multipart upload): size already matched above, so
	// the spec's fallback rule accepts the local copy as-is.

	log.Debug(message.SyncAction{Action: "keep", Name: name})
	return nil
}

func (s *Store) download(ctx context.Context, key, localPath, name, reason string) error {
	if err := s.objects.Download(ctx, key, localPath); err != nil {
		return err
	}
	log.Info(message.SyncAction{Action: "download", Name: name, Reason: reason})
	return nil
}

func (s *Store) renameAside(name, reason string) {
	oldPath := filepath.Join(s.cacheDir, name)
	newPath := oldPath + "~"
	if err := os.Rename(oldPath, newPath); err != nil {
		log.Warning(message.Warning{Op: "rename " + name, Err: err.Error()})
		return
	}
	log.Info(message.SyncAction{Action: "rename-aside", Name: name, Reason: reason})
}

// LoadAll reads every non-"~" manifest from the local cache directory in
// ascending (lexicographic) archive-id order, which is also ascending time
// order by construction of ArchiveId.
func (s *Store) LoadAll() ([]*manifest.Manifest, error) {
	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), "~") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	manifests := make([]*manifest.Manifest, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(s.cacheDir, name))
		if err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(name, ".json")
		m, err := manifest.Parse(id, raw)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}

	return manifests, nil
}

// Put writes m's JSON both into the local cache (so a manifest upload
// failure after a successful tar upload still leaves the manifest
// recoverable from disk, per the spec's flush-ordering rationale) and
// uploads it to db/<id>.json in the warm class.
func (s *Store) Put(ctx context.Context, id string, m *manifest.Manifest, warmClass string) error {
	raw, err := m.Bytes()
	if err != nil {
		return err
	}

	localPath := filepath.Join(s.cacheDir, id+".json")
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(localPath, raw, 0o644); err != nil {
		return err
	}

	return s.objects.Upload(ctx, localPath, s.prefix+manifest.Key(id), warmClass)
}

func isMD5ETag(etag string) bool {
	if len(etag) != 32 {
		return false
	}
	for _, r := range etag {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
