package manifeststore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/drinkcat/simple-serac/log"
	"github.com/drinkcat/simple-serac/manifest"
	"github.com/drinkcat/simple-serac/objectstore/memstore"
	"gotest.tools/v3/assert"
)

func init() {
	log.Init(log.LevelError, false)
}

func TestSyncDownloadsMissingManifest(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	cacheDir := t.TempDir()

	m := manifest.New()
	m.Add(manifest.FileEntry{Name: "a.txt", Size: 1, Sha: "aa"})
	raw, err := m.Bytes()
	assert.NilError(t, err)

	src := filepath.Join(t.TempDir(), "20240101-000000-000000.json")
	assert.NilError(t, os.WriteFile(src, raw, 0o644))
	assert.NilError(t, mem.Upload(ctx, src, "db/20240101-000000-000000.json", "STANDARD"))

	store := New(mem, cacheDir, "")
	assert.NilError(t, store.Sync(ctx))

	_, err = os.Stat(filepath.Join(cacheDir, "20240101-000000-000000.json"))
	assert.NilError(t, err)
}

func TestSyncRenamesLocalLeftoverAside(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	cacheDir := t.TempDir()

	leftover := filepath.Join(cacheDir, "20200101-000000-000000.json")
	assert.NilError(t, os.WriteFile(leftover, []byte(`{"version":1,"data":[]}`), 0o644))

	store := New(mem, cacheDir, "")
	assert.NilError(t, store.Sync(ctx))

	_, err := os.Stat(leftover)
	assert.Assert(t, os.IsNotExist(err))
	_, err = os.Stat(leftover + "~")
	assert.NilError(t, err)
}

func TestSyncAcceptsMatchingLocalCopy(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	cacheDir := t.TempDir()

	raw := []byte(`{"version":1,"data":[]}`)
	src := filepath.Join(t.TempDir(), "f.json")
	assert.NilError(t, os.WriteFile(src, raw, 0o644))
	assert.NilError(t, mem.Upload(ctx, src, "db/20240101-000000-000000.json", "STANDARD"))

	local := filepath.Join(cacheDir, "20240101-000000-000000.json")
	assert.NilError(t, os.WriteFile(local, raw, 0o644))

	store := New(mem, cacheDir, "")
	assert.NilError(t, store.Sync(ctx))

	// still present, not renamed aside, since content and size matched.
	_, err := os.Stat(local)
	assert.NilError(t, err)
	_, err = os.Stat(local + "~")
	assert.Assert(t, os.IsNotExist(err))
}

func TestPutThenLoadAll(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	cacheDir := t.TempDir()
	store := New(mem, cacheDir, "")

	m := manifest.New()
	m.Add(manifest.FileEntry{Name: "a.txt", Size: 1, Sha: "aa"})
	assert.NilError(t, store.Put(ctx, "20240101-000000-000000", m, "STANDARD"))

	loaded, err := store.LoadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(loaded), 1)
	assert.Equal(t, loaded[0].Data[0].Name, "a.txt")
}
