package packer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/drinkcat/simple-serac/backupdb"
	"github.com/drinkcat/simple-serac/log"
	"github.com/drinkcat/simple-serac/manifest"
	"github.com/drinkcat/simple-serac/manifeststore"
	"github.com/drinkcat/simple-serac/objectstore/memstore"
)

func init() {
	log.Init(log.LevelError, false)
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	assert.NilError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	assert.NilError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newTestPacker(t *testing.T, minSize int64) (*Packer, *memstore.Store, string) {
	t.Helper()
	input := t.TempDir()
	cache := t.TempDir()

	objects := memstore.New()
	ms := manifeststore.New(objects, cache, "")
	db := backupdb.Build(nil)

	p := New(objects, ms, db, Options{
		InputRoot:  input,
		ColdClass:  "DEEP_ARCHIVE",
		WarmClass:  "STANDARD",
		MinSize:    minSize,
		SessionTag: "20260101-000000",
	})
	return p, objects, input
}

func TestRunEmptyTreeProducesNoArchive(t *testing.T) {
	p, _, _ := newTestPacker(t, defaultMinSize)
	result, err := p.Run(context.Background(), nil)
	assert.NilError(t, err)
	assert.Equal(t, result.ArchivesWritten, 0)
	assert.Equal(t, result.FilesWritten, 0)
}

func TestRunSingleArchiveUnderMinSize(t *testing.T) {
	p, objects, input := newTestPacker(t, defaultMinSize)
	writeFile(t, input, "a.txt", "hello")
	writeFile(t, input, "dir/b.txt", "world")

	result, err := p.Run(context.Background(), []string{"a.txt", "dir/b.txt"})
	assert.NilError(t, err)
	assert.Equal(t, result.ArchivesWritten, 1)
	assert.Equal(t, result.FilesWritten, 2)
	assert.Equal(t, result.FilesSkipped, int64(0))

	current, err := objects.ListCurrent(context.Background(), "")
	assert.NilError(t, err)
	assert.Equal(t, len(current), 2) // one tar, one manifest
}

func TestRunFlushesWhenOverMinSize(t *testing.T) {
	p, objects, input := newTestPacker(t, 10)
	writeFile(t, input, "a.txt", "0123456789012") // 13 bytes > MIN_SIZE(10)
	writeFile(t, input, "b.txt", "x")

	result, err := p.Run(context.Background(), []string{"a.txt", "b.txt"})
	assert.NilError(t, err)
	assert.Equal(t, result.ArchivesWritten, 2) // a.txt alone exceeds, flush; b.txt final flush
	assert.Equal(t, result.FilesWritten, 2)

	current, err := objects.ListCurrent(context.Background(), "")
	assert.NilError(t, err)
	assert.Equal(t, len(current), 4) // 2 tars + 2 manifests
}

func TestRunSkipsUnchangedFileBySha(t *testing.T) {
	p, _, input := newTestPacker(t, defaultMinSize)
	writeFile(t, input, "a.txt", "hello")

	fe, err := capture(input, "a.txt")
	assert.NilError(t, err)

	m := manifest.New()
	m.Add(fe)
	db := backupdb.Build([]*manifest.Manifest{m})
	p.db = db

	result, err := p.Run(context.Background(), []string{"a.txt"})
	assert.NilError(t, err)
	assert.Equal(t, result.FilesSkipped, int64(1))
	assert.Equal(t, result.ArchivesWritten, 0)
}

func TestRunRepacksChangedFile(t *testing.T) {
	p, _, input := newTestPacker(t, defaultMinSize)
	writeFile(t, input, "a.txt", "version-one")

	fe, err := capture(input, "a.txt")
	assert.NilError(t, err)
	m := manifest.New()
	m.Add(fe)
	p.db = backupdb.Build([]*manifest.Manifest{m})

	writeFile(t, input, "a.txt", "version-two-different-content")

	result, err := p.Run(context.Background(), []string{"a.txt"})
	assert.NilError(t, err)
	assert.Equal(t, result.FilesSkipped, int64(0))
	assert.Equal(t, result.ArchivesWritten, 1)
	assert.Equal(t, result.FilesWritten, 1)
}

func TestRunCapturesSymlink(t *testing.T) {
	p, objects, input := newTestPacker(t, defaultMinSize)
	writeFile(t, input, "real.txt", "content")
	assert.NilError(t, os.Symlink("real.txt", filepath.Join(input, "link.txt")))

	result, err := p.Run(context.Background(), []string{"link.txt", "real.txt"})
	assert.NilError(t, err)
	assert.Equal(t, result.FilesWritten, 2)

	current, err := objects.ListCurrent(context.Background(), "")
	assert.NilError(t, err)
	assert.Equal(t, len(current), 2)
}
