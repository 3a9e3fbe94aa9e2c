package memstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperror "github.com/drinkcat/simple-serac/error"
	"gotest.tools/v3/assert"
)

func TestUploadRefusesExistingKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	assert.NilError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.NilError(t, s.Upload(ctx, path, "data/a.tar", "DEEP_ARCHIVE"))

	err := s.Upload(ctx, path, "data/a.tar", "DEEP_ARCHIVE")
	assert.ErrorType(t, err, func(err error) bool {
		_, ok := err.(*apperror.AlreadyExists)
		return ok
	})
}

func TestDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	dir := t.TempDir()
	src := filepath.Join(dir, "f")
	assert.NilError(t, os.WriteFile(src, []byte("payload"), 0o644))
	assert.NilError(t, s.Upload(ctx, src, "db/a.json", "STANDARD"))

	dst := filepath.Join(dir, "out")
	assert.NilError(t, s.Download(ctx, "db/a.json", dst))

	got, err := os.ReadFile(dst)
	assert.NilError(t, err)
	assert.Equal(t, string(got), "payload")
}

func TestDryRunDoesNotMutateListing(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.DryRun = true
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	assert.NilError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.NilError(t, s.Upload(ctx, path, "data/a.tar", "DEEP_ARCHIVE"))

	current, err := s.ListCurrent(ctx, "")
	assert.NilError(t, err)
	assert.Equal(t, len(current), 0)
}
