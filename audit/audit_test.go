package audit

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/drinkcat/simple-serac/log"
	"github.com/drinkcat/simple-serac/objectstore"
	"github.com/drinkcat/simple-serac/objectstore/memstore"
)

func init() {
	log.Init(log.LevelError, false)
}

func TestRunOrphanManifestIsError(t *testing.T) {
	objects := memstore.New()
	objects.Supersede("db/20260101-000000-000000.json", []byte("{}"), "STANDARD")

	a := New(objects, Options{ColdClass: "DEEP_ARCHIVE"})
	report, err := a.Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, report.Errors, 1)
	assert.Equal(t, report.Warnings, 0)
}

func TestRunOrphanTarIsWarning(t *testing.T) {
	objects := memstore.New()
	objects.Supersede("data/20260101-000000-000000.tar", []byte("x"), "DEEP_ARCHIVE")

	a := New(objects, Options{ColdClass: "DEEP_ARCHIVE"})
	report, err := a.Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, report.Errors, 0)
	assert.Equal(t, report.Warnings, 1)
}

func TestRunWrongStorageClassIsWarning(t *testing.T) {
	objects := memstore.New()
	objects.Supersede("db/20260101-000000-000000.json", []byte("{}"), "STANDARD")
	objects.Supersede("data/20260101-000000-000000.tar", []byte("x"), "STANDARD")

	a := New(objects, Options{ColdClass: "DEEP_ARCHIVE"})
	report, err := a.Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, report.Errors, 0)
	assert.Equal(t, report.Warnings, 1)
}

func TestRunMatchedPairClean(t *testing.T) {
	objects := memstore.New()
	objects.Supersede("db/20260101-000000-000000.json", []byte("{}"), "STANDARD")
	objects.Supersede("data/20260101-000000-000000.tar", []byte("x"), "DEEP_ARCHIVE")

	a := New(objects, Options{ColdClass: "DEEP_ARCHIVE"})
	report, err := a.Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, report.Errors, 0)
	assert.Equal(t, report.Warnings, 0)
}

func TestRunUnexpectedObjectIsWarning(t *testing.T) {
	objects := memstore.New()
	objects.Supersede("junk/stray.bin", []byte("x"), "STANDARD")

	a := New(objects, Options{ColdClass: "DEEP_ARCHIVE"})
	report, err := a.Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, report.Warnings, 1)
}

func TestRunVerifyRequiresPublicAccessBlock(t *testing.T) {
	objects := memstore.New()
	objects.BucketConfig.VersioningEnabled = true

	a := New(objects, Options{ColdClass: "DEEP_ARCHIVE", Verify: true})
	report, err := a.Run(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, report.Errors >= 1)
}

func TestRunVerifyPassesWithCompletePolicy(t *testing.T) {
	objects := memstore.New()
	objects.BucketConfig.VersioningEnabled = true
	objects.BucketConfig.PublicAccessBlock = &objectstore.PublicAccessBlock{
		BlockPublicAcls:       true,
		IgnorePublicAcls:      true,
		BlockPublicPolicy:     true,
		RestrictPublicBuckets: true,
	}
	objects.BucketConfig.LifecycleRules = []objectstore.LifecycleRule{
		{ID: "expire-noncurrent", Enabled: true, NoncurrentVersionExpirationDays: 30},
		{ID: "abort-multipart", Enabled: true, AbortIncompleteMultipartUploadDays: 7},
	}

	a := New(objects, Options{ColdClass: "DEEP_ARCHIVE", Verify: true})
	report, err := a.Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, report.Errors, 0)
}
