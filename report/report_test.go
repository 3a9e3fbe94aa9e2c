package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/drinkcat/simple-serac/backupdb"
	"github.com/drinkcat/simple-serac/manifest"
	"github.com/drinkcat/simple-serac/objectstore/memstore"
)

func buildDB(t *testing.T) *backupdb.Database {
	t.Helper()
	m1 := manifest.New()
	m1.Data = append(m1.Data, manifest.FileEntry{
		Name: "a.txt", Size: 10, Sha: "H1", ManifestID: "20260101-000000-000000",
		Modified: manifest.NewTimestamp(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	m2 := manifest.New()
	m2.Data = append(m2.Data, manifest.FileEntry{
		Name: "a.txt", Size: 20, Sha: "H2", ManifestID: "20260102-000000-000000",
		Modified: manifest.NewTimestamp(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)),
	})
	return backupdb.Build([]*manifest.Manifest{m1, m2})
}

func TestRenderHeaderAndQuoting(t *testing.T) {
	db := buildDB(t)
	raw := Render(db)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")

	assert.Equal(t, lines[0], `"tar_file","filename","size","modified","sha"`)
	assert.Equal(t, len(lines), 3) // header + current + one alt
}

func TestRenderEveryEntryAppearsExactlyOnce(t *testing.T) {
	db := buildDB(t)
	raw := string(Render(db))

	assert.Assert(t, strings.Contains(raw, `"H1"`))
	assert.Assert(t, strings.Contains(raw, `"H2"`))
	assert.Equal(t, strings.Count(raw, "H1"), 1)
	assert.Equal(t, strings.Count(raw, "H2"), 1)
}

func TestRenderSizeFieldUnquoted(t *testing.T) {
	db := buildDB(t)
	raw := string(Render(db))
	assert.Assert(t, strings.Contains(raw, ",20,"))
	assert.Assert(t, !strings.Contains(raw, `,"20",`))
}

func TestRenderTarFileDerivedFromManifestID(t *testing.T) {
	db := buildDB(t)
	raw := string(Render(db))
	assert.Assert(t, strings.Contains(raw, `"data/20260101-000000-000000.tar"`))
	assert.Assert(t, strings.Contains(raw, `"data/20260102-000000-000000.tar"`))
}

func TestWriteUploadsToReportPrefix(t *testing.T) {
	db := buildDB(t)
	objects := memstore.New()

	err := Write(context.Background(), objects, db, "", "20260103-120000", "STANDARD")
	assert.NilError(t, err)

	current, err := objects.ListCurrent(context.Background(), "report/")
	assert.NilError(t, err)
	_, ok := current["report/20260103-120000.csv"]
	assert.Assert(t, ok)
}
