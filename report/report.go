// Package report implements the CSV ReportWriter: a flat listing of every
// file the database knows about, current and superseded, for operator
// auditing outside the tool itself.
package report

import (
	"bytes"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/drinkcat/simple-serac/backupdb"
	"github.com/drinkcat/simple-serac/manifest"
	"github.com/drinkcat/simple-serac/objectstore"
)

var header = []string{"tar_file", "filename", "size", "modified", "sha"}

// Write renders one CSV row per current entry plus one per alternate, and
// uploads it to report/<flatDate>.csv in the warm class. flatDate is the
// caller-supplied YYYYMMDD-HHMMSS session tag (the same clock reading used
// to seed the Packer's archive-id generator).
func Write(ctx context.Context, objects objectstore.Store, db *backupdb.Database, prefix, flatDate, warmClass string) error {
	raw := Render(db)

	tmp, err := os.CreateTemp("", "serac-report-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	key := prefix + "report/" + flatDate + ".csv"
	return objects.Upload(ctx, tmp.Name(), key, warmClass)
}

// Render produces the CSV bytes for db without touching the object store,
// so property P7 can be checked directly against an in-memory database.
// String fields are always quoted; size is numeric and left unquoted,
// which is why this builds rows by hand instead of through encoding/csv
// (whose Writer quotes by content, not by a fixed per-column policy).
func Render(db *backupdb.Database) []byte {
	var buf bytes.Buffer

	writeRow(&buf, quoteAll(header)...)
	for _, name := range db.Names() {
		entry, _ := db.Get(name)
		writeEntry(&buf, entry.Current)
		for _, alt := range entry.Alt {
			writeEntry(&buf, alt)
		}
	}

	return buf.Bytes()
}

func writeEntry(buf *bytes.Buffer, fe manifest.FileEntry) {
	writeRow(buf,
		quote(tarFileFor(fe.ManifestID)),
		quote(fe.Name),
		strconv.FormatInt(fe.Size, 10),
		quote(fe.ModTime().UTC().Format("2006-01-02T15:04:05Z")),
		quote(fe.Sha),
	)
}

// tarFileFor derives the archive key from a manifest id, per the spec's
// "tar_file is derived from the manifest id by substituting the .tar
// suffix" rule.
func tarFileFor(manifestID string) string {
	return manifest.TarKey(manifestID)
}

func writeRow(buf *bytes.Buffer, fields ...string) {
	buf.WriteString(strings.Join(fields, ","))
	buf.WriteString("\n")
}

// quote wraps s in double quotes, doubling any embedded quote character per
// standard CSV escaping. Every string field is quoted unconditionally, so
// embedded commas and newlines never need special-casing.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = quote(f)
	}
	return out
}
