// Package backupdb builds the in-memory union of every manifest into a
// name-keyed database with supersession history.
package backupdb

import (
	"sort"

	"github.com/drinkcat/simple-serac/manifest"
)

// Entry is one logical file's current state plus its supersession history,
// most-recent-first.
type Entry struct {
	Current manifest.FileEntry
	Alt     []manifest.FileEntry
}

// Database is the in-memory mapping name -> Entry built by merging every
// manifest in ascending archive-id order.
type Database struct {
	entries map[string]*Entry
}

// Build ingests manifests in the order given. Callers must pass manifests
// already sorted by ascending archive id (manifeststore.LoadAll does this);
// Build does not re-sort, since id order for manifests loaded by id is
// already the ingestion order the spec requires.
func Build(manifests []*manifest.Manifest) *Database {
	db := &Database{entries: make(map[string]*Entry)}
	for _, m := range manifests {
		for _, fe := range m.Data {
			db.ingest(fe)
		}
	}
	return db
}

func (db *Database) ingest(fe manifest.FileEntry) {
	existing, ok := db.entries[fe.Name]
	if !ok {
		db.entries[fe.Name] = &Entry{Current: fe}
		return
	}

	alt := make([]manifest.FileEntry, 0, len(existing.Alt)+1)
	alt = append(alt, existing.Current)
	alt = append(alt, existing.Alt...)
	db.entries[fe.Name] = &Entry{Current: fe, Alt: alt}
}

// Get returns the entry (current plus alternates) recorded for name, and
// whether name is known at all.
func (db *Database) Get(name string) (*Entry, bool) {
	e, ok := db.entries[name]
	return e, ok
}

// HasSha reports whether name's current entry already has the given content
// hash — the Packer's sole dedup test. Size and Modified are recorded but
// never consulted, so touch/rsync mtime drift never causes a spurious
// re-upload.
func (db *Database) HasSha(name, sha string) bool {
	e, ok := db.entries[name]
	return ok && e.Current.Sha == sha
}

// Names returns every known name in sorted order.
func (db *Database) Names() []string {
	names := make([]string, 0, len(db.entries))
	for name := range db.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of distinct logical files tracked.
func (db *Database) Len() int {
	return len(db.entries)
}
