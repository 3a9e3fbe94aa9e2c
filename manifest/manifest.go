// Package manifest defines the on-disk JSON schema for one archive's
// inventory and the helpers that (de)serialize it.
package manifest

import (
	"encoding/json"
	"fmt"
	"time"

	apperror "github.com/drinkcat/simple-serac/error"
)

// Version is the only schema version this implementation understands. A
// manifest declaring any other version is a fatal IntegrityError: the
// schema is not versioned to be forward-compatible, it is versioned to
// detect incompatibility.
const Version = 1

// FileEntry is one logical source file as recorded in one manifest.
type FileEntry struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Modified isoTime `json:"modified"`
	Sha      string  `json:"sha"`

	// ManifestID is the id of the manifest this entry was read from. It is
	// populated by Parse, not part of the persisted schema.
	ManifestID string `json:"-"`
}

// ModTime returns Modified as a time.Time for callers outside this package.
func (fe FileEntry) ModTime() time.Time { return time.Time(fe.Modified) }

// Manifest is one archive's inventory, as persisted at db/<archive-id>.json.
type Manifest struct {
	Version int         `json:"version"`
	Data    []FileEntry `json:"data"`
}

// New creates an empty manifest at the current schema version.
func New() *Manifest {
	return &Manifest{Version: Version}
}

// Add appends fe to the manifest in capture order.
func (m *Manifest) Add(fe FileEntry) {
	m.Data = append(m.Data, fe)
}

// Bytes serializes m per the stable field order of the v1 schema, indented
// with four spaces as required by the wire format.
func (m *Manifest) Bytes() ([]byte, error) {
	return json.MarshalIndent(m, "", "    ")
}

// Parse decodes raw manifest JSON, tagging every entry with id (the
// manifest's own archive id) and rejecting any schema version other than
// Version.
func Parse(id string, raw []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &apperror.ConfigError{Reason: fmt.Sprintf("manifest %s: %v", id, err)}
	}
	if m.Version != Version {
		return nil, &apperror.IntegrityError{
			Reason: fmt.Sprintf("manifest %s: unsupported version %d, want %d", id, m.Version, Version),
		}
	}

	seen := make(map[string]struct{}, len(m.Data))
	for i := range m.Data {
		m.Data[i].ManifestID = id
		if _, dup := seen[m.Data[i].Name]; dup {
			return nil, &apperror.IntegrityError{
				Reason: fmt.Sprintf("manifest %s: duplicate name %q", id, m.Data[i].Name),
			}
		}
		seen[m.Data[i].Name] = struct{}{}
	}

	return &m, nil
}

// TarKey returns the data/<id>.tar key that must exist alongside db/<id>.json.
func TarKey(id string) string {
	return "data/" + id + ".tar"
}

// Key returns the db/<id>.json key for id.
func Key(id string) string {
	return "db/" + id + ".json"
}

// isoTime marshals as an RFC3339 UTC timestamp (e.g. "2024-01-02T15:04:05Z"),
// matching the spec's "ISO-8601 UTC timestamp" requirement without the
// nanosecond fraction time.Time's default JSON encoding would add.
type isoTime time.Time

func (t isoTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339))
}

func (t *isoTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = isoTime(parsed.UTC())
	return nil
}

// NewTimestamp wraps a time.Time for assignment into FileEntry.Modified.
func NewTimestamp(t time.Time) isoTime {
	return isoTime(t.UTC())
}
