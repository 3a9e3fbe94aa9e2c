// Package message defines the renderable log event types the logger emits,
// one struct per event shape, each able to render itself as either a
// human-readable line or a JSON object.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

const dateFormat = "2006/01/02 15:04:05"

// Message is anything the logger can print.
type Message interface {
	fmt.Stringer
	JSON() string
}

// Info announces the start of a long-running operation.
type Info struct {
	Operation string `json:"operation"`
	Target    string `json:"target"`
}

func (i Info) String() string { return fmt.Sprintf("%s %s...", i.Operation, i.Target) }
func (i Info) JSON() string   { b, _ := json.Marshal(i); return string(b) }

// Error reports a fatal failure tied to an operation.
type Error struct {
	Op  string `json:"op"`
	Err string `json:"error"`
}

func (e Error) String() string { return fmt.Sprintf("ERROR %q: %v", e.Op, cleanupSpaces(e.Err)) }
func (e Error) JSON() string {
	e.Err = cleanupSpaces(e.Err)
	b, _ := json.Marshal(e)
	return string(b)
}

// Warning reports a non-fatal problem.
type Warning struct {
	Op  string `json:"op"`
	Err string `json:"error"`
}

func (w Warning) String() string { return fmt.Sprintf("%q (%v)", w.Op, cleanupSpaces(w.Err)) }
func (w Warning) JSON() string {
	w.Err = cleanupSpaces(w.Err)
	b, _ := json.Marshal(w)
	return string(b)
}

// Debug wraps a free-form diagnostic line.
type Debug struct {
	Content string `json:"content"`
}

func (d Debug) String() string { return d.Content }
func (d Debug) JSON() string   { b, _ := json.Marshal(d); return string(b) }

// SkipBatch reports how many already-known files were skipped since the last
// batch report, emitted roughly every 1000 skips so a large unchanged tree
// doesn't run silently for minutes.
type SkipBatch struct {
	Count int64 `json:"skipped"`
	Total int64 `json:"total_skipped"`
}

func (s SkipBatch) String() string {
	return fmt.Sprintf("skipped %d unchanged files (%d total)", s.Count, s.Total)
}
func (s SkipBatch) JSON() string { b, _ := json.Marshal(s); return string(b) }

// ArchiveSummary reports the outcome of flushing one archive+manifest pair.
type ArchiveSummary struct {
	ArchiveID   string `json:"archive_id"`
	Files       int    `json:"files"`
	Bytes       int64  `json:"bytes"`
	HumanBytes  string `json:"human_bytes"`
	TarKey      string `json:"tar_key"`
	ManifestKey string `json:"manifest_key"`
}

func (a ArchiveSummary) String() string {
	return fmt.Sprintf("archive %s: %d files, %s -> %s, %s", a.ArchiveID, a.Files, a.HumanBytes, a.TarKey, a.ManifestKey)
}
func (a ArchiveSummary) JSON() string { b, _ := json.Marshal(a); return string(b) }

// Finding reports a single audit observation.
type Finding struct {
	Severity string `json:"severity"`
	Key      string `json:"key,omitempty"`
	Reason   string `json:"reason"`
}

func (f Finding) String() string {
	if f.Key == "" {
		return fmt.Sprintf("%s: %s", f.Severity, f.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", f.Severity, f.Key, f.Reason)
}
func (f Finding) JSON() string { b, _ := json.Marshal(f); return string(b) }

// SyncAction reports one decision the ManifestStore sync pass made about a
// locally cached manifest: kept, refreshed, or renamed aside.
type SyncAction struct {
	Action string `json:"action"`
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

func (s SyncAction) String() string {
	if s.Reason == "" {
		return fmt.Sprintf("%s %s", s.Action, s.Name)
	}
	return fmt.Sprintf("%s %s (%s)", s.Action, s.Name, s.Reason)
}
func (s SyncAction) JSON() string { b, _ := json.Marshal(s); return string(b) }

// ObjectLine renders one line of an `s3 --list`-style listing.
type ObjectLine struct {
	ModTime      string `json:"mod_time"`
	StorageClass string `json:"storage_class"`
	Etag         string `json:"etag,omitempty"`
	Size         string `json:"size"`
	Key          string `json:"key"`
}

func (o ObjectLine) String() string {
	return fmt.Sprintf("%19s %8s %-34s %12s  %s", o.ModTime, o.StorageClass, o.Etag, o.Size, o.Key)
}
func (o ObjectLine) JSON() string { b, _ := json.Marshal(o); return string(b) }

// cleanupSpaces collapses multiline SDK error text (aws-sdk-go errors
// frequently embed newlines and request IDs across lines) into one line.
func cleanupSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
