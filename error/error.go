// Package error defines the typed error taxonomy shared by the backup
// pipeline and its CLIs.
package error

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ConfigError reports a problem detected before any remote I/O took place:
// bad flags, an unparsable URL, a malformed local cache file. Always fatal.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Reason)
}

// IntegrityError reports a violation of the backup database's invariants:
// a manifest version mismatch, a duplicate name within one manifest, or (outside
// verify mode) an archive referenced by a manifest that does not exist remotely.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error: %s", e.Reason)
}

// UnsupportedFileKind reports a filesystem entry that FileWalker or
// FileDigest refuses to archive: a socket, FIFO, device node, or anything
// else that isn't a regular file, directory, or symlink.
type UnsupportedFileKind struct {
	Path string
	Kind string
}

func (e *UnsupportedFileKind) Error() string {
	return fmt.Sprintf("unsupported file kind %s: %s", e.Kind, e.Path)
}

// AlreadyExists reports that an upload was refused because the destination
// key already has an object. Always fatal: the caller must pick a new key.
type AlreadyExists struct {
	Key string
}

func (e *AlreadyExists) Error() string {
	return fmt.Sprintf("object already exists, refusing to overwrite: %s", e.Key)
}

// AuditSeverity classifies an AuditFinding.
type AuditSeverity int

const (
	AuditInfo AuditSeverity = iota
	AuditWarning
	AuditError
)

func (s AuditSeverity) String() string {
	switch s {
	case AuditError:
		return "ERROR"
	case AuditWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

// AuditFinding is not a Go error: the RemoteAuditor tallies findings into a
// report instead of raising them, so a single audit run can surface every
// problem with a bucket instead of stopping at the first one.
type AuditFinding struct {
	Severity AuditSeverity
	Key      string
	Reason   string
}

func (f AuditFinding) String() string {
	if f.Key == "" {
		return fmt.Sprintf("%s: %s", f.Severity, f.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", f.Severity, f.Key, f.Reason)
}

// IsCancelation reports whether err is, or wraps, a context cancelation.
// multierror aggregates (used when fanning out concurrent audit reads) are
// unwrapped recursively so a canceled audit run is recognized even if only
// one of its concurrent legs observed the cancelation directly.
func IsCancelation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return true
	}

	merr, ok := err.(*multierror.Error)
	if !ok {
		return false
	}

	for _, sub := range merr.Errors {
		if IsCancelation(sub) {
			return true
		}
	}

	return false
}
