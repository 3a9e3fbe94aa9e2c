// Package objectstore defines the abstract interface the backup engine uses
// to talk to S3-class tiered object storage, independent of any particular
// SDK or transport.
package objectstore

import "context"

// Object is the audit view of one remote object: enough to drive dedup
// sync, I1/I2 checks, and storage-class auditing without re-downloading
// content.
type Object struct {
	Key          string
	Size         int64
	StorageClass string
	ETag         string
	Restoring    bool
}

// LifecycleRule is the subset of an S3 lifecycle rule the bucket-policy
// sanity checker inspects.
type LifecycleRule struct {
	ID      string
	Enabled bool

	// FilterPrefix is the rule's filter prefix, or "" if the rule has no
	// filter (applies bucket-wide).
	FilterPrefix string

	// NoncurrentVersionExpirationDays is 0 if the rule has no
	// NoncurrentVersionExpiration action.
	NoncurrentVersionExpirationDays int

	// NewerNoncurrentVersions is the keep-count on the
	// NoncurrentVersionExpiration action, 0 if unset. A nonzero value
	// disqualifies the rule from satisfying the bucket-policy check even
	// when NoncurrentVersionExpirationDays is set.
	NewerNoncurrentVersions int

	// AbortIncompleteMultipartUploadDays is 0 if the rule has no
	// AbortIncompleteMultipartUpload action.
	AbortIncompleteMultipartUploadDays int
}

// PublicAccessBlock mirrors s3:GetPublicAccessBlock's four flags. A bucket
// with no public-access-block configuration at all is represented by a nil
// *PublicAccessBlock in BucketConfig, which the policy checker treats as an
// ERROR on its own.
type PublicAccessBlock struct {
	BlockPublicAcls       bool
	IgnorePublicAcls      bool
	BlockPublicPolicy     bool
	RestrictPublicBuckets bool
}

// AllBlocked reports whether every flag required by the bucket-policy
// sanity check is set.
func (p PublicAccessBlock) AllBlocked() bool {
	return p.BlockPublicAcls && p.IgnorePublicAcls && p.BlockPublicPolicy && p.RestrictPublicBuckets
}

// BucketConfig is the full bucket introspection the spec names: versioning,
// lifecycle rules, public-access block, encryption, ACL, and notifications.
type BucketConfig struct {
	VersioningEnabled       bool
	LifecycleRules          []LifecycleRule
	PublicAccessBlock       *PublicAccessBlock
	EncryptionEnabled       bool
	EncryptionSSEAlgo       string
	ACLGrantsPublicRead     bool
	NotificationsConfigured bool
}

// Store is the abstract object-store contract the backup engine programs
// against. The only write operation is Upload; there is no delete.
type Store interface {
	// ListCurrent returns the current (non-version-aware) listing of every
	// key under prefix.
	ListCurrent(ctx context.Context, prefix string) (map[string]Object, error)

	// ListVersions returns the current listing plus, for every key with at
	// least one noncurrent version, the list of those noncurrent versions
	// (most-recent-first). Returns an error if the bucket does not have
	// versioning enabled.
	ListVersions(ctx context.Context, prefix string) (current map[string]Object, outdated map[string][]Object, err error)

	// Download writes the object at key to localPath, replacing any
	// existing file atomically (via a temp file + rename) so a failed
	// download never leaves a partial file at localPath.
	Download(ctx context.Context, key, localPath string) error

	// Upload reads localPath and stores it at key with the given storage
	// class. It refuses to overwrite an existing current key, returning
	// *apperror.AlreadyExists instead. On success, the in-memory listing
	// cache used by ListCurrent is updated; in dry-run mode, Upload
	// performs no I/O and leaves the cache untouched.
	Upload(ctx context.Context, localPath, key, class string) error

	// GetBucketConfig reads the bucket's versioning, lifecycle, public
	// access block, encryption, ACL, and notification configuration.
	GetBucketConfig(ctx context.Context) (*BucketConfig, error)
}
