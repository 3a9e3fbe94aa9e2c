package audit

import (
	"strings"

	apperror "github.com/drinkcat/simple-serac/error"
	"github.com/drinkcat/simple-serac/log"
	"github.com/drinkcat/simple-serac/message"
	"github.com/drinkcat/simple-serac/objectstore"
)

// checkBucketPolicy runs the verify-mode bucket-policy sanity check: public
// access must be fully blocked, and if versioning is enabled there must be
// lifecycle rules expiring noncurrent versions and aborting incomplete
// multipart uploads.
func checkBucketPolicy(cfg *objectstore.BucketConfig, prefix string, report *Report) {
	if cfg == nil {
		report.Errors++
		log.Error(message.Finding{Severity: apperror.AuditError.String(), Reason: "bucket configuration unavailable"})
		return
	}

	if cfg.PublicAccessBlock == nil || !cfg.PublicAccessBlock.AllBlocked() {
		report.Errors++
		log.Error(message.Finding{
			Severity: apperror.AuditError.String(),
			Reason:   "public access block missing or not fully enabled (all four flags must be true)",
		})
	}

	if !cfg.VersioningEnabled {
		return
	}

	if !hasNoncurrentExpirationRule(cfg.LifecycleRules, prefix) {
		report.Errors++
		log.Error(message.Finding{
			Severity: apperror.AuditError.String(),
			Reason:   "no enabled lifecycle rule expires noncurrent versions for this prefix",
		})
	}

	if !hasAbortIncompleteMultipartRule(cfg.LifecycleRules) {
		report.Errors++
		log.Error(message.Finding{
			Severity: apperror.AuditError.String(),
			Reason:   "no enabled lifecycle rule aborts incomplete multipart uploads",
		})
	}
}

// hasNoncurrentExpirationRule reports whether rules contains an enabled
// rule with NoncurrentVersionExpiration.NoncurrentDays set, no
// NewerNoncurrentVersions keep-count, and a filter that is empty or a
// prefix of the configured URL's prefix.
func hasNoncurrentExpirationRule(rules []objectstore.LifecycleRule, prefix string) bool {
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		if r.NoncurrentVersionExpirationDays <= 0 {
			continue
		}
		if r.NewerNoncurrentVersions != 0 {
			continue
		}
		if r.FilterPrefix == "" || strings.HasPrefix(prefix, r.FilterPrefix) {
			return true
		}
	}
	return false
}

// hasAbortIncompleteMultipartRule reports whether rules contains an enabled
// rule with AbortIncompleteMultipartUpload.DaysAfterInitiation set.
func hasAbortIncompleteMultipartRule(rules []objectstore.LifecycleRule) bool {
	for _, r := range rules {
		if r.Enabled && r.AbortIncompleteMultipartUploadDays > 0 {
			return true
		}
	}
	return false
}
