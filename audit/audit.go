// Package audit implements the RemoteAuditor: a read-only, non-blocking
// check of the remote object layout's internal consistency (I1 manifest/archive
// pairing, orphan archives, storage class) and, in verify mode, the bucket's
// lifecycle/public-access policy. Archive contents are not read, so I2 is not
// checked.
package audit

import (
	"context"
	"strings"

	"github.com/hashicorp/go-multierror"

	apperror "github.com/drinkcat/simple-serac/error"
	"github.com/drinkcat/simple-serac/log"
	"github.com/drinkcat/simple-serac/message"
	"github.com/drinkcat/simple-serac/objectstore"
	"github.com/drinkcat/simple-serac/parallel"
)

// Report tallies the audit's findings. Nonzero Errors are surfaced to the
// operator but never block the subsequent backup step: audit failures are
// informational, and the operator decides.
type Report struct {
	Warnings int
	Errors   int
}

// Options configures one audit pass.
type Options struct {
	Prefix    string // configured URL's prefix, already normalized.
	ColdClass string // the operator-configured cold class; compared verbatim, no synonym guessing.
	Verify    bool
}

// Auditor enumerates the configured prefix and classifies every current
// object into the manifest set, the archive set, ignored reports, or an
// unexpected-object warning.
type Auditor struct {
	objects objectstore.Store
	opts    Options
}

func New(objects objectstore.Store, opts Options) *Auditor {
	return &Auditor{objects: objects, opts: opts}
}

// Run performs the non-verify audit (classification + I1 pairing + orphan
// archives + storage class), and, when Options.Verify is set, the noncurrent-version check and
// the bucket-policy sanity check.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	var manifests, archives map[string]objectstore.Object
	var outdated map[string][]objectstore.Object
	var bucketCfg *objectstore.BucketConfig

	if a.opts.Verify {
		// The two remote reads are independent; run them concurrently
		// rather than paying their network latency sequentially.
		mgr := parallel.New(3)
		errch := make(chan error, 3)

		mgr.Run(func() error {
			current, out, err := a.objects.ListVersions(ctx, a.opts.Prefix)
			if err != nil {
				return err
			}
			manifests, archives = a.classify(current, report)
			outdated = out
			return nil
		}, errch)

		mgr.Run(func() error {
			cfg, err := a.objects.GetBucketConfig(ctx)
			if err != nil {
				return err
			}
			bucketCfg = cfg
			return nil
		}, errch)

		mgr.Wait()
		close(errch)

		// Both legs can fail independently (e.g. a canceled context aborts
		// both the ListVersions and the GetBucketConfig read at once);
		// aggregate rather than reporting only whichever drained first.
		var aggregate *multierror.Error
		for err := range errch {
			aggregate = multierror.Append(aggregate, err)
		}
		if err := aggregate.ErrorOrNil(); err != nil {
			return nil, err
		}
	} else {
		current, err := a.objects.ListCurrent(ctx, a.opts.Prefix)
		if err != nil {
			return nil, err
		}
		manifests, archives = a.classify(current, report)
	}

	a.checkPairings(manifests, archives, report)
	a.checkStorageClass(archives, report)

	if a.opts.Verify {
		a.checkNoncurrentVersions(outdated, report)
		checkBucketPolicy(bucketCfg, a.opts.Prefix, report)
	}

	return report, nil
}

// classify splits current objects under the prefix into the manifest set J
// (db/*.json), the archive set T (data/*.tar), ignored reports, and
// anything else (a WARNING).
func (a *Auditor) classify(current map[string]objectstore.Object, report *Report) (manifests, archives map[string]objectstore.Object) {
	manifests = make(map[string]objectstore.Object)
	archives = make(map[string]objectstore.Object)

	for key, obj := range current {
		rel := strings.TrimPrefix(key, a.opts.Prefix)
		switch {
		case strings.HasPrefix(rel, "db/") && strings.HasSuffix(rel, ".json"):
			manifests[idOf(rel, "db/", ".json")] = obj
		case strings.HasPrefix(rel, "data/") && strings.HasSuffix(rel, ".tar"):
			archives[idOf(rel, "data/", ".tar")] = obj
		case strings.HasPrefix(rel, "report/") && strings.HasSuffix(rel, ".csv"):
			// acceptable, ignored.
		default:
			report.Warnings++
			finding := apperror.AuditFinding{Severity: apperror.AuditWarning, Key: key, Reason: "unexpected object under prefix"}
			log.Warning(message.Finding{Severity: finding.Severity.String(), Key: finding.Key, Reason: finding.Reason})
		}
	}
	return manifests, archives
}

func idOf(rel, dir, suffix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(rel, dir), suffix)
}

// checkPairings enforces I1 (every manifest has a paired archive, else
// ERROR) and the orphan-tar check (every archive has a paired manifest,
// else WARNING).
func (a *Auditor) checkPairings(manifests, archives map[string]objectstore.Object, report *Report) {
	for id := range manifests {
		if _, ok := archives[id]; !ok {
			report.Errors++
			log.Error(message.Finding{
				Severity: apperror.AuditError.String(),
				Key:      a.opts.Prefix + "db/" + id + ".json",
				Reason:   "no paired archive data/" + id + ".tar (violates I1)",
			})
		}
	}
	for id := range archives {
		if _, ok := manifests[id]; !ok {
			report.Warnings++
			log.Warning(message.Finding{
				Severity: apperror.AuditWarning.String(),
				Key:      a.opts.Prefix + "data/" + id + ".tar",
				Reason:   "orphan tar: no paired manifest db/" + id + ".json",
			})
		}
	}
}

// checkStorageClass warns on every archive not in the configured cold
// class.
func (a *Auditor) checkStorageClass(archives map[string]objectstore.Object, report *Report) {
	for id, obj := range archives {
		if obj.StorageClass != a.opts.ColdClass {
			report.Warnings++
			log.Warning(message.Finding{
				Severity: apperror.AuditWarning.String(),
				Key:      a.opts.Prefix + "data/" + id + ".tar",
				Reason:   "storage class " + obj.StorageClass + " does not match configured " + a.opts.ColdClass,
			})
		}
	}
}

// checkNoncurrentVersions (verify mode only) warns on every key that still
// carries noncurrent versions, which the lifecycle policy should otherwise
// be expiring.
func (a *Auditor) checkNoncurrentVersions(outdated map[string][]objectstore.Object, report *Report) {
	for key, versions := range outdated {
		if len(versions) == 0 {
			continue
		}
		report.Warnings++
		log.Warning(message.Finding{
			Severity: apperror.AuditWarning.String(),
			Key:      key,
			Reason:   "has noncurrent versions still present",
		})
	}
}
