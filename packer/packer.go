// Package packer implements the main backup pipeline: diff local files
// against the BackupDatabase, stream selected files into size-bounded
// archive objects, and upload each archive+manifest pair.
package packer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"

	"github.com/drinkcat/simple-serac/backupdb"
	"github.com/drinkcat/simple-serac/digest"
	"github.com/drinkcat/simple-serac/humanize"
	"github.com/drinkcat/simple-serac/log"
	"github.com/drinkcat/simple-serac/manifest"
	"github.com/drinkcat/simple-serac/manifeststore"
	"github.com/drinkcat/simple-serac/message"
	"github.com/drinkcat/simple-serac/objectstore"
)

// defaultMinSize is MIN_SIZE from the spec: the archive batch's byte-size
// floor, not a hard lower bound on the final partial archive.
const defaultMinSize = 256 << 20

// skipBatchSize is how many unchanged-file skips accumulate since the last
// skip report before the next one is emitted, so a large unchanged tree
// doesn't run silently for minutes.
const skipBatchSize = 1000

// Options configures a Packer run.
type Options struct {
	InputRoot  string
	URLPrefix  string
	ColdClass  string
	WarmClass  string
	MinSize    int64
	DryRun     bool
	ShowBar    bool
	SessionTag string // YYYYMMDD-HHMMSS; if empty, callers should set it at construction time from the clock.
}

// Result summarizes one Run.
type Result struct {
	ArchivesWritten int
	FilesWritten    int
	FilesSkipped    int64
	BytesWritten    int64
}

// Packer drives the walk -> digest -> dedup -> pack -> upload pipeline. All
// session state (the archive-id counter, the session prefix) is confined to
// the instance; there is no package-level mutable state.
type Packer struct {
	objects   objectstore.Store
	manifests *manifeststore.Store
	db        *backupdb.Database
	opts      Options
	ids       *idGenerator
}

// New creates a Packer for one backup run.
func New(objects objectstore.Store, manifests *manifeststore.Store, db *backupdb.Database, opts Options) *Packer {
	if opts.MinSize <= 0 {
		opts.MinSize = defaultMinSize
	}
	return &Packer{
		objects:   objects,
		manifests: manifests,
		db:        db,
		opts:      opts,
		ids:       newIDGenerator(opts.SessionTag),
	}
}

// Run packs and uploads names (already sorted, root-relative, as produced by
// walker.Walk) and returns the counts of what happened.
func (p *Packer) Run(ctx context.Context, names []string) (*Result, error) {
	result := &Result{}

	var bar *pb.ProgressBar
	if p.opts.ShowBar && len(names) > 0 {
		bar = pb.StartNew(len(names))
		defer bar.Finish()
	}

	m := manifest.New()
	var accumulated int64
	var skipRun int64

	flushSkipRun := func() {
		if skipRun == 0 {
			return
		}
		log.Info(message.SkipBatch{Count: skipRun, Total: result.FilesSkipped})
		skipRun = 0
	}

	for _, name := range names {
		// Checked once per file rather than inside capture/digest: those
		// are local, CPU-bound stdlib calls with no cancelable I/O of
		// their own, so per-file is the finest grain a signal can abort
		// at without threading ctx into every stdlib read.
		select {
		case <-ctx.Done():
			flushSkipRun()
			return result, ctx.Err()
		default:
		}

		if bar != nil {
			bar.Increment()
		}

		fe, err := capture(p.opts.InputRoot, name)
		if err != nil {
			return nil, err
		}

		if p.db.HasSha(name, fe.Sha) {
			result.FilesSkipped++
			skipRun++
			if skipRun >= skipBatchSize {
				flushSkipRun()
			}
			continue
		}

		m.Add(fe)
		accumulated += fe.Size

		if accumulated > p.opts.MinSize {
			if err := p.flush(ctx, m, result); err != nil {
				return nil, err
			}
			m = manifest.New()
			accumulated = 0
		}
	}

	flushSkipRun()

	if len(m.Data) > 0 {
		if err := p.flush(ctx, m, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// flush allocates the next archive id, writes a tar of m's entries to a
// scratch file, uploads the tar (cold class) then the manifest (warm
// class). Tar-then-manifest ordering is deliberate: a tar without a
// manifest is a detectable audit warning, a manifest without a tar is a
// detectable audit error, and the stronger (both-or-neither) condition
// can't be achieved without a cross-object transaction the object store
// doesn't offer.
func (p *Packer) flush(ctx context.Context, m *manifest.Manifest, result *Result) error {
	id := p.ids.Next()

	tmpDir, err := os.MkdirTemp("", "serac-archive-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	tarPath := filepath.Join(tmpDir, id+".tar")
	if err := writeArchive(tarPath, p.opts.InputRoot, m.Data); err != nil {
		return err
	}

	tarKey := p.opts.URLPrefix + manifest.TarKey(id)
	if err := p.objects.Upload(ctx, tarPath, tarKey, p.opts.ColdClass); err != nil {
		return fmt.Errorf("upload archive %s: %w", tarKey, err)
	}

	if err := p.manifests.Put(ctx, id, m, p.opts.WarmClass); err != nil {
		return fmt.Errorf("upload manifest for archive %s (archive already uploaded, remote is I1-inconsistent until retried): %w", id, err)
	}

	var totalBytes int64
	for _, fe := range m.Data {
		totalBytes += fe.Size
	}
	result.ArchivesWritten++
	result.FilesWritten += len(m.Data)
	result.BytesWritten += totalBytes

	log.Info(message.ArchiveSummary{
		ArchiveID:   id,
		Files:       len(m.Data),
		Bytes:       totalBytes,
		HumanBytes:  humanize.Bytes(totalBytes),
		TarKey:      tarKey,
		ManifestKey: p.opts.URLPrefix + manifest.Key(id),
	})

	return nil
}

// capture stats and digests one file relative to root, producing the
// FileEntry the spec's FileEntry.capture step names.
func capture(root, name string) (manifest.FileEntry, error) {
	fullPath := filepath.Join(root, filepath.FromSlash(name))

	fi, err := os.Lstat(fullPath)
	if err != nil {
		return manifest.FileEntry{}, err
	}

	sha, err := digest.File(fullPath)
	if err != nil {
		return manifest.FileEntry{}, err
	}

	size := fi.Size()
	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(fullPath)
		if err != nil {
			return manifest.FileEntry{}, err
		}
		size = int64(len(target))
	}

	return manifest.FileEntry{
		Name:     name,
		Size:     size,
		Modified: manifest.NewTimestamp(fi.ModTime()),
		Sha:      sha,
	}, nil
}
