package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/drinkcat/simple-serac/audit"
	"github.com/drinkcat/simple-serac/backupdb"
	apperror "github.com/drinkcat/simple-serac/error"
	"github.com/drinkcat/simple-serac/log"
	"github.com/drinkcat/simple-serac/manifeststore"
	"github.com/drinkcat/simple-serac/message"
	"github.com/drinkcat/simple-serac/objectstore/s3store"
	"github.com/drinkcat/simple-serac/packer"
	"github.com/drinkcat/simple-serac/report"
	"github.com/drinkcat/simple-serac/walker"
)

const defaultColdClass = "DEEP_ARCHIVE"
const warmClass = "STANDARD"

var backupApp = &cli.App{
	Name:  "serac",
	Usage: "incremental, content-addressed backup into S3-class tiered storage",
	Flags: append(sharedFlags(),
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "input directory; if omitted, only audit/sync is performed",
		},
		&cli.StringFlag{
			Name:    "class",
			Aliases: []string{"c"},
			Value:   defaultColdClass,
			Usage:   "cold storage class for archives",
		},
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Usage:   "do not upload",
		},
		&cli.BoolFlag{
			Name:    "verify",
			Aliases: []string{"v"},
			Usage:   "run full audit and bucket-policy check",
		},
	),
	Before: before,
	After:  after,
	OnUsageError: func(c *cli.Context, err error, isSubcommand bool) error {
		return printUsageError("serac", c, err, isSubcommand)
	},
	Action: runBackup,
}

func runBackup(c *cli.Context) error {
	if c.NArg() != 1 {
		return fatal(c, &apperror.ConfigError{Reason: "expected exactly one positional s3url argument"})
	}
	url, err := parseRemoteURL(c.Args().First())
	if err != nil {
		return fatal(c, err)
	}

	// c.Context is whatever was passed to RunContext: cmd/serac wires it to
	// a SIGINT-canceled context so a signal aborts the run between files
	// instead of mid-write.
	ctx := c.Context
	dryRun := c.Bool("dry-run")
	coldClass := c.String("class")

	objects, err := s3store.New(ctx, newObjectStoreOpts(c, url, dryRun))
	if err != nil {
		return fatal(c, err)
	}

	cacheHome, err := os.UserCacheDir()
	if err != nil {
		return fatal(c, &apperror.ConfigError{Reason: "cannot determine cache directory: " + err.Error()})
	}
	cacheDir := manifeststore.CachePath(cacheHome, url.Raw)
	manifests := manifeststore.New(objects, cacheDir, url.Prefix)

	log.Info(message.Info{Operation: "sync", Target: url.Raw})
	if err := manifests.Sync(ctx); err != nil {
		return fatal(c, err)
	}

	loaded, err := manifests.LoadAll()
	if err != nil {
		return fatal(c, err)
	}
	db := backupdb.Build(loaded)

	if c.Bool("verify") {
		if _, err := objects.ListCurrent(ctx, url.Prefix); err != nil {
			return fatal(c, err)
		}
	}

	a := audit.New(objects, audit.Options{Prefix: url.Prefix, ColdClass: coldClass, Verify: c.Bool("verify")})
	auditReport, err := a.Run(ctx)
	if err != nil {
		return fatal(c, err)
	}
	log.Info(message.Info{Operation: fmt.Sprintf("audit complete: %d warning(s), %d error(s)", auditReport.Warnings, auditReport.Errors), Target: url.Raw})

	input := c.String("input")
	if input == "" {
		return nil
	}

	names, err := walker.Walk(input)
	if err != nil {
		return fatal(c, err)
	}

	sessionTag := time.Now().UTC().Format("20060102-150405")
	p := packer.New(objects, manifests, db, packer.Options{
		InputRoot:  input,
		URLPrefix:  url.Prefix,
		ColdClass:  coldClass,
		WarmClass:  warmClass,
		DryRun:     dryRun,
		ShowBar:    !c.Bool("json"),
		SessionTag: sessionTag,
	})

	result, err := p.Run(ctx, names)
	if err != nil {
		return fatal(c, err)
	}
	log.Info(message.Info{
		Operation: fmt.Sprintf("backup complete: %d archive(s), %d file(s), %d skipped", result.ArchivesWritten, result.FilesWritten, result.FilesSkipped),
		Target:    url.Raw,
	})

	if !dryRun {
		refreshed, err := manifests.LoadAll()
		if err != nil {
			return fatal(c, err)
		}
		finalDB := backupdb.Build(refreshed)
		if err := report.Write(ctx, objects, finalDB, url.Prefix, sessionTag, warmClass); err != nil {
			return fatal(c, err)
		}
	}

	return nil
}

// RunBackup is the serac binary's entrypoint.
func RunBackup(ctx context.Context, args []string) error {
	return backupApp.RunContext(ctx, args)
}
