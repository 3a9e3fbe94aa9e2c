package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	apperror "github.com/drinkcat/simple-serac/error"
	"github.com/drinkcat/simple-serac/humanize"
	"github.com/drinkcat/simple-serac/log"
	"github.com/drinkcat/simple-serac/message"
	"github.com/drinkcat/simple-serac/objectstore"
	"github.com/drinkcat/simple-serac/objectstore/s3store"
)

var s3App = &cli.App{
	Name:  "serac-s3",
	Usage: "operational helper for inspecting and poking the remote bucket directly",
	Flags: append(sharedFlags(),
		&cli.BoolFlag{Name: "list", Usage: "list current objects under the prefix"},
		&cli.BoolFlag{Name: "versions", Usage: "list current objects plus noncurrent versions"},
		&cli.BoolFlag{Name: "dump", Usage: "dump the bucket configuration"},
		&cli.StringFlag{Name: "upload", Usage: "upload every file in DIR to the prefix"},
		&cli.StringFlag{Name: "file", Usage: "download the object at KEY to stdout-adjacent temp path"},
		&cli.StringFlag{
			Name:    "class",
			Aliases: []string{"c"},
			Value:   defaultColdClass,
			Usage:   "storage class used for --upload",
		},
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Usage:   "do not upload",
		},
	),
	Before: before,
	After:  after,
	OnUsageError: func(c *cli.Context, err error, isSubcommand bool) error {
		return printUsageError("serac-s3", c, err, isSubcommand)
	},
	Action: runS3,
}

func runS3(c *cli.Context) error {
	selected := 0
	for _, name := range []string{"list", "versions", "dump"} {
		if c.Bool(name) {
			selected++
		}
	}
	if c.String("upload") != "" {
		selected++
	}
	if c.String("file") != "" {
		selected++
	}
	if selected != 1 {
		return fatal(c, &apperror.ConfigError{Reason: "exactly one of --list, --versions, --dump, --upload, --file is required"})
	}
	if c.NArg() != 1 {
		return fatal(c, &apperror.ConfigError{Reason: "expected exactly one positional s3url argument"})
	}

	url, err := parseRemoteURL(c.Args().First())
	if err != nil {
		return fatal(c, err)
	}

	// c.Context is whatever was passed to RunContext: cmd/serac-s3 wires it
	// to a SIGINT-canceled context.
	ctx := c.Context
	objects, err := s3store.New(ctx, newObjectStoreOpts(c, url, c.Bool("dry-run")))
	if err != nil {
		return fatal(c, err)
	}

	switch {
	case c.Bool("list"):
		return runList(c, ctx, objects, url)
	case c.Bool("versions"):
		return runVersions(c, ctx, objects, url)
	case c.Bool("dump"):
		return runDump(c, ctx, objects)
	case c.String("upload") != "":
		return runUpload(c, ctx, objects, url)
	case c.String("file") != "":
		return runFile(c, ctx, objects, url)
	}
	return nil
}

func runList(c *cli.Context, ctx context.Context, objects objectstore.Store, url *remoteURL) error {
	current, err := objects.ListCurrent(ctx, url.Prefix)
	if err != nil {
		return fatal(c, err)
	}
	printObjects(current)
	return nil
}

func runVersions(c *cli.Context, ctx context.Context, objects objectstore.Store, url *remoteURL) error {
	current, outdated, err := objects.ListVersions(ctx, url.Prefix)
	if err != nil {
		return fatal(c, err)
	}
	printObjects(current)
	for key, versions := range outdated {
		for _, v := range versions {
			log.Info(message.ObjectLine{
				ModTime:      "noncurrent",
				StorageClass: v.StorageClass,
				Etag:         v.ETag,
				Size:         humanize.Bytes(v.Size),
				Key:          key,
			})
		}
	}
	return nil
}

func runDump(c *cli.Context, ctx context.Context, objects objectstore.Store) error {
	cfg, err := objects.GetBucketConfig(ctx)
	if err != nil {
		return fatal(c, err)
	}
	log.Info(message.Debug{Content: fmt.Sprintf("versioning=%v encryption=%v(%s) acl_public_read=%v notifications=%v",
		cfg.VersioningEnabled, cfg.EncryptionEnabled, cfg.EncryptionSSEAlgo, cfg.ACLGrantsPublicRead, cfg.NotificationsConfigured)})
	if cfg.PublicAccessBlock == nil {
		log.Info(message.Debug{Content: "public_access_block=missing"})
	} else {
		log.Info(message.Debug{Content: fmt.Sprintf("public_access_block=%+v", *cfg.PublicAccessBlock)})
	}
	for _, r := range cfg.LifecycleRules {
		log.Info(message.Debug{Content: fmt.Sprintf("lifecycle rule %s: enabled=%v prefix=%q noncurrent_days=%d abort_multipart_days=%d",
			r.ID, r.Enabled, r.FilterPrefix, r.NoncurrentVersionExpirationDays, r.AbortIncompleteMultipartUploadDays)})
	}
	return nil
}

func runUpload(c *cli.Context, ctx context.Context, objects objectstore.Store, url *remoteURL) error {
	dir := c.String("upload")
	class := c.String("class")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fatal(c, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		select {
		case <-ctx.Done():
			return fatal(c, ctx.Err())
		default:
		}

		key := url.Prefix + name
		localPath := filepath.Join(dir, name)
		if err := objects.Upload(ctx, localPath, key, class); err != nil {
			return fatal(c, err)
		}
		log.Info(message.SyncAction{Action: "upload", Name: key})
	}
	return nil
}

func runFile(c *cli.Context, ctx context.Context, objects objectstore.Store, url *remoteURL) error {
	key := c.String("file")
	dest := filepath.Join(os.TempDir(), "serac-s3-"+filepath.Base(key))
	if err := objects.Download(ctx, url.Prefix+key, dest); err != nil {
		return fatal(c, err)
	}
	log.Info(message.SyncAction{Action: "download", Name: dest, Reason: "from " + key})
	return nil
}

func printObjects(objects map[string]objectstore.Object) {
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		obj := objects[k]
		log.Info(message.ObjectLine{
			ModTime:      "current",
			StorageClass: obj.StorageClass,
			Etag:         obj.ETag,
			Size:         strconv.FormatInt(obj.Size, 10),
			Key:          k,
		})
	}
}

// RunS3 is the serac-s3 binary's entrypoint.
func RunS3(ctx context.Context, args []string) error {
	return s3App.RunContext(ctx, args)
}
