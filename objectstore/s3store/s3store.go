// Package s3store is the concrete objectstore.Store adapter for S3-class
// storage, built on aws-sdk-go.
package s3store

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	apperror "github.com/drinkcat/simple-serac/error"
	"github.com/drinkcat/simple-serac/objectstore"
)

// Options configures a Store. Mirrors the command-line surface the CLI
// layer exposes for endpoint/credentials overrides.
type Options struct {
	Bucket         string
	Region         string
	Endpoint       string
	Profile        string
	CredentialFile string
	NoSignRequest  bool
	NoVerifySSL    bool
	MaxRetries     int
	DryRun         bool
}

var insecureHTTPClient = &http.Client{
	Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
}

// Store is the S3-backed objectstore.Store implementation.
type Store struct {
	api        s3iface.S3API
	downloader s3manageriface.DownloaderAPI
	uploader   s3manageriface.UploaderAPI

	bucket string
	dryRun bool

	mu      sync.Mutex
	current map[string]objectstore.Object
	loaded  bool
}

var _ objectstore.Store = (*Store)(nil)

// New creates a session-backed Store. Session construction follows the
// teacher's pattern of building one aws.Config from Options and deriving
// the S3 client, downloader, and uploader from a single session.
func New(ctx context.Context, opts Options) (*Store, error) {
	sess, err := newSession(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		api:        s3.New(sess),
		downloader: s3manager.NewDownloader(sess),
		uploader:   s3manager.NewUploader(sess),
		bucket:     opts.Bucket,
		dryRun:     opts.DryRun,
	}, nil
}

func newSession(opts Options) (*session.Session, error) {
	cfg := aws.NewConfig()

	if opts.NoSignRequest {
		cfg = cfg.WithCredentials(credentials.AnonymousCredentials)
	} else if opts.CredentialFile != "" || opts.Profile != "" {
		cfg = cfg.WithCredentials(credentials.NewSharedCredentials(opts.CredentialFile, opts.Profile))
	}

	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint).WithS3ForcePathStyle(true)
	}
	if opts.Region != "" {
		cfg = cfg.WithRegion(opts.Region)
	}
	if opts.NoVerifySSL {
		cfg = cfg.WithHTTPClient(insecureHTTPClient)
	}

	cfg.Retryer = client.DefaultRetryer{NumMaxRetries: maxRetries(opts.MaxRetries)}

	return session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
}

func maxRetries(n int) int {
	if n <= 0 {
		return 10
	}
	return n
}

// ListCurrent paginates ListObjectsV2 under prefix and also primes the
// in-memory cache Upload consults to refuse overwriting an existing key.
func (s *Store) ListCurrent(ctx context.Context, prefix string) (map[string]objectstore.Object, error) {
	out := make(map[string]objectstore.Object)

	err := s.api.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, c := range page.Contents {
			class := aws.StringValue(c.StorageClass)
			if class == "" {
				class = s3.StorageClassStandard
			}
			out[aws.StringValue(c.Key)] = objectstore.Object{
				Key:          aws.StringValue(c.Key),
				Size:         aws.Int64Value(c.Size),
				StorageClass: class,
				ETag:         strings.Trim(aws.StringValue(c.ETag), `"`),
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = out
	s.loaded = true
	s.mu.Unlock()

	return out, nil
}

// ListVersions paginates ListObjectVersions, splitting the stream into the
// current object per key and every noncurrent version, most-recent-first.
func (s *Store) ListVersions(ctx context.Context, prefix string) (map[string]objectstore.Object, map[string][]objectstore.Object, error) {
	current := make(map[string]objectstore.Object)
	outdated := make(map[string][]objectstore.Object)

	err := s.api.ListObjectVersionsPagesWithContext(ctx, &s3.ListObjectVersionsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectVersionsOutput, lastPage bool) bool {
		for _, v := range page.Versions {
			class := aws.StringValue(v.StorageClass)
			if class == "" {
				class = s3.StorageClassStandard
			}
			obj := objectstore.Object{
				Key:          aws.StringValue(v.Key),
				Size:         aws.Int64Value(v.Size),
				StorageClass: class,
				ETag:         strings.Trim(aws.StringValue(v.ETag), `"`),
			}
			if aws.BoolValue(v.IsLatest) {
				current[obj.Key] = obj
			} else {
				outdated[obj.Key] = append(outdated[obj.Key], obj)
			}
		}
		return true
	})
	if err != nil {
		if errHasCode(err, "NotImplemented") || errHasCode(err, s3.ErrCodeNoSuchBucket) {
			return nil, nil, &apperror.ConfigError{Reason: "bucket does not support versioned listing: " + err.Error()}
		}
		return nil, nil, err
	}

	return current, outdated, nil
}

// Download streams key to a temp file alongside localPath, then renames it
// into place, so a failed transfer never leaves a partial file at localPath.
func (s *Store) Download(ctx context.Context, key, localPath string) error {
	tmp, err := os.CreateTemp(dirOf(localPath), ".serac-download-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = s.downloader.DownloadWithContext(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmpName)
		return err
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return closeErr
	}

	return os.Rename(tmpName, localPath)
}

// Upload refuses to clobber an existing current key. It consults the
// in-memory cache populated by ListCurrent rather than issuing a HeadObject,
// per the spec's "the in-memory listing cache is updated on success" design.
func (s *Store) Upload(ctx context.Context, localPath, key, class string) error {
	s.mu.Lock()
	if s.loaded {
		if _, exists := s.current[key]; exists {
			s.mu.Unlock()
			return &apperror.AlreadyExists{Key: key}
		}
	}
	s.mu.Unlock()

	if s.dryRun {
		return nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         f,
		StorageClass: aws.String(class),
		ContentType:  aws.String("application/octet-stream"),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.current == nil {
		s.current = make(map[string]objectstore.Object)
	}
	s.current[key] = objectstore.Object{Key: key, Size: fi.Size(), StorageClass: class}
	s.loaded = true
	s.mu.Unlock()

	return nil
}

// GetBucketConfig fetches versioning, lifecycle, public-access-block,
// encryption, ACL, and notification configuration. Per-call errors that
// indicate "not configured" (NoSuchLifecycleConfiguration,
// NoSuchPublicAccessBlockConfiguration, ServerSideEncryptionConfigurationNotFoundError)
// are treated as an absent configuration rather than a transport failure,
// since the bucket-policy checker needs to distinguish "empty" from
// "unreachable".
func (s *Store) GetBucketConfig(ctx context.Context) (*objectstore.BucketConfig, error) {
	cfg := &objectstore.BucketConfig{}

	v, err := s.api.GetBucketVersioningWithContext(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return nil, err
	}
	cfg.VersioningEnabled = aws.StringValue(v.Status) == s3.BucketVersioningStatusEnabled

	lc, err := s.api.GetBucketLifecycleConfigurationWithContext(ctx, &s3.GetBucketLifecycleConfigurationInput{Bucket: aws.String(s.bucket)})
	if err != nil && !errHasCode(err, "NoSuchLifecycleConfiguration") {
		return nil, err
	}
	if lc != nil {
		for _, r := range lc.Rules {
			rule := objectstore.LifecycleRule{
				ID:      aws.StringValue(r.ID),
				Enabled: aws.StringValue(r.Status) == s3.ExpirationStatusEnabled,
			}
			if r.Filter != nil && r.Filter.Prefix != nil {
				rule.FilterPrefix = aws.StringValue(r.Filter.Prefix)
			} else if r.Prefix != nil {
				rule.FilterPrefix = aws.StringValue(r.Prefix)
			}
			if r.NoncurrentVersionExpiration != nil {
				rule.NoncurrentVersionExpirationDays = int(aws.Int64Value(r.NoncurrentVersionExpiration.NoncurrentDays))
				rule.NewerNoncurrentVersions = int(aws.Int64Value(r.NoncurrentVersionExpiration.NewerNoncurrentVersions))
			}
			if r.AbortIncompleteMultipartUpload != nil {
				rule.AbortIncompleteMultipartUploadDays = int(aws.Int64Value(r.AbortIncompleteMultipartUpload.DaysAfterInitiation))
			}
			cfg.LifecycleRules = append(cfg.LifecycleRules, rule)
		}
	}

	pab, err := s.api.GetPublicAccessBlockWithContext(ctx, &s3.GetPublicAccessBlockInput{Bucket: aws.String(s.bucket)})
	if err != nil && !errHasCode(err, "NoSuchPublicAccessBlockConfiguration") {
		return nil, err
	}
	if pab != nil && pab.PublicAccessBlockConfiguration != nil {
		c := pab.PublicAccessBlockConfiguration
		cfg.PublicAccessBlock = &objectstore.PublicAccessBlock{
			BlockPublicAcls:       aws.BoolValue(c.BlockPublicAcls),
			IgnorePublicAcls:      aws.BoolValue(c.IgnorePublicAcls),
			BlockPublicPolicy:     aws.BoolValue(c.BlockPublicPolicy),
			RestrictPublicBuckets: aws.BoolValue(c.RestrictPublicBuckets),
		}
	}

	enc, err := s.api.GetBucketEncryptionWithContext(ctx, &s3.GetBucketEncryptionInput{Bucket: aws.String(s.bucket)})
	if err != nil && !errHasCode(err, "ServerSideEncryptionConfigurationNotFoundError") {
		return nil, err
	}
	if enc != nil && enc.ServerSideEncryptionConfiguration != nil && len(enc.ServerSideEncryptionConfiguration.Rules) > 0 {
		cfg.EncryptionEnabled = true
		if d := enc.ServerSideEncryptionConfiguration.Rules[0].ApplyServerSideEncryptionByDefault; d != nil {
			cfg.EncryptionSSEAlgo = aws.StringValue(d.SSEAlgorithm)
		}
	}

	acl, err := s.api.GetBucketAclWithContext(ctx, &s3.GetBucketAclInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return nil, err
	}
	for _, g := range acl.Grants {
		if g.Grantee != nil && strings.Contains(aws.StringValue(g.Grantee.URI), "AllUsers") {
			cfg.ACLGrantsPublicRead = true
		}
	}

	notif, err := s.api.GetBucketNotificationConfigurationWithContext(ctx, &s3.GetBucketNotificationConfigurationRequest{Bucket: aws.String(s.bucket)})
	if err != nil {
		return nil, err
	}
	cfg.NotificationsConfigured = len(notif.TopicConfigurations) > 0 ||
		len(notif.QueueConfigurations) > 0 ||
		len(notif.LambdaFunctionConfigurations) > 0

	return cfg, nil
}

func errHasCode(err error, code string) bool {
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == code
	}
	return false
}

func dirOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "."
	}
	return path[:i]
}
