package command

import (
	"fmt"
	"strings"

	apperror "github.com/drinkcat/simple-serac/error"
)

// remoteURL is a parsed scheme://bucket[/prefix] s3url positional argument.
type remoteURL struct {
	Raw    string
	Scheme string
	Bucket string
	Prefix string
}

// parseRemoteURL parses raw into its bucket and prefix, normalizing the
// prefix per the spec: strip any leading slash, enforce exactly one
// trailing slash if the prefix is non-empty.
func parseRemoteURL(raw string) (*remoteURL, error) {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return nil, &apperror.ConfigError{Reason: fmt.Sprintf("malformed s3 url %q: missing scheme://", raw)}
	}
	scheme := raw[:idx]
	rest := raw[idx+3:]
	if rest == "" {
		return nil, &apperror.ConfigError{Reason: fmt.Sprintf("malformed s3 url %q: missing bucket", raw)}
	}

	parts := strings.SplitN(rest, "/", 2)
	bucket := parts[0]
	if bucket == "" {
		return nil, &apperror.ConfigError{Reason: fmt.Sprintf("malformed s3 url %q: missing bucket", raw)}
	}

	prefix := ""
	if len(parts) == 2 {
		prefix = parts[1]
	}
	prefix = strings.TrimRight(strings.TrimLeft(prefix, "/"), "/")
	if prefix != "" {
		prefix += "/"
	}

	return &remoteURL{Raw: raw, Scheme: scheme, Bucket: bucket, Prefix: prefix}, nil
}
