package command

import "testing"

func TestParseRemoteURL(t *testing.T) {
	cases := []struct {
		raw     string
		bucket  string
		prefix  string
		wantErr bool
	}{
		{raw: "s3://my-bucket", bucket: "my-bucket", prefix: ""},
		{raw: "s3://my-bucket/backups", bucket: "my-bucket", prefix: "backups/"},
		{raw: "s3://my-bucket/backups/", bucket: "my-bucket", prefix: "backups/"},
		{raw: "s3://my-bucket//backups/", bucket: "my-bucket", prefix: "backups/"},
		{raw: "my-bucket", wantErr: true},
		{raw: "s3://", wantErr: true},
	}

	for _, tc := range cases {
		got, err := parseRemoteURL(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseRemoteURL(%q): expected error, got none", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseRemoteURL(%q): unexpected error: %v", tc.raw, err)
		}
		if got.Bucket != tc.bucket {
			t.Errorf("parseRemoteURL(%q).Bucket = %q, want %q", tc.raw, got.Bucket, tc.bucket)
		}
		if got.Prefix != tc.prefix {
			t.Errorf("parseRemoteURL(%q).Prefix = %q, want %q", tc.raw, got.Prefix, tc.prefix)
		}
	}
}
