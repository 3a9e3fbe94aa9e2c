package manifest

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	apperror "github.com/drinkcat/simple-serac/error"
	"gotest.tools/v3/assert"
)

func TestBytesFieldOrderAndIndent(t *testing.T) {
	m := New()
	m.Add(FileEntry{
		Name:     "a.txt",
		Size:     10,
		Modified: NewTimestamp(time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)),
		Sha:      "deadbeef",
	})

	b, err := m.Bytes()
	assert.NilError(t, err)

	want := `{
    "version": 1,
    "data": [
        {
            "name": "a.txt",
            "size": 10,
            "modified": "2024-01-02T15:04:05Z",
            "sha": "deadbeef"
        }
    ]
}`
	assert.Equal(t, string(b), want)
}

func TestParseRoundTrip(t *testing.T) {
	m := New()
	m.Add(FileEntry{Name: "a.txt", Size: 1, Sha: "aa"})
	b, err := m.Bytes()
	assert.NilError(t, err)

	got, err := Parse("20240102-150405-000000", b)
	assert.NilError(t, err)
	assert.Equal(t, len(got.Data), 1)
	assert.Equal(t, got.Data[0].ManifestID, "20240102-150405-000000")
}

func TestParseRejectsWrongVersion(t *testing.T) {
	_, err := Parse("id", []byte(`{"version":2,"data":[]}`))
	assert.ErrorType(t, err, func(err error) bool {
		_, ok := err.(*apperror.IntegrityError)
		return ok
	})
}

func TestParseRoundTripPreservesEntryFields(t *testing.T) {
	want := New()
	want.Add(FileEntry{Name: "a.txt", Size: 7, Sha: "aa", Modified: NewTimestamp(time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC))})
	want.Add(FileEntry{Name: "b.txt", Size: 9, Sha: "bb", Modified: NewTimestamp(time.Date(2024, 3, 5, 5, 6, 7, 0, time.UTC))})

	b, err := want.Bytes()
	assert.NilError(t, err)

	got, err := Parse("20240304-050607-000000", b)
	assert.NilError(t, err)

	// ManifestID is populated by Parse and absent from want, so it's excluded
	// from the comparison rather than threaded through the fixture. isoTime
	// wraps time.Time's unexported fields, so it needs its own comparer
	// rather than field-by-field reflection.
	diff := cmp.Diff(want.Data, got.Data,
		cmpopts.IgnoreFields(FileEntry{}, "ManifestID"),
		cmp.Comparer(func(a, b isoTime) bool { return time.Time(a).Equal(time.Time(b)) }),
	)
	if diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsDuplicateName(t *testing.T) {
	raw := `{"version":1,"data":[
		{"name":"a.txt","size":1,"modified":"2024-01-02T15:04:05Z","sha":"aa"},
		{"name":"a.txt","size":2,"modified":"2024-01-02T15:04:05Z","sha":"bb"}
	]}`
	_, err := Parse("id", []byte(raw))
	assert.ErrorType(t, err, func(err error) bool {
		_, ok := err.(*apperror.IntegrityError)
		return ok
	})
}
