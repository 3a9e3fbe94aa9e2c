// Package humanize renders byte counts the way operators read them in logs
// and CSV reports.
package humanize

import (
	"fmt"
	"strconv"
)

var divisors = [...]struct {
	suffix string
	div    int64
}{
	{"K", 1 << 10},
	{"M", 1 << 20},
	{"G", 1 << 30},
	{"T", 1 << 40},
}

// Bytes renders b using binary suffixes (K=1024, M=1024K, ...), falling back
// to a plain decimal string for values under 1K.
func Bytes(b int64) string {
	var suffix string
	var div int64
	for _, f := range divisors {
		if b >= f.div {
			suffix = f.suffix
			div = f.div
		}
	}
	if suffix == "" {
		return strconv.FormatInt(b, 10)
	}
	return fmt.Sprintf("%.1f%s", float64(b)/float64(div), suffix)
}
