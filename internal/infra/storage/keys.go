package storage

import (
	"fmt"

	"github.com/vietddude/syncer/internal/core/domain"
)

// Key layout, bit-exact for existing deployment data:
//
//	<kind>:<index zero-padded to 32 decimal digits>  indexed record
//	<kind>:latest                                    latest pointer, decimal
//	event:latest:<watcherName>                       scan cursor, decimal
//
// The fixed 32-digit width makes byte order equal numeric order for every
// index below 10^32; a uint64 index always fits. The latest suffix sorts
// after every digit-padded key, so index range scans never observe it.
const (
	indexWidth       = 32
	latestSuffix     = "latest"
	scanCursorPrefix = "event:latest:"
)

// IndexKey builds the key for one indexed record.
func IndexKey(kind domain.Kind, index uint64) []byte {
	return fmt.Appendf(nil, "%s:%0*d", kind, indexWidth, index)
}

// LatestKey builds the latest-pointer key for a kind.
func LatestKey(kind domain.Kind) []byte {
	return fmt.Appendf(nil, "%s:%s", kind, latestSuffix)
}

// ScanCursorKey builds the key of a named watcher's last-scanned-block
// cursor.
func ScanCursorKey(name string) []byte {
	return fmt.Appendf(nil, "%s%s", scanCursorPrefix, name)
}

// IndexKeyRange returns the [lower, upper) byte bounds covering indices
// start <= index < end of a kind.
func IndexKeyRange(kind domain.Kind, start, end uint64) (lower, upper []byte) {
	return IndexKey(kind, start), IndexKey(kind, end)
}
