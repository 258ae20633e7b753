package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const referenceSuffixWidth = 5

// ReferencePrefix maps a transaction type to its reference number prefix.
func ReferencePrefix(t TxType) string {
	switch t {
	case TxInbound:
		return "IB-"
	case TxOutbound:
		return "OB-"
	default:
		return "ADJ-"
	}
}

// FormatReference renders a sequential reference number, zero-padded to five
// digits: IB-00001, OB-00042.
func FormatReference(prefix string, suffix int) string {
	return fmt.Sprintf("%s%0*d", prefix, referenceSuffixWidth, suffix)
}

// ParseReferenceSuffix extracts the trailing numeric suffix of a reference
// number. References without a numeric tail yield zero.
func ParseReferenceSuffix(ref string) int {
	i := len(ref)
	for i > 0 && ref[i-1] >= '0' && ref[i-1] <= '9' {
		i--
	}
	if i == len(ref) {
		return 0
	}
	n, err := strconv.Atoi(ref[i:])
	if err != nil {
		return 0
	}
	return n
}

// CountReference builds the timestamp-shaped reference used by adjustments
// generated from a physical count. Distinct from the sequential format on
// purpose; uniqueness comes from the timestamp plus the store's unique index.
func CountReference(at time.Time) string {
	return "ADJ-" + at.UTC().Format("20060102150405")
}

// BumpReference appends or increments a collision counter on a reference,
// used when a timestamp-shaped reference collides: ADJ-20240101120000,
// ADJ-20240101120000-2, ADJ-20240101120000-3.
func BumpReference(ref string) string {
	if idx := strings.LastIndex(ref, "-"); idx > 0 {
		if n, err := strconv.Atoi(ref[idx+1:]); err == nil && len(ref[idx+1:]) < referenceSuffixWidth {
			return fmt.Sprintf("%s-%d", ref[:idx], n+1)
		}
	}
	return ref + "-2"
}
