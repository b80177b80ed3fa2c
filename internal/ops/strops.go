package ops

import (
	"strings"

	"github.com/localipc/shmrpc/internal/wire"
)

// ValidateStringArgs checks the length bounds spec.md §4.3 requires of
// every string operand, independent of which command uses them.
func ValidateStringArgs(s1, s2 string) wire.Status {
	if len(s1) < 1 || len(s1) > wire.MaxStringLen {
		return wire.StatusStrTooLong
	}
	if len(s2) < 1 || len(s2) > wire.MaxStringLen {
		return wire.StatusStrTooLong
	}
	return wire.StatusOK
}

// Concat implements the CONCAT rule: s1+s2 must fit in MaxConcatLen-1
// bytes, else STR_TOO_LONG.
func Concat(s1, s2 string) (result string, status wire.Status) {
	if st := ValidateStringArgs(s1, s2); st != wire.StatusOK {
		return "", st
	}
	if len(s1)+len(s2) > wire.MaxConcatLen-1 {
		return "", wire.StatusStrTooLong
	}
	return s1 + s2, wire.StatusOK
}

// Search finds the first 0-indexed occurrence of needle in haystack.
func Search(haystack, needle string) (position int32, status wire.Status) {
	if st := ValidateStringArgs(haystack, needle); st != wire.StatusOK {
		return -1, st
	}
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return -1, wire.StatusNotFound
	}
	return int32(idx), wire.StatusOK
}
