// Package splitter breaks wire protocol lines into fields, either a fixed
// count (for strict message parsing) or a soft, unbounded count.
package splitter

import (
	"fmt"
	"strings"
)

// Split splits s on the first n-1 occurrences of sep, returning exactly n
// fields. The final field retains any remaining occurrences of sep
// unsplit. It fails if s contains fewer than n-1 occurrences of sep.
func Split(s, sep string, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("splitter: n must be positive, got %d", n)
	}
	if n == 1 {
		return []string{s}, nil
	}

	fields := strings.SplitN(s, sep, n)
	if len(fields) < n {
		return nil, fmt.Errorf("splitter: not enough fields: want %d, got %d", n, len(fields))
	}
	return fields, nil
}

// SplitSoft splits s on every occurrence of sep, or on the first n-1
// occurrences when n is given, returning whatever fields it finds without
// failing on a short count.
func SplitSoft(s, sep string, n ...int) []string {
	if len(n) > 0 {
		return strings.SplitN(s, sep, n[0])
	}
	return strings.Split(s, sep)
}
