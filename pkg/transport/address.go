package transport

import (
	"fmt"
	"regexp"
	"strings"
)

var decimalAddr = regexp.MustCompile(`^[0-9]+$`)

// ParseAddr resolves an address spec into a Go net dial network/address
// pair, per spec §4.5:
//  1. a pure decimal integer dials TCP to localhost:<n>.
//  2. a string containing ':' dials TCP to host:port as given.
//  3. a string containing '/' dials a Unix-domain stream socket at that path.
//  4. anything else is rejected.
func ParseAddr(spec string) (network, address string, err error) {
	switch {
	case decimalAddr.MatchString(spec):
		return "tcp", fmt.Sprintf("localhost:%s", spec), nil
	case strings.Contains(spec, ":"):
		return "tcp", spec, nil
	case strings.Contains(spec, "/"):
		return "unix", spec, nil
	default:
		return "", "", fmt.Errorf("transport: address spec %q is not a port, host:port, or socket path", spec)
	}
}
