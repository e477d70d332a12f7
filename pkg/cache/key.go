package cache

import (
	"fmt"
	"strings"
)

// Key identifies a cached range page.
type Key struct {
	// Endpoint is the upstream host, path and fixed query
	// (e.g. "api.example.com/level2" or "api.example.com/level2?token=abc").
	Endpoint string

	// Start and End are the half-open range bounds sent as query parameters.
	Start int64
	End   int64
}

// String generates a deterministic cache key string.
// Format: scan:endpoint:start=S:end=E
//
// Example:
//
//	scan:api.example.com/level2:start=0:end=1000
func (k Key) String() string {
	parts := []string{"scan"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	parts = append(parts,
		fmt.Sprintf("start=%d", k.Start),
		fmt.Sprintf("end=%d", k.End),
	)

	return strings.Join(parts, ":")
}
