package cache

import (
	"net/http"
	"time"
)

// DefaultTTL is the fallback TTL when neither the upstream nor the config
// provides one.
const DefaultTTL = 5 * time.Minute

// NewEntry builds an entry for body. The expiry comes from the Expires
// header when present and parseable, otherwise now + fallback.
func NewEntry(body []byte, header http.Header, fallback time.Duration) *Entry {
	if fallback <= 0 {
		fallback = DefaultTTL
	}
	return &Entry{
		Data:     body,
		Expires:  parseExpires(header, fallback),
		CachedAt: time.Now(),
	}
}

// parseExpires parses the Expires header.
func parseExpires(headers http.Header, fallback time.Duration) time.Time {
	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return time.Now().Add(fallback)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return time.Now().Add(fallback)
	}

	// Already expired upstream: TTL 0, Set skips it
	if expires.Before(time.Now()) {
		return time.Now()
	}

	return expires
}
