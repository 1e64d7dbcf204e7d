// Handles caching of downloaded assets, validated by ETag
package cache

import (
	"errors"
	"net/http"
)

const (
	// IfNoneMatchHeader is the conditional request header sent for cached keys
	IfNoneMatchHeader = "If-None-Match"
	// etagHeader is matched case-sensitively against response header keys
	etagHeader = "Etag"
)

var (
	ErrCachedItemNotFound = errors.New("the requested item was not found in the cache")
	ErrUnableToStore      = errors.New("the downloaded item could not be stored in the cache")
)

// Provider is the cache consulted by conditional downloads.
// The cache never serves an item without asking the server first: callers send
// HeaderValues with every request and use CachedItem only after a 304.
type Provider interface {
	// returns the conditional request headers to send for key
	HeaderValues(key string) map[string]string
	// returns the local path of the item stored for key, or ErrCachedItemNotFound
	CachedItem(key string) (string, error)
	// takes ownership of downloadedFile and associates it with key and the
	// response's ETag. Fails with ErrUnableToStore when headers carry no ETag
	Store(downloadedFile, key string, headers http.Header) (string, error)
	// removes every stored item
	Clear() error
}

// Entry is the persisted index value for a key
type Entry struct {
	Filename string  `json:"filename"`
	ETag     *string `json:"etag"`
}

func headerValues(etag *string) map[string]string {
	value := ""
	if etag != nil {
		value = *etag
	}
	return map[string]string{IfNoneMatchHeader: value}
}

// etagFrom looks the header up by exact key, without canonicalization
func etagFrom(headers http.Header) (string, bool) {
	values, ok := headers[etagHeader]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
