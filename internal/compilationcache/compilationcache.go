package compilationcache

import (
	"crypto/sha256"
	"io"
)

// Cache is a content-addressed byte store keyed by a SHA-256 hash (see
// Key). Compile does not consult it: no pass in this module reads from
// or writes to a Cache.
//
// Implementations must be Goroutine-safe.
//
// See NewFileCache for the example implementation.
type Cache interface {
	// Get is called when the runtime is trying to get the cached content.
	// Implementations are supposed to return `content` which can be used to
	// read the content passed by Add as-is. Returns ok=true if the
	// content was found on the cache. That means the content is not empty
	// if and only if ok=true. In the case of not-found, this should return
	// ok=false with err=nil. content.Close() is automatically called by
	// the caller of this Get.
	//
	// Note: the returned content skips the validation a module goes
	// through when compiled from scratch. An implementation caching
	// content signed or otherwise tamper-checked at Add time should
	// re-verify it here before returning ok=true.
	Get(key Key) (content io.ReadCloser, ok bool, err error)
	// Add stores content under key, un-modified, for a later Get to
	// return as-is.
	Add(key Key, content io.Reader) (err error)
	// Delete purges the entry at key, called when that entry is no
	// longer usable — for instance, after a change to how Key itself is
	// computed invalidates every previously cached entry.
	Delete(key Key) (err error)
}

// Key represents the 256-bit unique identifier assigned to each cache content.
type Key = [sha256.Size]byte
