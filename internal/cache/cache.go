package cache

import (
	"crypto/sha256"
	"fmt"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

type Cache interface {
	Get(key []byte) ([]byte, bool)
	Set(key, value []byte) bool
	Clear()
}

var _ Cache = (*ResponseCache)(nil)

// ResponseCache keeps rendered responses in a fixed size freecache arena.
// Entries expire after ttlSecs; 0 keeps them until evicted.
type ResponseCache struct {
	mainCache *freecache.Cache
	ttlSecs   int
}

func NewResponseCache(sizeBytes, ttlSecs int) *ResponseCache {
	return &ResponseCache{
		mainCache: freecache.NewCache(sizeBytes),
		ttlSecs:   ttlSecs,
	}
}

func (rc *ResponseCache) Get(key []byte) ([]byte, bool) {
	value, err := rc.mainCache.Get(key)
	if err != nil {
		return nil, false
	}
	return value, true
}

func (rc *ResponseCache) Set(key, value []byte) bool {
	if err := rc.mainCache.Set(key, value, rc.ttlSecs); err != nil {
		log.Debugf("response cache set: %s", err)
		return false
	}
	return true
}

func (rc *ResponseCache) Clear() {
	rc.mainCache.Clear()
}

func (rc *ResponseCache) EntryCount() int64 {
	return rc.mainCache.EntryCount()
}

// Key hashes parts into a cache key. Each part is length prefixed so
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		_, _ = fmt.Fprintf(h, "%d:", len(p))
		_, _ = h.Write(p)
	}
	return h.Sum(nil)
}
