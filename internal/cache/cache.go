package cache

import (
	"sync"
	"time"
)

// Store is a size-bounded in-memory cache of logo images with per-entry expiry.
type Store struct {
	mu          sync.Mutex
	entries     map[string]*Entry
	order       []string
	size        int64
	maxSize     int64
	ttl         time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

// NewStore creates a Store. Non-positive arguments select the defaults.
func NewStore(ttl time.Duration, maxSize int64) *Store {
	if ttl <= 0 {
		ttl = DefaultCacheDuration
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxCacheSize
	}
	return &Store{
		entries: make(map[string]*Entry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Add stores an object, compressing it when that makes it smaller.
// Objects larger than the whole cache are ignored.
func (s *Store) Add(cacheKey string, data []byte, contentType string, size int64, lastModified time.Time, etag string) {
	if int64(len(data)) > s.maxSize {
		return
	}

	entry := &Entry{
		Data:         data,
		ContentType:  contentType,
		Size:         int64(len(data)),
		LastModified: lastModified,
		ETag:         etag,
	}
	if size > 0 {
		entry.Size = size
	}
	if ShouldCompress(contentType, entry.Size) {
		if compressed, err := CompressData(data); err == nil && int64(len(compressed)) < entry.Size {
			entry.Data = nil
			entry.CompressedData = compressed
			entry.CompressedSize = int64(len(compressed))
			entry.IsCompressed = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry.StoredAt = now
	entry.ExpiresAt = now.Add(s.ttl)

	s.deleteLocked(cacheKey)
	s.evictLocked(entry.footprint())
	s.entries[cacheKey] = entry
	s.order = append(s.order, cacheKey)
	s.size += entry.footprint()
}

// Get retrieves an object from the cache, dropping it if it has expired.
func (s *Store) Get(cacheKey string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[cacheKey]
	if !ok {
		return nil, false
	}
	if s.now().Before(entry.ExpiresAt) {
		return entry, true
	}
	s.deleteLocked(cacheKey)
	return nil, false
}

// Delete removes an object from the cache.
func (s *Store) Delete(cacheKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(cacheKey)
}

// Sweep removes expired entries and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []string
	for key, entry := range s.entries {
		if !now.Before(entry.ExpiresAt) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		s.deleteLocked(key)
	}
	s.lastCleanup = now
	return len(expired)
}

// Stats returns the current cache footprint.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var original, compressed int64
	for _, entry := range s.entries {
		if entry.IsCompressed {
			original += entry.Size
			compressed += entry.CompressedSize
		}
	}
	var ratio float64
	if original > 0 {
		ratio = float64(compressed) / float64(original)
	}
	return Stats{
		CurrentSize:      s.size,
		MaxSize:          s.maxSize,
		EntryCount:       len(s.entries),
		LastCleanupTime:  s.lastCleanup,
		CompressionRatio: ratio,
	}
}

func (s *Store) deleteLocked(cacheKey string) {
	entry, ok := s.entries[cacheKey]
	if !ok {
		return
	}
	delete(s.entries, cacheKey)
	s.size -= entry.footprint()
	for i, k := range s.order {
		if k == cacheKey {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// evictLocked drops the oldest entries until newSize fits.
func (s *Store) evictLocked(newSize int64) {
	for s.size+newSize > s.maxSize && len(s.order) > 0 {
		s.deleteLocked(s.order[0])
	}
}

// Key builds the cache key for an object in bucket.
func Key(bucket, key string) string {
	return bucket + "/" + key
}
