package cache

import "time"

// Entry is a cached logo image with its object metadata. When IsCompressed
// is set only CompressedData is held; use Plain for the original bytes.
type Entry struct {
	Data           []byte
	CompressedData []byte
	ContentType    string
	Size           int64
	CompressedSize int64
	LastModified   time.Time
	ETag           string
	StoredAt       time.Time
	ExpiresAt      time.Time
	IsCompressed   bool
}

// Plain returns the uncompressed object bytes.
func (e *Entry) Plain() ([]byte, error) {
	if !e.IsCompressed {
		return e.Data, nil
	}
	return DecompressData(e.CompressedData)
}

func (e *Entry) footprint() int64 {
	if e.IsCompressed {
		return e.CompressedSize
	}
	return e.Size
}

// Stats describes the current cache footprint.
type Stats struct {
	CurrentSize      int64     `json:"current_size_bytes"`
	MaxSize          int64     `json:"max_size_bytes"`
	EntryCount       int       `json:"entry_count"`
	LastCleanupTime  time.Time `json:"last_cleanup_time"`
	CompressionRatio float64   `json:"compression_ratio"`
}

// Cache configuration
const (
	DefaultCacheDuration  = 5 * time.Minute
	DefaultMaxCacheSize   = 100 * 1024 * 1024 // 100MB
	MinSizeForCompression = 1024              // Only compress files larger than 1KB
)
