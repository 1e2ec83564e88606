package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/muandane/special-stack/teamlogos/internal/cache"
	"github.com/muandane/special-stack/teamlogos/internal/storage"
)

// ImageHandler serves logo image bytes from object storage through the image cache.
type ImageHandler struct {
	objects storage.Objects
	cache   *cache.Store
	stats   *StatsHandler
	logger  *slog.Logger
}

func NewImageHandler(objects storage.Objects, store *cache.Store, stats *StatsHandler, logger *slog.Logger) (*ImageHandler, error) {
	if objects == nil {
		return nil, fmt.Errorf("object storage cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("image cache cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageHandler{
		objects: objects,
		cache:   store,
		stats:   stats,
		logger:  logger,
	}, nil
}

func objectKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

// Get handles GET /images/*key
func (h *ImageHandler) Get(c *gin.Context) {
	key := objectKey(c)
	if key == "" {
		handleError(c, h.logger, &ValidationError{Field: "key", Message: "object key required"})
		return
	}
	logger := h.logger.With("key", key, "remote_addr", c.ClientIP())
	cacheKey := cache.Key(h.objects.Bucket(), key)
	acceptsGzip := strings.Contains(c.GetHeader("Accept-Encoding"), "gzip")

	if entry, found := h.cache.Get(cacheKey); found {
		h.recordHit()
		logger.Debug("serving from cache",
			"content_type", entry.ContentType,
			"size", entry.Size,
			"compressed", entry.IsCompressed,
		)
		h.serveEntry(c, entry, acceptsGzip, logger)
		return
	}
	h.recordMiss()

	obj, err := h.objects.Get(c.Request.Context(), key)
	if err != nil {
		logger.Warn("failed to get object from storage", "error", err)
		handleError(c, h.logger, err)
		return
	}
	logger.Debug("object retrieved from storage",
		"size", len(obj.Data),
		"content_type", obj.ContentType,
	)

	h.cache.Add(cacheKey, obj.Data, obj.ContentType, obj.Size, obj.LastModified, obj.ETag)
	if entry, found := h.cache.Get(cacheKey); found {
		h.serveEntry(c, entry, acceptsGzip, logger)
		return
	}

	// Too large to cache.
	setObjectHeaders(c, obj.ContentType, int64(len(obj.Data)), obj.LastModified, obj.ETag)
	if notModified(c, obj.ETag) {
		return
	}
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}

// Head handles HEAD /images/*key
func (h *ImageHandler) Head(c *gin.Context) {
	key := objectKey(c)
	if key == "" {
		handleError(c, h.logger, &ValidationError{Field: "key", Message: "object key required"})
		return
	}

	if entry, found := h.cache.Get(cache.Key(h.objects.Bucket(), key)); found {
		setObjectHeaders(c, entry.ContentType, entry.Size, entry.LastModified, entry.ETag)
		c.Status(http.StatusOK)
		return
	}

	info, err := h.objects.Stat(c.Request.Context(), key)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	setObjectHeaders(c, info.ContentType, info.Size, info.LastModified, info.ETag)
	c.Status(http.StatusOK)
}

func (h *ImageHandler) serveEntry(c *gin.Context, entry *cache.Entry, acceptsGzip bool, logger *slog.Logger) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Vary", "Accept-Encoding")
	if entry.ETag != "" {
		c.Header("ETag", entry.ETag)
	}
	if !entry.LastModified.IsZero() {
		c.Header("Last-Modified", entry.LastModified.UTC().Format(http.TimeFormat))
	}
	if notModified(c, entry.ETag) {
		return
	}

	if acceptsGzip && entry.IsCompressed {
		c.Header("Content-Encoding", "gzip")
		c.Data(http.StatusOK, entry.ContentType, entry.CompressedData)
		return
	}

	data, err := entry.Plain()
	if err != nil {
		logger.Error("failed to decompress cached object", "error", err)
		handleError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, entry.ContentType, data)
}

func (h *ImageHandler) recordHit() {
	if h.stats != nil {
		h.stats.RecordHit()
	}
}

func (h *ImageHandler) recordMiss() {
	if h.stats != nil {
		h.stats.RecordMiss()
	}
}

func notModified(c *gin.Context, etag string) bool {
	if etag == "" || c.GetHeader("If-None-Match") != etag {
		return false
	}
	c.Status(http.StatusNotModified)
	return true
}

func setObjectHeaders(c *gin.Context, contentType string, size int64, lastModified time.Time, etag string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", fmt.Sprintf("%d", size))
	if !lastModified.IsZero() {
		c.Header("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	}
	if etag != "" {
		c.Header("ETag", etag)
	}
}
