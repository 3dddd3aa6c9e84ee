package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/eventify/internal/storage"
	"github.com/gin-gonic/gin"
)

// PublicGallery returns the visible items ordered by position. Without a
// category it merges photos and videos.
func (a *API) PublicGallery(c *gin.Context) {
	category := strings.ToLower(strings.TrimSpace(c.Query("category")))

	items, err := a.media.ListVisible(c.Request.Context(), category)
	if err != nil {
		a.respondMediaError(c, err, "failed to load gallery")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ServeMedia streams a stored blob addressed by its escaped key.
func (a *API) ServeMedia(c *gin.Context) {
	// the escaped path keeps "%2F" inside the key intact
	key, err := storage.KeyFromURL(c.Request.URL.EscapedPath())
	if err != nil {
		respondError(c, http.StatusNotFound, "file not found")
		return
	}

	body, info, err := a.blobs.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "file not found")
			return
		}
		a.log.Errorw("open blob failed", "key", key, "error", err)
		respondError(c, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=300")
	if info.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		a.log.Warnw("stream blob interrupted", "key", key, "error", err)
	}
}
