package handler

import (
	"errors"
	"net/http"

	"github.com/eventify/internal/service"
	"github.com/gin-gonic/gin"
)

type renamePayload struct {
	Title string `json:"title" binding:"required,max=200"`
}

type reorderPayload struct {
	ActiveID string `json:"active_id" binding:"required"`
	OverID   string `json:"over_id" binding:"required"`
}

func (a *API) respondMediaError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidCategory):
		respondError(c, http.StatusNotFound, "unknown media category")
	case errors.Is(err, service.ErrMediaNotFound):
		respondError(c, http.StatusNotFound, "media item not found")
	case errors.Is(err, service.ErrMediaTitleMissing):
		respondError(c, http.StatusBadRequest, "title is required")
	case errors.Is(err, service.ErrUploadMissingData):
		respondError(c, http.StatusBadRequest, "missing data: a file and a title are required")
	case errors.Is(err, service.ErrUploadTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, "file is too large")
	case errors.Is(err, service.ErrMediaTypeMismatch):
		respondError(c, http.StatusUnsupportedMediaType, "file type does not match the category")
	case errors.Is(err, service.ErrReorderTargetInvalid):
		respondError(c, http.StatusConflict, "dragged item or drop target no longer exists")
	default:
		a.log.Errorw(fallback, "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

// ListMedia returns every item of a category ordered by position.
func (a *API) ListMedia(c *gin.Context) {
	category, ok := parseCategoryParam(c)
	if !ok {
		return
	}

	items, err := a.media.List(c.Request.Context(), category)
	if err != nil {
		a.respondMediaError(c, err, "failed to load media")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ToggleMedia flips the visibility of one item.
func (a *API) ToggleMedia(c *gin.Context) {
	category, ok := parseCategoryParam(c)
	if !ok {
		return
	}

	item, err := a.media.ToggleVisibility(c.Request.Context(), category, c.Param("id"))
	if err != nil {
		a.respondMediaError(c, err, "failed to update visibility")
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// RenameMedia replaces the title of one item.
func (a *API) RenameMedia(c *gin.Context) {
	category, ok := parseCategoryParam(c)
	if !ok {
		return
	}

	var payload renamePayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	item, err := a.media.Rename(c.Request.Context(), category, c.Param("id"), payload.Title)
	if err != nil {
		a.respondMediaError(c, err, "failed to rename item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// DeleteMedia removes an item and its file. The caller must confirm with
// ?confirm=true.
func (a *API) DeleteMedia(c *gin.Context) {
	category, ok := parseCategoryParam(c)
	if !ok {
		return
	}
	if !parseBoolQuery(c, "confirm") {
		respondError(c, http.StatusPreconditionRequired, "deletion must be confirmed")
		return
	}

	err := a.media.Delete(c.Request.Context(), category, c.Param("id"))
	if errors.Is(err, service.ErrBlobDelete) {
		a.log.Warnw("media record deleted with orphaned file", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "item deleted but its file could not be removed",
			"deleted": true,
		})
		return
	}
	if err != nil {
		a.respondMediaError(c, err, "failed to delete item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item deleted", "deleted": true})
}

// ReorderMedia handles a drop of active_id onto over_id.
func (a *API) ReorderMedia(c *gin.Context) {
	category, ok := parseCategoryParam(c)
	if !ok {
		return
	}

	var payload reorderPayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	result, err := a.media.Reorder(c.Request.Context(), category, payload.ActiveID, payload.OverID)
	if err != nil {
		a.respondMediaError(c, err, "failed to save the new order")
		return
	}
	c.JSON(http.StatusOK, result)
}

// UploadMedia stores a multipart file with its title.
func (a *API) UploadMedia(c *gin.Context) {
	category, ok := parseCategoryParam(c)
	if !ok {
		return
	}
	if a.maxUpload > 0 {
		// multipart framing needs headroom beyond the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUpload+1<<20)
	}

	title := c.PostForm("title")
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		a.respondMediaError(c, service.ErrUploadMissingData, "")
		return
	}

	file, err := header.Open()
	if err != nil {
		a.respondMediaError(c, err, "failed to read upload")
		return
	}
	defer file.Close()

	item, err := a.media.Upload(c.Request.Context(), service.UploadInput{
		Category:    category,
		Title:       title,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		a.respondMediaError(c, err, "failed to upload file")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// ReconcileMedia removes orphaned files and reports items without one.
func (a *API) ReconcileMedia(c *gin.Context) {
	report, err := a.media.Reconcile(c.Request.Context(), parseBoolQuery(c, "dry_run"))
	if err != nil {
		a.respondMediaError(c, err, "reconciliation failed")
		return
	}
	c.JSON(http.StatusOK, report)
}
