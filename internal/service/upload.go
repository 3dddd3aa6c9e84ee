package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/eventify/internal/db"
	"github.com/eventify/internal/storage"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
)

const sniffBytes = 64 << 10

// UploadInput carries one uploaded file.
type UploadInput struct {
	Category    string
	Title       string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	// Progress, if set, receives the stored fraction in [0, 1].
	Progress storage.ProgressFunc
}

// Upload stores the file at <category>/<file name>, then writes a visible
// item at the next free position. A storage failure aborts before any
// record is written; a record failure removes the stored blob again unless
// another item still points at the same key.
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (*db.MediaItem, error) {
	title := sanitizeText(in.Title)
	if in.Body == nil || strings.TrimSpace(in.FileName) == "" || title == "" {
		return nil, ErrUploadMissingData
	}
	if !db.IsMediaCategory(in.Category) {
		return nil, ErrInvalidCategory
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		return nil, ErrUploadTooLarge
	}

	key, err := storage.Key(in.Category, in.FileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadMissingData, err)
	}

	buffered := bufio.NewReaderSize(in.Body, sniffBytes)
	head, err := buffered.Peek(sniffBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrUploadMissingData
	}

	contentType := detectContentType(head, in.ContentType)
	if !matchesCategory(in.Category, contentType) {
		return nil, fmt.Errorf("%w: %s", ErrMediaTypeMismatch, contentType)
	}

	var width, height int
	if in.Category == db.CategoryPhoto {
		if cfg, _, decodeErr := image.DecodeConfig(bytes.NewReader(head)); decodeErr == nil {
			width, height = cfg.Width, cfg.Height
		}
	}

	counter := &countingReader{r: buffered, limit: s.maxBytes}
	body := storage.NewProgressReader(counter, in.Size, func(fraction float64) {
		if in.Progress != nil {
			in.Progress(fraction)
		}
		s.feed.PublishProgress(in.Category, UploadProgress{FileName: in.FileName, Fraction: fraction})
	})

	// Held until the record exists so Reconcile never sees the blob as an orphan.
	s.blobMu.RLock()
	defer s.blobMu.RUnlock()

	if err := s.blobs.Put(ctx, key, body, in.Size, contentType); err != nil {
		s.metrics.Observe("upload", err)
		if counter.exceeded {
			return nil, ErrUploadTooLarge
		}
		return nil, fmt.Errorf("store blob: %w", err)
	}

	item := db.MediaItem{
		Title:       title,
		Src:         storage.ObjectURL(s.mediaURL, key),
		Type:        in.Category,
		Visible:     true,
		ContentType: contentType,
		Width:       width,
		Height:      height,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := nextPosition(tx, in.Category)
		if err != nil {
			return err
		}
		item.Position = position
		return tx.Create(&item).Error
	})
	s.metrics.Observe("upload", err)
	if err != nil {
		s.removeBlob(ctx, key)
		return nil, fmt.Errorf("save media item: %w", err)
	}

	s.metrics.AddUploadBytes(counter.n)
	s.log.Infow("media uploaded", "id", item.ID, "category", item.Type, "key", key, "bytes", counter.n)
	s.feed.Changed(ctx, in.Category)
	return &item, nil
}

// removeBlob drops key unless a record still references it. Callers hold blobMu.
func (s *MediaService) removeBlob(ctx context.Context, key string) {
	ctx = context.WithoutCancel(ctx)
	referenced, err := s.blobReferenced(ctx, key)
	if err != nil {
		s.log.Warnw("blob cleanup skipped", "key", key, "error", err)
		return
	}
	if referenced {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warnw("blob cleanup failed", "key", key, "error", err)
	}
}

func (s *MediaService) blobReferenced(ctx context.Context, key string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&db.MediaItem{}).
		Where("src = ?", storage.ObjectURL(s.mediaURL, key)).
		Count(&count).Error
	return count > 0, err
}

// detectContentType sniffs head and falls back to the declared type only
// when the bytes are not recognised.
func detectContentType(head []byte, declared string) string {
	detected := mimetype.Detect(head)
	if detected.Is("application/octet-stream") {
		if declared = strings.TrimSpace(declared); declared != "" {
			return declared
		}
	}
	return detected.String()
}

func matchesCategory(category, contentType string) bool {
	switch category {
	case db.CategoryPhoto:
		return strings.HasPrefix(contentType, "image/")
	case db.CategoryVideo:
		return strings.HasPrefix(contentType, "video/")
	}
	return false
}

// countingReader fails with ErrUploadTooLarge once more than limit bytes
// have been read, so the store aborts instead of committing a partial blob.
type countingReader struct {
	r        io.Reader
	n        int64
	limit    int64
	exceeded bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.exceeded {
		return 0, ErrUploadTooLarge
	}
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		c.exceeded = true
		return 0, ErrUploadTooLarge
	}
	return n, err
}
