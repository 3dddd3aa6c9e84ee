package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/eventify/internal/db"
	"github.com/eventify/internal/logger"
	"github.com/eventify/internal/metrics"
	"github.com/eventify/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrMediaNotFound       = errors.New("media item not found")
	ErrMediaTitleMissing   = errors.New("media title is required")
	ErrInvalidCategory     = errors.New("media category is invalid")
	ErrBlobDelete          = errors.New("media record deleted but blob removal failed")
	ErrUploadMissingData   = errors.New("file and title are required")
	ErrUploadTooLarge      = errors.New("upload exceeds the size limit")
	ErrMediaTypeMismatch   = errors.New("file type does not match the category")
	ErrReorderWriteSkipped = errors.New("reorder batch touched a missing item")
)

// Reorder outcomes.
const (
	ReorderCommitted = "committed"
	ReorderNoop      = "noop"
)

// ReorderResult reports what a drop did.
type ReorderResult struct {
	Outcome string         `json:"outcome"`
	Items   []db.MediaItem `json:"items"`
}

// MediaService manages the ordered photo and video collections.
type MediaService struct {
	db       *gorm.DB
	blobs    storage.BlobStore
	feed     *FeedService
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger
	mediaURL string
	maxBytes int64

	// blobMu orders blob writes (shared) against sweeps over the store (exclusive).
	blobMu sync.RWMutex
}

// MediaOptions configures a MediaService.
type MediaOptions struct {
	MediaURLPath   string
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
	Logger         *zap.SugaredLogger
}

// NewMediaService creates a MediaService instance.
func NewMediaService(gdb *gorm.DB, blobs storage.BlobStore, feed *FeedService, opts MediaOptions) *MediaService {
	mediaURL := opts.MediaURLPath
	if mediaURL == "" {
		mediaURL = "/media"
	}
	return &MediaService{
		db:       gdb,
		blobs:    blobs,
		feed:     feed,
		metrics:  opts.Metrics,
		log:      logger.OrNop(opts.Logger),
		mediaURL: mediaURL,
		maxBytes: opts.MaxUploadBytes,
	}
}

func listCategory(tx *gorm.DB, category string) ([]db.MediaItem, error) {
	if !db.IsMediaCategory(category) {
		return nil, ErrInvalidCategory
	}
	items := []db.MediaItem{}
	if err := tx.Where("type = ?", category).
		Order("position asc").
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// List returns every item of category ordered by position.
func (s *MediaService) List(ctx context.Context, category string) ([]db.MediaItem, error) {
	return listCategory(s.db.WithContext(ctx), category)
}

// ListVisible returns the public gallery: visible items ordered by
// position. An empty category merges photos and videos.
func (s *MediaService) ListVisible(ctx context.Context, category string) ([]db.MediaItem, error) {
	categories := db.MediaCategories
	if category != "" {
		if !db.IsMediaCategory(category) {
			return nil, ErrInvalidCategory
		}
		categories = []string{category}
	}

	visible := []db.MediaItem{}
	for _, c := range categories {
		items, err := listCategory(s.db.WithContext(ctx), c)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item.Visible {
				visible = append(visible, item)
			}
		}
	}
	slices.SortStableFunc(visible, func(a, b db.MediaItem) int {
		return a.Position - b.Position
	})
	return visible, nil
}

// Get fetches one item of category.
func (s *MediaService) Get(ctx context.Context, category, id string) (*db.MediaItem, error) {
	if !db.IsMediaCategory(category) {
		return nil, ErrInvalidCategory
	}
	var item db.MediaItem
	if err := s.db.WithContext(ctx).Where("id = ? AND type = ?", id, category).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ToggleVisibility flips the visible flag with a single-field update.
func (s *MediaService) ToggleVisibility(ctx context.Context, category, id string) (*db.MediaItem, error) {
	if !db.IsMediaCategory(category) {
		return nil, ErrInvalidCategory
	}
	res := s.db.WithContext(ctx).Model(&db.MediaItem{}).
		Where("id = ? AND type = ?", id, category).
		Update("visible", gorm.Expr("NOT visible"))
	s.metrics.Observe("toggle", res.Error)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrMediaNotFound
	}

	s.feed.Changed(ctx, category)
	return s.Get(ctx, category, id)
}

// Rename updates only the title.
func (s *MediaService) Rename(ctx context.Context, category, id, title string) (*db.MediaItem, error) {
	if !db.IsMediaCategory(category) {
		return nil, ErrInvalidCategory
	}
	title = sanitizeText(title)
	if title == "" {
		return nil, ErrMediaTitleMissing
	}

	res := s.db.WithContext(ctx).Model(&db.MediaItem{}).
		Where("id = ? AND type = ?", id, category).
		Update("title", title)
	s.metrics.Observe("rename", res.Error)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrMediaNotFound
	}

	s.feed.Changed(ctx, category)
	return s.Get(ctx, category, id)
}

// Delete removes the metadata record, then the blob. The two stores are
// independent: when the blob removal fails after the record is gone the
// error wraps ErrBlobDelete and the orphan is left for Reconcile.
func (s *MediaService) Delete(ctx context.Context, category, id string) error {
	item, err := s.Get(ctx, category, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&db.MediaItem{}, "id = ?", item.ID).Error; err != nil {
		s.metrics.Observe("delete", err)
		return err
	}
	s.feed.Changed(ctx, category)

	s.blobMu.Lock()
	defer s.blobMu.Unlock()
	key, err := storage.KeyFromURL(item.Src)
	if err == nil {
		var shared bool
		if shared, err = s.blobReferenced(ctx, key); err == nil && !shared {
			err = s.blobs.Delete(ctx, key)
		}
		if errors.Is(err, storage.ErrNotFound) {
			err = nil
		}
	}
	s.metrics.Observe("delete", err)
	if err != nil {
		s.log.Warnw("blob delete failed", "id", item.ID, "src", item.Src, "error", err)
		return fmt.Errorf("%w: %v", ErrBlobDelete, err)
	}
	return nil
}

// Reorder moves activeID to the slot of overID and rewrites every position
// of the category in one transaction. Subscribers first receive the
// optimistic order as a pending event; if the commit fails they receive
// the last committed order again so their views revert.
func (s *MediaService) Reorder(ctx context.Context, category, activeID, overID string) (ReorderResult, error) {
	if !db.IsMediaCategory(category) {
		return ReorderResult{}, ErrInvalidCategory
	}

	var result ReorderResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := listCategory(tx, category)
		if err != nil {
			return err
		}
		planned, changed, err := PlanReorder(current, activeID, overID)
		if err != nil {
			return err
		}
		if !changed {
			result = ReorderResult{Outcome: ReorderNoop, Items: current}
			return nil
		}

		s.feed.PublishPending(category, planned)
		for _, item := range planned {
			res := tx.Model(&db.MediaItem{}).
				Where("id = ? AND type = ?", item.ID, category).
				Update("position", item.Position)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrReorderWriteSkipped
			}
		}
		result = ReorderResult{Outcome: ReorderCommitted, Items: planned}
		return nil
	})

	if err != nil {
		s.metrics.Observe("reorder", err)
		s.feed.Refresh(ctx, category)
		if errors.Is(err, ErrReorderTargetInvalid) {
			return ReorderResult{}, err
		}
		return ReorderResult{}, fmt.Errorf("commit reorder: %w", err)
	}
	if result.Outcome == ReorderCommitted {
		s.metrics.Observe("reorder", nil)
		s.feed.Changed(ctx, category)
	}
	return result, nil
}

func nextPosition(tx *gorm.DB, category string) (int, error) {
	var next int
	if err := tx.Model(&db.MediaItem{}).
		Where("type = ?", category).
		Select("COALESCE(MAX(position), -1) + 1").
		Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}
