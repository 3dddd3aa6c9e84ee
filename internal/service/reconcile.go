package service

import (
	"context"
	"fmt"

	"github.com/eventify/internal/db"
	"github.com/eventify/internal/storage"
)

// ReconcileReport lists the inconsistencies between records and blobs.
type ReconcileReport struct {
	DryRun       bool     `json:"dry_run"`
	OrphanBlobs  []string `json:"orphan_blobs"`
	DeletedBlobs []string `json:"deleted_blobs"`
	MissingBlobs []string `json:"missing_blobs"`
}

// Reconcile compares every category's blobs with its records. Blobs no
// record references are deleted unless dryRun is set; records whose blob
// is gone are only reported. It waits for in-flight uploads to finish.
func (s *MediaService) Reconcile(ctx context.Context, dryRun bool) (ReconcileReport, error) {
	s.blobMu.Lock()
	defer s.blobMu.Unlock()

	report := ReconcileReport{
		DryRun:       dryRun,
		OrphanBlobs:  []string{},
		DeletedBlobs: []string{},
		MissingBlobs: []string{},
	}

	for _, category := range db.MediaCategories {
		keys, err := s.blobs.List(ctx, category+"/")
		if err != nil {
			return report, fmt.Errorf("list %s blobs: %w", category, err)
		}
		items, err := s.List(ctx, category)
		if err != nil {
			return report, err
		}

		stored := make(map[string]bool, len(keys))
		for _, key := range keys {
			stored[key] = true
		}
		referenced := make(map[string]bool, len(items))
		for _, item := range items {
			key, err := storage.KeyFromURL(item.Src)
			if err != nil || !stored[key] {
				report.MissingBlobs = append(report.MissingBlobs, item.ID)
				continue
			}
			referenced[key] = true
		}

		for _, key := range keys {
			if referenced[key] {
				continue
			}
			report.OrphanBlobs = append(report.OrphanBlobs, key)
			if dryRun {
				continue
			}
			if err := s.blobs.Delete(ctx, key); err != nil {
				s.log.Warnw("orphan blob delete failed", "key", key, "error", err)
				continue
			}
			report.DeletedBlobs = append(report.DeletedBlobs, key)
		}
	}

	s.metrics.Observe("reconcile", nil)
	s.log.Infow("reconcile finished", "dry_run", dryRun, "orphans", len(report.OrphanBlobs), "missing", len(report.MissingBlobs))
	return report, nil
}
