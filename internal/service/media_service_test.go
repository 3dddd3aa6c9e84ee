package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/eventify/internal/db"
	"github.com/eventify/internal/realtime"
	"github.com/eventify/internal/storage"
	"gorm.io/gorm"
)

func TestListOrdersByPosition(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()

	items := f.seed(t, db.CategoryPhoto, "A", "B", "C")
	if err := f.db.Model(&db.MediaItem{}).Where("id = ?", items[0].ID).Update("position", 7).Error; err != nil {
		t.Fatalf("failed to move item: %v", err)
	}

	list, err := f.svc.List(ctx, db.CategoryPhoto)
	if err != nil {
		t.Fatalf("list media: %v", err)
	}
	if got := titles(list); got != "B,C,A" {
		t.Fatalf("expected B,C,A, got %s", got)
	}

	if _, err := f.svc.List(ctx, "msg"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestReorderMovesItemAndRewritesPositions(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	items := f.seed(t, db.CategoryPhoto, "A", "B", "C")

	result, err := f.svc.Reorder(ctx, db.CategoryPhoto, items[2].ID, items[0].ID)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if result.Outcome != ReorderCommitted {
		t.Fatalf("expected committed outcome, got %s", result.Outcome)
	}

	list, err := f.svc.List(ctx, db.CategoryPhoto)
	if err != nil {
		t.Fatalf("list media: %v", err)
	}
	if got := titles(list); got != "C,A,B" {
		t.Fatalf("expected C,A,B, got %s", got)
	}
	for i, item := range list {
		if item.Position != i {
			t.Fatalf("expected dense position %d for %s, got %d", i, item.Title, item.Position)
		}
	}
}

func TestReorderOntoItselfWritesNothing(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	items := f.seed(t, db.CategoryVideo, "A", "B")

	writes := 0
	if err := f.db.Callback().Update().After("gorm:update").Register("test:count_updates", func(*gorm.DB) {
		writes++
	}); err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	sub, err := f.feed.Subscribe(ctx, db.CategoryVideo)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	receiveEvent(t, sub)

	result, err := f.svc.Reorder(ctx, db.CategoryVideo, items[1].ID, items[1].ID)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if result.Outcome != ReorderNoop {
		t.Fatalf("expected noop, got %s", result.Outcome)
	}
	if writes != 0 {
		t.Fatalf("expected no writes, got %d", writes)
	}
	expectNoEvent(t, sub)
}

func TestReorderRejectsUnknownTarget(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	items := f.seed(t, db.CategoryPhoto, "A", "B")

	if _, err := f.svc.Reorder(ctx, db.CategoryPhoto, items[0].ID, "missing"); !errors.Is(err, ErrReorderTargetInvalid) {
		t.Fatalf("expected ErrReorderTargetInvalid, got %v", err)
	}

	list, _ := f.svc.List(ctx, db.CategoryPhoto)
	if got := titles(list); got != "A,B" {
		t.Fatalf("expected order untouched, got %s", got)
	}
}

func TestReorderCommitFailureRevertsSubscribers(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	items := f.seed(t, db.CategoryPhoto, "A", "B", "C")

	sub, err := f.feed.Subscribe(ctx, db.CategoryPhoto)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	initial := receiveEvent(t, sub)
	if initial.Type != realtime.EventSnapshot {
		t.Fatalf("expected initial snapshot, got %s", initial.Type)
	}

	if err := f.db.Callback().Update().Before("gorm:update").Register("test:fail_updates", func(tx *gorm.DB) {
		tx.AddError(errors.New("disk full"))
	}); err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	if _, err := f.svc.Reorder(ctx, db.CategoryPhoto, items[0].ID, items[2].ID); err == nil {
		t.Fatalf("expected reorder to fail")
	}

	pending := receiveEvent(t, sub)
	if pending.Type != realtime.EventPending {
		t.Fatalf("expected pending event, got %s", pending.Type)
	}
	if got := titles(pending.Payload.([]db.MediaItem)); got != "B,C,A" {
		t.Fatalf("expected optimistic order B,C,A, got %s", got)
	}

	reverted := receiveEvent(t, sub)
	if reverted.Type != realtime.EventSnapshot {
		t.Fatalf("expected snapshot after failure, got %s", reverted.Type)
	}
	if reverted.Revision <= pending.Revision {
		t.Fatalf("expected revision to advance, got %d after %d", reverted.Revision, pending.Revision)
	}
	if got := titles(reverted.Payload.([]db.MediaItem)); got != "A,B,C" {
		t.Fatalf("expected committed order A,B,C, got %s", got)
	}
}

func TestToggleVisibilityFlipsOnlyVisible(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	items := f.seed(t, db.CategoryPhoto, "A")

	toggled, err := f.svc.ToggleVisibility(ctx, db.CategoryPhoto, items[0].ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.Visible {
		t.Fatalf("expected item to be hidden")
	}
	if toggled.Title != "A" || toggled.Position != 0 || toggled.Src != items[0].Src {
		t.Fatalf("expected other fields untouched, got %+v", toggled)
	}

	toggled, err = f.svc.ToggleVisibility(ctx, db.CategoryPhoto, items[0].ID)
	if err != nil {
		t.Fatalf("toggle again: %v", err)
	}
	if !toggled.Visible {
		t.Fatalf("expected item to be visible again")
	}

	if _, err := f.svc.ToggleVisibility(ctx, db.CategoryVideo, items[0].ID); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound across categories, got %v", err)
	}
}

func TestRenameUpdatesTitle(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	items := f.seed(t, db.CategoryVideo, "Old")

	renamed, err := f.svc.Rename(ctx, db.CategoryVideo, items[0].ID, "  <b>Opening night</b> ")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Title != "Opening night" {
		t.Fatalf("expected sanitized title, got %q", renamed.Title)
	}
	if renamed.Src != items[0].Src || !renamed.Visible {
		t.Fatalf("expected other fields untouched, got %+v", renamed)
	}

	if _, err := f.svc.Rename(ctx, db.CategoryVideo, items[0].ID, "   "); !errors.Is(err, ErrMediaTitleMissing) {
		t.Fatalf("expected ErrMediaTitleMissing, got %v", err)
	}
	if _, err := f.svc.Rename(ctx, db.CategoryVideo, "missing", "x"); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}
}

func TestDeleteRemovesRecordAndBlob(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	items := f.seed(t, db.CategoryPhoto, "A", "B")

	if err := f.svc.Delete(ctx, db.CategoryPhoto, items[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, db.CategoryPhoto, items[0].ID); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected record to be gone, got %v", err)
	}
	if f.blobs.has("photo/a.bin") {
		t.Fatalf("expected blob to be removed")
	}
	if !f.blobs.has("photo/b.bin") {
		t.Fatalf("expected other blob to remain")
	}

	if err := f.svc.Delete(ctx, db.CategoryPhoto, items[0].ID); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound on second delete, got %v", err)
	}
}

func TestDeleteReportsBlobFailure(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	items := f.seed(t, db.CategoryPhoto, "A")
	f.blobs.deleteErr = errors.New("bucket unavailable")

	err := f.svc.Delete(ctx, db.CategoryPhoto, items[0].ID)
	if !errors.Is(err, ErrBlobDelete) {
		t.Fatalf("expected ErrBlobDelete, got %v", err)
	}
	if _, err := f.svc.Get(ctx, db.CategoryPhoto, items[0].ID); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected record to be deleted first, got %v", err)
	}

	f.blobs.deleteErr = nil
	report, err := f.svc.Reconcile(ctx, false)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(report.DeletedBlobs) != 1 || report.DeletedBlobs[0] != "photo/a.bin" {
		t.Fatalf("expected orphan to be cleaned up, got %+v", report)
	}
}

func TestUploadAppendsAtNextPosition(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	data := pngBytes(t, 3, 2)

	var fractions []float64
	first, err := f.svc.Upload(ctx, UploadInput{
		Category: db.CategoryPhoto,
		Title:    "Stage",
		FileName: "stage.png",
		Size:     int64(len(data)),
		Body:     bytes.NewReader(data),
		Progress: func(fraction float64) { fractions = append(fractions, fraction) },
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if first.Position != 0 {
		t.Fatalf("expected first upload at position 0, got %d", first.Position)
	}
	if !first.Visible || first.Type != db.CategoryPhoto {
		t.Fatalf("unexpected uploaded item: %+v", first)
	}
	if first.ContentType != "image/png" || first.Width != 3 || first.Height != 2 {
		t.Fatalf("expected sniffed png metadata, got %+v", first)
	}
	if first.Src != storage.ObjectURL("/media", "photo/stage.png") {
		t.Fatalf("unexpected src %q", first.Src)
	}
	if !f.blobs.has("photo/stage.png") {
		t.Fatalf("expected blob to be stored")
	}
	if len(fractions) == 0 || fractions[len(fractions)-1] != 1 {
		t.Fatalf("expected progress to finish at 1, got %v", fractions)
	}

	if err := f.db.Model(&db.MediaItem{}).Where("id = ?", first.ID).Update("position", 4).Error; err != nil {
		t.Fatalf("failed to move item: %v", err)
	}
	second, err := f.svc.Upload(ctx, UploadInput{
		Category: db.CategoryPhoto,
		Title:    "Crowd",
		FileName: "crowd.png",
		Size:     int64(len(data)),
		Body:     bytes.NewReader(data),
	})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.Position != 5 {
		t.Fatalf("expected max+1 position 5, got %d", second.Position)
	}
}

func TestUploadRejectsMissingDataBeforeStoring(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	data := pngBytes(t, 1, 1)

	cases := []UploadInput{
		{Category: db.CategoryPhoto, Title: "", FileName: "a.png", Body: bytes.NewReader(data)},
		{Category: db.CategoryPhoto, Title: "A", FileName: "", Body: bytes.NewReader(data)},
		{Category: db.CategoryPhoto, Title: "A", FileName: "a.png"},
		{Category: db.CategoryPhoto, Title: "A", FileName: "a.png", Body: bytes.NewReader(nil)},
	}
	for i, in := range cases {
		if _, err := f.svc.Upload(ctx, in); !errors.Is(err, ErrUploadMissingData) {
			t.Fatalf("case %d: expected ErrUploadMissingData, got %v", i, err)
		}
	}
	if f.blobs.puts != 0 {
		t.Fatalf("expected no storage writes, got %d", f.blobs.puts)
	}
}

func TestUploadRejectsMismatchedType(t *testing.T) {
	f := newMediaFixture(t)
	data := pngBytes(t, 1, 1)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		Category: db.CategoryVideo,
		Title:    "Clip",
		FileName: "clip.mp4",
		Body:     bytes.NewReader(data),
	})
	if !errors.Is(err, ErrMediaTypeMismatch) {
		t.Fatalf("expected ErrMediaTypeMismatch, got %v", err)
	}
	if f.blobs.puts != 0 {
		t.Fatalf("expected no storage writes, got %d", f.blobs.puts)
	}
}

func TestUploadStorageFailureWritesNoRecord(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	f.blobs.putErr = errors.New("network down")
	data := pngBytes(t, 1, 1)

	if _, err := f.svc.Upload(ctx, UploadInput{Category: db.CategoryPhoto, Title: "A", FileName: "a.png", Body: bytes.NewReader(data)}); err == nil {
		t.Fatalf("expected upload to fail")
	}
	list, _ := f.svc.List(ctx, db.CategoryPhoto)
	if len(list) != 0 {
		t.Fatalf("expected no records, got %d", len(list))
	}
}

func TestUploadRecordFailureRemovesBlob(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	data := pngBytes(t, 1, 1)

	if err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_creates", func(tx *gorm.DB) {
		tx.AddError(errors.New("constraint failed"))
	}); err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	if _, err := f.svc.Upload(ctx, UploadInput{Category: db.CategoryPhoto, Title: "A", FileName: "a.png", Body: bytes.NewReader(data)}); err == nil {
		t.Fatalf("expected upload to fail")
	}
	if f.blobs.puts != 1 {
		t.Fatalf("expected one storage write, got %d", f.blobs.puts)
	}
	if f.blobs.has("photo/a.png") {
		t.Fatalf("expected stored blob to be removed again")
	}
}

func TestUploadRejectsOversizedFiles(t *testing.T) {
	gdb := openServiceTestDB(t)
	feed := NewFeedService(gdb, realtime.NewHub(nil), nil)
	blobs := newMemoryStore()
	svc := NewMediaService(gdb, blobs, feed, MediaOptions{MaxUploadBytes: 16})
	data := pngBytes(t, 4, 4)

	_, err := svc.Upload(context.Background(), UploadInput{
		Category: db.CategoryPhoto,
		Title:    "Big",
		FileName: "big.png",
		Size:     -1,
		Body:     bytes.NewReader(data),
	})
	if !errors.Is(err, ErrUploadTooLarge) {
		t.Fatalf("expected ErrUploadTooLarge, got %v", err)
	}
	if blobs.has("photo/big.png") {
		t.Fatalf("expected oversized blob to never be stored")
	}
}

func TestOversizedUploadKeepsExistingBlob(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	existing := f.seed(t, db.CategoryPhoto, "A")
	original := string(f.blobs.objects["photo/a.bin"])
	f.svc.maxBytes = 16

	_, err := f.svc.Upload(ctx, UploadInput{
		Category: db.CategoryPhoto,
		Title:    "Replacement",
		FileName: "a.bin",
		Size:     -1,
		Body:     bytes.NewReader(pngBytes(t, 4, 4)),
	})
	if !errors.Is(err, ErrUploadTooLarge) {
		t.Fatalf("expected ErrUploadTooLarge, got %v", err)
	}
	if got := string(f.blobs.objects["photo/a.bin"]); got != original {
		t.Fatalf("expected blob of %s to stay %q, got %q", existing[0].ID, original, got)
	}
}

func TestUploadRecordFailureKeepsSharedBlob(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	f.seed(t, db.CategoryPhoto, "A")

	if err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_creates", func(tx *gorm.DB) {
		tx.AddError(errors.New("constraint failed"))
	}); err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	_, err := f.svc.Upload(ctx, UploadInput{Category: db.CategoryPhoto, Title: "Again", FileName: "a.bin", Body: bytes.NewReader(pngBytes(t, 1, 1))})
	if err == nil {
		t.Fatalf("expected upload to fail")
	}
	if !f.blobs.has("photo/a.bin") {
		t.Fatalf("expected blob still referenced by the existing item to survive")
	}
}

func TestDeleteKeepsBlobSharedWithAnotherItem(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	items := f.seed(t, db.CategoryPhoto, "A")
	twin := db.MediaItem{Title: "Twin", Src: items[0].Src, Type: db.CategoryPhoto, Visible: true, Position: 1}
	if err := f.db.Create(&twin).Error; err != nil {
		t.Fatalf("failed to create twin: %v", err)
	}

	if err := f.svc.Delete(ctx, db.CategoryPhoto, items[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !f.blobs.has("photo/a.bin") {
		t.Fatalf("expected blob shared with %s to survive", twin.ID)
	}

	if err := f.svc.Delete(ctx, db.CategoryPhoto, twin.ID); err != nil {
		t.Fatalf("delete twin: %v", err)
	}
	if f.blobs.has("photo/a.bin") {
		t.Fatalf("expected blob to be removed with its last item")
	}
}

// sweepingStore runs a reconcile from inside Put, after the blob is stored
// but before the upload has written its record.
type sweepingStore struct {
	*memoryStore
	svc    *MediaService
	report chan ReconcileReport
}

func (s *sweepingStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := s.memoryStore.Put(ctx, key, body, size, contentType); err != nil {
		return err
	}
	started := make(chan struct{})
	go func() {
		close(started)
		report, err := s.svc.Reconcile(context.Background(), false)
		if err != nil {
			report.OrphanBlobs = append(report.OrphanBlobs, "error: "+err.Error())
		}
		s.report <- report
	}()
	<-started
	time.Sleep(50 * time.Millisecond)
	return nil
}

func TestReconcileWaitsForInFlightUpload(t *testing.T) {
	gdb := openServiceTestDB(t)
	feed := NewFeedService(gdb, realtime.NewHub(nil), nil)
	blobs := &sweepingStore{memoryStore: newMemoryStore(), report: make(chan ReconcileReport, 1)}
	svc := NewMediaService(gdb, blobs, feed, MediaOptions{MediaURLPath: "/media"})
	blobs.svc = svc

	item, err := svc.Upload(context.Background(), UploadInput{
		Category: db.CategoryPhoto,
		Title:    "Fresh",
		FileName: "fresh.png",
		Body:     bytes.NewReader(pngBytes(t, 2, 2)),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	var report ReconcileReport
	select {
	case report = <-blobs.report:
	case <-time.After(2 * time.Second):
		t.Fatalf("reconcile did not finish")
	}
	if len(report.OrphanBlobs) != 0 || len(report.DeletedBlobs) != 0 {
		t.Fatalf("expected no orphans, got %+v", report)
	}
	if !blobs.has("photo/fresh.png") {
		t.Fatalf("expected blob of %s to survive reconcile", item.ID)
	}
}

func TestListVisibleFiltersHiddenItems(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	photos := f.seed(t, db.CategoryPhoto, "P0", "P1")
	f.seed(t, db.CategoryVideo, "V0")

	if _, err := f.svc.ToggleVisibility(ctx, db.CategoryPhoto, photos[1].ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	visible, err := f.svc.ListVisible(ctx, db.CategoryPhoto)
	if err != nil {
		t.Fatalf("list visible: %v", err)
	}
	if got := titles(visible); got != "P0" {
		t.Fatalf("expected only P0, got %s", got)
	}

	all, err := f.svc.ListVisible(ctx, "")
	if err != nil {
		t.Fatalf("list visible: %v", err)
	}
	if got := titles(all); got != "P0,V0" {
		t.Fatalf("expected P0,V0, got %s", got)
	}

	if _, err := f.svc.ListVisible(ctx, "audio"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestReconcileDryRunReportsOnly(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()
	items := f.seed(t, db.CategoryPhoto, "A")
	f.blobs.objects["photo/orphan.bin"] = []byte("x")
	delete(f.blobs.objects, "photo/a.bin")

	report, err := f.svc.Reconcile(ctx, true)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(report.OrphanBlobs) != 1 || report.OrphanBlobs[0] != "photo/orphan.bin" {
		t.Fatalf("unexpected orphans: %+v", report.OrphanBlobs)
	}
	if len(report.DeletedBlobs) != 0 {
		t.Fatalf("expected dry run to delete nothing, got %+v", report.DeletedBlobs)
	}
	if len(report.MissingBlobs) != 1 || report.MissingBlobs[0] != items[0].ID {
		t.Fatalf("expected missing blob for %s, got %+v", items[0].ID, report.MissingBlobs)
	}
	if !f.blobs.has("photo/orphan.bin") {
		t.Fatalf("expected orphan to survive dry run")
	}
}
