package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eventify/internal/db"
	"github.com/eventify/internal/realtime"
	"github.com/eventify/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(sqlite.Open(dsn), gormlogger.Default.LogMode(gormlogger.Silent))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

// memoryStore is an in-memory BlobStore with injectable failures.
type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	puts      int
	putErr    error
	deleteErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	m.mu.Lock()
	m.puts++
	putErr := m.putErr
	m.mu.Unlock()
	if putErr != nil {
		return putErr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) Open(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Size: int64(len(data))}, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := []string{}
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memoryStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type mediaFixture struct {
	db    *gorm.DB
	feed  *FeedService
	blobs *memoryStore
	svc   *MediaService
}

func newMediaFixture(t *testing.T) *mediaFixture {
	t.Helper()

	gdb := openServiceTestDB(t)
	feed := NewFeedService(gdb, realtime.NewHub(nil), nil)
	blobs := newMemoryStore()
	svc := NewMediaService(gdb, blobs, feed, MediaOptions{MediaURLPath: "/media", MaxUploadBytes: 1 << 20})
	return &mediaFixture{db: gdb, feed: feed, blobs: blobs, svc: svc}
}

// seed stores one item per title with dense positions and matching blobs.
func (f *mediaFixture) seed(t *testing.T, category string, titles ...string) []db.MediaItem {
	t.Helper()

	items := make([]db.MediaItem, 0, len(titles))
	for i, title := range titles {
		key := category + "/" + strings.ToLower(title) + ".bin"
		f.blobs.objects[key] = []byte(title)
		item := db.MediaItem{
			Title:    title,
			Src:      storage.ObjectURL("/media", key),
			Type:     category,
			Visible:  true,
			Position: i,
		}
		if err := f.db.Create(&item).Error; err != nil {
			t.Fatalf("failed to seed media item: %v", err)
		}
		items = append(items, item)
	}
	return items
}

func titles(items []db.MediaItem) string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Title
	}
	return strings.Join(names, ",")
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func receiveEvent(t *testing.T, sub *realtime.Subscription) realtime.Event {
	t.Helper()

	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatalf("subscription closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event on %s", sub.Topic())
	}
	return realtime.Event{}
}

func expectNoEvent(t *testing.T, sub *realtime.Subscription) {
	t.Helper()

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected %s event on %s", ev.Type, sub.Topic())
	case <-time.After(50 * time.Millisecond):
	}
}
