package service

import (
	"context"
	"errors"
	"sync"

	"github.com/eventify/internal/db"
	"github.com/eventify/internal/logger"
	"github.com/eventify/internal/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TopicMessages is the live topic for contact messages.
const TopicMessages = "msg"

// ErrUnknownTopic is returned for topics no snapshot can be built for.
var ErrUnknownTopic = errors.New("unknown feed topic")

// UploadProgress is published on a category topic while a file is stored.
type UploadProgress struct {
	FileName string  `json:"file_name"`
	Fraction float64 `json:"fraction"`
}

// FeedService materialises ordered snapshots of collections and pushes
// them to live subscribers whenever the data changes.
type FeedService struct {
	db       *gorm.DB
	hub      *realtime.Hub
	notifier realtime.Notifier
	log      *zap.SugaredLogger
	locks    sync.Map
}

// NewFeedService creates a feed that refreshes in-process until another
// notifier is installed with SetNotifier.
func NewFeedService(gdb *gorm.DB, hub *realtime.Hub, log *zap.SugaredLogger) *FeedService {
	f := &FeedService{db: gdb, hub: hub, log: logger.OrNop(log)}
	f.notifier = realtime.NewLocalNotifier(f.Refresh)
	return f
}

// SetNotifier replaces the change notifier, for example with Redis.
func (f *FeedService) SetNotifier(n realtime.Notifier) {
	if n != nil {
		f.notifier = n
	}
}

// Hub exposes the underlying hub.
func (f *FeedService) Hub() *realtime.Hub {
	return f.hub
}

func validTopic(topic string) bool {
	return db.IsMediaCategory(topic) || topic == TopicMessages
}

// topicLock serialises snapshot loads and publishes per topic so no
// subscriber receives an older snapshot after a newer one.
func (f *FeedService) topicLock(topic string) *sync.Mutex {
	lock, _ := f.locks.LoadOrStore(topic, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Subscribe registers a live subscription and delivers the current
// snapshot to it before any later change.
func (f *FeedService) Subscribe(ctx context.Context, topic string) (*realtime.Subscription, error) {
	if !validTopic(topic) {
		return nil, ErrUnknownTopic
	}

	lock := f.topicLock(topic)
	lock.Lock()
	defer lock.Unlock()

	sub := f.hub.Subscribe(topic)
	payload, err := f.load(ctx, topic)
	if err != nil {
		sub.Close()
		return nil, err
	}
	sub.Deliver(realtime.Event{
		Topic:    topic,
		Type:     realtime.EventSnapshot,
		Revision: f.hub.NextRevision(topic),
		Payload:  payload,
	})
	return sub, nil
}

// Refresh reloads topic and broadcasts the committed snapshot.
func (f *FeedService) Refresh(ctx context.Context, topic string) {
	if !validTopic(topic) {
		return
	}

	lock := f.topicLock(topic)
	lock.Lock()
	defer lock.Unlock()

	payload, err := f.load(ctx, topic)
	if err != nil {
		f.log.Errorw("load snapshot failed", "topic", topic, "error", err)
		return
	}
	f.hub.Publish(realtime.Event{
		Topic:    topic,
		Type:     realtime.EventSnapshot,
		Revision: f.hub.NextRevision(topic),
		Payload:  payload,
	})
}

// Changed announces that topic's data was written. When the notifier
// fails the local subscribers are still refreshed.
func (f *FeedService) Changed(ctx context.Context, topic string) {
	if err := f.notifier.Notify(ctx, topic); err != nil {
		f.log.Warnw("change notification failed, refreshing locally", "topic", topic, "error", err)
		f.Refresh(ctx, topic)
	}
}

// PublishPending broadcasts an optimistic, not yet committed order.
func (f *FeedService) PublishPending(topic string, items []db.MediaItem) {
	lock := f.topicLock(topic)
	lock.Lock()
	defer lock.Unlock()

	f.hub.Publish(realtime.Event{
		Topic:    topic,
		Type:     realtime.EventPending,
		Revision: f.hub.NextRevision(topic),
		Payload:  items,
	})
}

// PublishProgress broadcasts upload progress on a category topic.
func (f *FeedService) PublishProgress(topic string, progress UploadProgress) {
	f.hub.Publish(realtime.Event{Topic: topic, Type: realtime.EventProgress, Payload: progress})
}

func (f *FeedService) load(ctx context.Context, topic string) (any, error) {
	if topic == TopicMessages {
		var messages []db.Message
		if err := f.db.WithContext(ctx).Order("timestamp desc").Find(&messages).Error; err != nil {
			return nil, err
		}
		return messages, nil
	}
	return listCategory(f.db.WithContext(ctx), topic)
}

// View is one live ordered view. It holds at most one subscription:
// switching topic releases the previous subscription first.
type View struct {
	feed *FeedService
	mu   sync.Mutex
	sub  *realtime.Subscription
}

// NewView creates a detached view.
func (f *FeedService) NewView() *View {
	return &View{feed: f}
}

// Switch tears down the current subscription and subscribes to topic.
func (v *View) Switch(ctx context.Context, topic string) (*realtime.Subscription, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sub != nil {
		v.sub.Close()
		v.sub = nil
	}
	sub, err := v.feed.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	v.sub = sub
	return sub, nil
}

// Current returns the active subscription, if any.
func (v *View) Current() *realtime.Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sub
}

// Close releases the active subscription.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sub != nil {
		v.sub.Close()
		v.sub = nil
	}
}
