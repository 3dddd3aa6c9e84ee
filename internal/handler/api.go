package handler

import (
	"time"

	"github.com/eventify/internal/logger"
	"github.com/eventify/internal/metrics"
	"github.com/eventify/internal/realtime"
	"github.com/eventify/internal/service"
	"github.com/eventify/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPingInterval = 25 * time.Second

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db           *gorm.DB
	blobs        storage.BlobStore
	feed         *service.FeedService
	media        *service.MediaService
	messages     *service.MessageService
	users        *service.UserService
	events       *service.EventService
	metrics      *metrics.Metrics
	log          *zap.SugaredLogger
	contact      *ipRateLimiter
	gatePassword string
	maxUpload    int64
	pingInterval time.Duration
}

// Options configures NewAPI.
type Options struct {
	Blobs                storage.BlobStore
	MediaURLPath         string
	MaxUploadBytes       int64
	RoutePassword        string
	ContactRatePerMinute int
	Metrics              *metrics.Metrics
	Logger               *zap.SugaredLogger
	// Notifier replaces the in-process change notifier when set.
	Notifier realtime.Notifier
	// PingInterval is the keep-alive period of live streams.
	PingInterval time.Duration
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, opts Options) *API {
	log := logger.OrNop(opts.Logger)
	hub := realtime.NewHub(opts.Metrics.SetSubscribers)

	feed := service.NewFeedService(db, hub, log)
	feed.SetNotifier(opts.Notifier)

	ping := opts.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}

	return &API{
		db:    db,
		blobs: opts.Blobs,
		feed:  feed,
		media: service.NewMediaService(db, opts.Blobs, feed, service.MediaOptions{
			MediaURLPath:   opts.MediaURLPath,
			MaxUploadBytes: opts.MaxUploadBytes,
			Metrics:        opts.Metrics,
			Logger:         log,
		}),
		messages:     service.NewMessageService(db, feed),
		users:        service.NewUserService(db),
		events:       service.NewEventService(db),
		metrics:      opts.Metrics,
		log:          log,
		contact:      newIPRateLimiter(opts.ContactRatePerMinute, log),
		gatePassword: opts.RoutePassword,
		maxUpload:    opts.MaxUploadBytes,
		pingInterval: ping,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Feed exposes the live feed so a Redis listener can refresh it.
func (a *API) Feed() *service.FeedService {
	return a.feed
}

// GateConfigured reports whether a route password is set. Admin routes
// stay closed until it is.
func (a *API) GateConfigured() bool {
	return a.gatePassword != ""
}
