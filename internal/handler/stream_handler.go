package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/eventify/internal/service"
	"github.com/gin-gonic/gin"
)

// StreamMedia pushes live snapshots of a category as server-sent events.
func (a *API) StreamMedia(c *gin.Context) {
	category, ok := parseCategoryParam(c)
	if !ok {
		return
	}
	a.streamTopic(c, category)
}

// StreamMessages pushes the contact inbox as server-sent events.
func (a *API) StreamMessages(c *gin.Context) {
	a.streamTopic(c, service.TopicMessages)
}

// streamTopic holds one view per connection. The first event is always the
// current snapshot; the view is released when the client goes away.
func (a *API) streamTopic(c *gin.Context, topic string) {
	view := a.feed.NewView()
	defer view.Close()

	ctx := c.Request.Context()
	sub, err := view.Switch(ctx, topic)
	if err != nil {
		if errors.Is(err, service.ErrUnknownTopic) {
			respondError(c, http.StatusNotFound, "unknown topic")
			return
		}
		a.log.Errorw("subscribe failed", "topic", topic, "error", err)
		respondError(c, http.StatusInternalServerError, "failed to open live view")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ping := time.NewTicker(a.pingInterval)
	defer ping.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case now := <-ping.C:
			c.SSEvent("ping", gin.H{"time": now.UTC()})
			return true
		}
	})
}
