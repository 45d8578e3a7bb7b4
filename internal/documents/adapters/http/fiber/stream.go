package fiber

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"visit-dashboard-service/internal/documents/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// StreamCollection godoc
// @Summary Watch a collection
// @Description Server-sent events. Sends an initial "snapshot" event and a new full snapshot after every change. Comment lines keep idle connections open.
// @Tags Documents
// @Produce text/event-stream
// @Param name path string true "Collection name"
// @Success 200 {object} domain.Snapshot
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /collections/{name}/stream [get]
func (h *DocumentHandler) StreamCollection(c *fiber.Ctx) error {
	name := param(c, "name")

	// The stream writer runs after this handler returns, so the subscription
	// cannot hang off the request context.
	ctx, cancel := context.WithCancel(context.Background())

	snaps, err := h.watch.Watch(ctx, name)
	if err != nil {
		cancel()
		return writeError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	heartbeat := h.heartbeat
	logger := h.logger.With(zap.String("collection", name))

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		logger.Debug("stream opened")
		defer logger.Debug("stream closed")

		for {
			select {
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				if err := writeSnapshot(w, snap); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

func writeSnapshot(w *bufio.Writer, snap domain.Snapshot) error {
	if snap.Documents == nil {
		snap.Documents = []domain.Document{}
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	event := "snapshot"
	if snap.Err != "" {
		event = "error"
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return w.Flush()
}
