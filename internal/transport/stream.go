package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/realtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const heartbeatInterval = 25 * time.Second

type streamEvent struct {
	name string
	data []byte
	// last ends the stream once written
	last bool
}

// serveStream pushes every snapshot subscribe delivers to the client as a
// server-sent event until the client goes away or the subscription is lost. The subscription is tracked in
// streams under a per-connection owner and released on return.
func serveStream[T any](
	w http.ResponseWriter,
	r *http.Request,
	streams *realtime.Registry,
	logger *zap.Logger,
	topic string,
	subscribe func(ctx context.Context, deliver func(T, error)) (realtime.Unsubscribe, error),
) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.RespondWithError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan streamEvent, 8)
	deliver := func(v T, err error) {
		ev := streamEvent{name: "snapshot"}
		if errors.Is(err, realtime.ErrSubscriptionLost) {
			logger.Warn("Subscription lost, closing stream", zap.String("topic", topic), zap.Error(err))
			ev = streamEvent{name: "error", data: []byte(`{"error":"live updates interrupted"}`), last: true}
		} else if err != nil {
			logger.Warn("Subscription reload failed", zap.String("topic", topic), zap.Error(err))
			ev = streamEvent{name: "error", data: []byte(`{"error":"failed to refresh"}`)}
		} else if ev.data, err = json.Marshal(v); err != nil {
			logger.Error("Failed to encode snapshot", zap.String("topic", topic), zap.Error(err))
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	unsubscribe, err := subscribe(ctx, deliver)
	if err != nil {
		logger.Warn("Subscription failed", zap.String("topic", topic), zap.Error(err))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "live updates unavailable")
		return
	}
	owner := uuid.NewString()
	streams.Add(owner, unsubscribe)
	defer streams.Release(owner)

	// Streams outlive the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logger.Debug("Could not clear write deadline", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data); err != nil {
				return
			}
			flusher.Flush()
			if ev.last {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
