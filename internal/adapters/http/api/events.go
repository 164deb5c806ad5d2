package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cityconnect/internal/domain/model"
)

// maxEventBytes bounds a single status event body.
const maxEventBytes = 64 << 10

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	// Ingest queues e unless its id was already seen. It returns
	// queue.ErrFull on backpressure.
	Ingest(ctx context.Context, e model.StatusEvent) (duplicate bool, err error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
	now  func() time.Time
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps, now: time.Now}
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"

	var ev model.StatusEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	// Producers without their own ids get one, at the cost of idempotency.
	if strings.TrimSpace(ev.EventID) == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.TS.IsZero() {
		ev.TS = h.now().UTC()
	}

	duplicate, err := h.deps.Ingest(r.Context(), ev)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
