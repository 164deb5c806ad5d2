package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/cityconnect/internal/domain/geo"
)

// StatusKind selects which technician attribute a StatusEvent changes.
type StatusKind string

// Supported status event kinds.
const (
	StatusAvailability StatusKind = "availability"
	StatusPosition     StatusKind = "position"
)

// StatusEvent is a technician-reported change applied to the roster asynchronously.
type StatusEvent struct {
	EventID      string          // unique id for idempotency
	TechnicianID string          // roster record to update
	Kind         StatusKind      // availability or position
	Available    bool            // used when Kind == StatusAvailability
	Location     *geo.Coordinate // used when Kind == StatusPosition
	TS           time.Time       // time reported by the technician device
}

// Validate checks that the event carries what its kind needs.
func (e StatusEvent) Validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return fmt.Errorf("%w: missing event_id", ErrInvalidEvent)
	case strings.TrimSpace(e.TechnicianID) == "":
		return fmt.Errorf("%w: missing technician_id", ErrInvalidEvent)
	}
	switch e.Kind {
	case StatusAvailability:
		return nil
	case StatusPosition:
		if e.Location == nil {
			return fmt.Errorf("%w: position event without location", ErrInvalidEvent)
		}
		if err := e.Location.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
}

type statusEventJSON struct {
	EventID      string     `json:"event_id"`
	TechnicianID string     `json:"technician_id"`
	Kind         StatusKind `json:"kind"`
	Available    *bool      `json:"available,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	TS           string     `json:"ts,omitempty"`
}

// MarshalJSON encodes the wire form shared by HTTP and Kafka:
// {event_id, technician_id, kind, available | latitude+longitude, ts}.
func (e StatusEvent) MarshalJSON() ([]byte, error) {
	out := statusEventJSON{EventID: e.EventID, TechnicianID: e.TechnicianID, Kind: e.Kind}
	switch e.Kind {
	case StatusAvailability:
		out.Available = &e.Available
	case StatusPosition:
		if e.Location != nil {
			out.Latitude = &e.Location.Latitude
			out.Longitude = &e.Location.Longitude
		}
	}
	if !e.TS.IsZero() {
		out.TS = e.TS.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire form. Kind is case-insensitive; latitude
// and longitude must come together. Semantic checks are left to Validate.
func (e *StatusEvent) UnmarshalJSON(data []byte) error {
	var in statusEventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := StatusEvent{
		EventID:      strings.TrimSpace(in.EventID),
		TechnicianID: strings.TrimSpace(in.TechnicianID),
		Kind:         StatusKind(strings.ToLower(strings.TrimSpace(string(in.Kind)))),
	}
	if in.Available != nil {
		out.Available = *in.Available
	}
	switch {
	case in.Latitude != nil && in.Longitude != nil:
		out.Location = &geo.Coordinate{Latitude: *in.Latitude, Longitude: *in.Longitude}
	case in.Latitude != nil || in.Longitude != nil:
		return fmt.Errorf("%w: latitude and longitude must be sent together", ErrInvalidEvent)
	}
	if in.TS != "" {
		ts, err := time.Parse(time.RFC3339Nano, in.TS)
		if err != nil {
			return fmt.Errorf("%w: ts: %w", ErrInvalidEvent, err)
		}
		out.TS = ts
	}
	*e = out
	return nil
}
