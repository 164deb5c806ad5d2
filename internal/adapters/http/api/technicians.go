package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/cityconnect/internal/domain/model"
)

const maxTechnicianBytes = 16 << 10

// RosterDependencies manages technician records.
type RosterDependencies interface {
	Technicians(ctx context.Context) ([]model.Technician, error)
	Technician(ctx context.Context, id string) (model.Technician, error)
	PutTechnician(ctx context.Context, tech model.Technician) (model.Technician, error)
	DeleteTechnician(ctx context.Context, id string) error
}

// RosterHandler serves the /technicians resource.
type RosterHandler struct {
	deps RosterDependencies
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps RosterDependencies) *RosterHandler {
	return &RosterHandler{deps: deps}
}

// HandleList handles GET /technicians.
func (h *RosterHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	techs, err := h.deps.Technicians(r.Context())
	if err != nil {
		writeFailure(w, Wrap("api.list_technicians", err))
		return
	}
	writeJSON(w, http.StatusOK, techs)
}

// HandleGet handles GET /technicians/{id}.
func (h *RosterHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tech, err := h.deps.Technician(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_technician", err))
		return
	}
	writeJSON(w, http.StatusOK, tech)
}

// HandlePut handles PUT /technicians/{id}. The path id wins over any id in
// the body; a mismatch is rejected.
func (h *RosterHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_technician"

	id := r.PathValue("id")
	var tech model.Technician
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTechnicianBytes)).Decode(&tech); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if tech.ID != "" && tech.ID != id {
		writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("body id %q does not match path id %q", tech.ID, id)))
		return
	}
	tech.ID = id

	stored, err := h.deps.PutTechnician(r.Context(), tech)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// HandleDelete handles DELETE /technicians/{id}.
func (h *RosterHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteTechnician(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, Wrap("api.delete_technician", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
