package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/cityconnect/internal/app"
	"github.com/okian/cityconnect/internal/domain/geo"
	"github.com/okian/cityconnect/internal/domain/model"
	"github.com/okian/cityconnect/internal/domain/ranking"
)

const maxSuggestionBytes = 16 << 10

// SuggestionDependencies ranks the roster for an intervention.
type SuggestionDependencies interface {
	Suggest(ctx context.Context, q service.SuggestionQuery) (service.SuggestionResult, error)
	Nearest(ctx context.Context, at geo.Coordinate, limit int) ([]ranking.NearbyTechnician, error)
}

// SuggestionsHandler serves ranked and nearest technicians.
type SuggestionsHandler struct {
	deps SuggestionDependencies
}

// NewSuggestionsHandler creates a new suggestions handler.
func NewSuggestionsHandler(deps SuggestionDependencies) *SuggestionsHandler {
	return &SuggestionsHandler{deps: deps}
}

// suggestionRequest mirrors the OpenAPI schema for POST /suggestions.
type suggestionRequest struct {
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Category       string   `json:"category"`
	Urgency        string   `json:"urgency"`
	NearbyOnly     bool     `json:"nearby_only"`
	NearbyRadiusKm float64  `json:"nearby_radius_km"`
	CompetentOnly  bool     `json:"competent_only"`
	Search         string   `json:"search"`
	Expression     string   `json:"expression"`
	Limit          int      `json:"limit"`
}

func (r suggestionRequest) query() (service.SuggestionQuery, error) {
	switch {
	case r.Latitude == nil:
		return service.SuggestionQuery{}, errors.New("missing latitude")
	case r.Longitude == nil:
		return service.SuggestionQuery{}, errors.New("missing longitude")
	case r.Limit < 0:
		return service.SuggestionQuery{}, errors.New("limit must not be negative")
	case r.NearbyRadiusKm < 0:
		return service.SuggestionQuery{}, errors.New("nearby_radius_km must not be negative")
	}
	urgency, err := model.ParseUrgency(r.Urgency)
	if err != nil {
		return service.SuggestionQuery{}, err
	}
	return service.SuggestionQuery{
		Request: model.InterventionRequest{
			Location: geo.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude},
			Category: r.Category,
			Urgency:  urgency,
		},
		Criteria: ranking.Criteria{
			NearbyOnly:     r.NearbyOnly,
			NearbyRadiusKm: r.NearbyRadiusKm,
			CompetentOnly:  r.CompetentOnly,
			Search:         r.Search,
			Expression:     r.Expression,
			Limit:          r.Limit,
		},
	}, nil
}

type breakdownResponse struct {
	Availability float64 `json:"availability"`
	Distance     float64 `json:"distance"`
	Competency   float64 `json:"competency"`
	Workload     float64 `json:"workload"`
	UrgencyBonus float64 `json:"urgency_bonus"`
}

type candidateResponse struct {
	Technician      model.Technician  `json:"technician"`
	Score           float64           `json:"score"`
	Tier            ranking.Tier      `json:"tier"`
	DistanceKm      *float64          `json:"distance_km"`
	CompetencyMatch bool              `json:"competency_match"`
	Breakdown       breakdownResponse `json:"breakdown"`
}

type suggestionResponse struct {
	Candidates []candidateResponse `json:"candidates"`
	Summary    ranking.Summary     `json:"summary"`
	RosterSize int                 `json:"roster_size"`
}

func newSuggestionResponse(res service.SuggestionResult) suggestionResponse {
	out := suggestionResponse{
		Candidates: make([]candidateResponse, len(res.Candidates)),
		Summary:    res.Summary,
		RosterSize: res.RosterSize,
	}
	for i, c := range res.Candidates {
		out.Candidates[i] = candidateResponse{
			Technician:      c.Technician,
			Score:           c.Score,
			Tier:            c.Tier(),
			DistanceKm:      c.DistanceKm,
			CompetencyMatch: c.CompetencyMatch,
			Breakdown: breakdownResponse{
				Availability: c.Breakdown.Availability,
				Distance:     c.Breakdown.Distance,
				Competency:   c.Breakdown.Competency,
				Workload:     c.Breakdown.Workload,
				UrgencyBonus: c.Breakdown.UrgencyBonus,
			},
		}
	}
	return out
}

// HandleSuggest handles POST /suggestions requests.
func (h *SuggestionsHandler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	const op = "api.suggest"

	var req suggestionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSuggestionBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	q, err := req.query()
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Suggest(r.Context(), q)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, newSuggestionResponse(res))
}

type nearbyResponse struct {
	Technician model.Technician `json:"technician"`
	DistanceKm float64          `json:"distance_km"`
}

// HandleNearest handles GET /nearest?lat=&lng=&limit= requests.
func (h *SuggestionsHandler) HandleNearest(w http.ResponseWriter, r *http.Request) {
	const op = "api.nearest"

	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid lat")))
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid lng")))
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid limit")))
			return
		}
	}

	nearby, err := h.deps.Nearest(r.Context(), geo.Coordinate{Latitude: lat, Longitude: lng}, limit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	out := make([]nearbyResponse, len(nearby))
	for i, n := range nearby {
		out[i] = nearbyResponse{Technician: n.Technician, DistanceKm: n.DistanceKm}
	}
	writeJSON(w, http.StatusOK, out)
}
