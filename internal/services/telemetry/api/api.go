// Package api exposes the capture service's HTTP surface: session control,
// catalog listing, the live snapshot, and the websocket stream.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/websocket"

	"github.com/seddaluca/racing-analytics/internal/broadcast"
	"github.com/seddaluca/racing-analytics/internal/cache"
	"github.com/seddaluca/racing-analytics/internal/domain"
	"github.com/seddaluca/racing-analytics/internal/services/telemetry/session"
	"github.com/seddaluca/racing-analytics/internal/storage"
)

// API serves the capture service's HTTP endpoints.
type API struct {
	manager *session.Manager
	catalog storage.CatalogStore
	cache   cache.Cache
	hub     *broadcast.Hub
}

// New wires the HTTP surface over the session manager and its collaborators.
func New(manager *session.Manager, catalog storage.CatalogStore, c cache.Cache, hub *broadcast.Hub) *API {
	return &API{manager: manager, catalog: catalog, cache: c, hub: hub}
}

// Router builds the service's route table.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", a.health)
	r.Get("/circuits", a.listCircuits)
	r.Get("/vehicles", a.listVehicles)
	r.Post("/sessions/start", a.startSession)
	r.Post("/sessions/{id}/stop", a.stopSession)
	r.Get("/sessions/current", a.currentSession)
	r.Get("/sessions/{id}/telemetry/latest", a.latestTelemetry)
	r.Handle("/ws", a.websocketHandler())

	return r
}

type startRequest struct {
	CircuitName string `json:"circuit_name"`
	VehicleName string `json:"vehicle_name"`
	GameMode    string `json:"game_mode"`
}

type sessionResponse struct {
	ID              string     `json:"id"`
	CircuitID       int64      `json:"circuit_id"`
	VehicleID       int64      `json:"vehicle_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	GameMode        string     `json:"game_mode"`
	CompletedLaps   int        `json:"completed_laps"`
	BestLapTimeMS   int64      `json:"best_lap_time_ms,omitempty"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		CircuitID:       s.CircuitID,
		VehicleID:       s.VehicleID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		DurationSeconds: s.DurationSeconds,
		GameMode:        s.GameMode,
		CompletedLaps:   s.CompletedLaps,
		BestLapTimeMS:   s.BestLapTimeMS,
	}
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (a *API) listCircuits(w http.ResponseWriter, r *http.Request) {
	circuits, err := a.catalog.ListCircuits(r.Context())
	if err != nil {
		respondError(w, "list circuits failed", http.StatusInternalServerError)
		return
	}
	type circuitResponse struct {
		ID           int64   `json:"id"`
		Name         string  `json:"name"`
		Country      string  `json:"country"`
		LengthMeters float64 `json:"length_meters"`
	}
	out := make([]circuitResponse, 0, len(circuits))
	for _, c := range circuits {
		out = append(out, circuitResponse{ID: c.ID, Name: c.Name, Country: c.Country, LengthMeters: c.LengthMeters})
	}
	respondJSON(w, out, http.StatusOK)
}

func (a *API) listVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := a.catalog.ListVehicles(r.Context())
	if err != nil {
		respondError(w, "list vehicles failed", http.StatusInternalServerError)
		return
	}
	type vehicleResponse struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		Manufacturer string `json:"manufacturer"`
		Category     string `json:"category"`
	}
	out := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, vehicleResponse{ID: v.ID, Name: v.Name, Manufacturer: v.Manufacturer, Category: v.Category})
	}
	respondJSON(w, out, http.StatusOK)
}

func (a *API) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CircuitName == "" || req.VehicleName == "" {
		respondError(w, "circuit_name and vehicle_name are required", http.StatusBadRequest)
		return
	}

	started, err := a.manager.Start(r.Context(), session.StartRequest{
		CircuitName: req.CircuitName,
		VehicleName: req.VehicleName,
		GameMode:    req.GameMode,
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, "unknown circuit or vehicle", http.StatusNotFound)
		return
	case errors.Is(err, session.ErrSessionActive):
		respondError(w, "a session is already active", http.StatusConflict)
		return
	case err != nil:
		log.Printf("start session: %v", err)
		respondError(w, "start session failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, toSessionResponse(started), http.StatusCreated)
}

func (a *API) stopSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stopped, err := a.manager.Stop(r.Context(), id)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, "session is not active", http.StatusNotFound)
		return
	case err != nil:
		log.Printf("stop session: %v", err)
		respondError(w, "stop session failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, toSessionResponse(stopped), http.StatusOK)
}

func (a *API) currentSession(w http.ResponseWriter, r *http.Request) {
	active, ok := a.manager.Active()
	if !ok {
		respondError(w, "no active session", http.StatusNotFound)
		return
	}
	respondJSON(w, toSessionResponse(active), http.StatusOK)
}

func (a *API) latestTelemetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	payload, err := a.cache.Get(r.Context(), "latest_telemetry:"+id)
	if errors.Is(err, cache.ErrNotFound) {
		respondError(w, "no recent telemetry", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("read latest telemetry: %v", err)
		respondError(w, "read latest telemetry failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// websocketHandler streams hub frames to the client until either side
// disconnects.
func (a *API) websocketHandler() http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()

		sub := a.hub.Subscribe()
		if sub == nil {
			return
		}
		defer a.hub.Unsubscribe(sub)

		for frame := range sub.Frames() {
			if err := websocket.JSON.Send(ws, frame); err != nil {
				return
			}
		}
	})
}

func respondJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
