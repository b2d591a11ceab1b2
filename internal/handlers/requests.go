package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/equipment-maintenance/internal/db"
	"github.com/ukydev/equipment-maintenance/internal/lifecycle"
	"github.com/ukydev/equipment-maintenance/internal/middleware"
	"github.com/ukydev/equipment-maintenance/internal/models"
	"github.com/ukydev/equipment-maintenance/internal/scheduling"
)

// RequestHandler handles maintenance request endpoints
type RequestHandler struct {
	engine *lifecycle.Engine
}

// NewRequestHandler creates a new maintenance request handler
func NewRequestHandler(engine *lifecycle.Engine) *RequestHandler {
	return &RequestHandler{
		engine: engine,
	}
}

type createRequestPayload struct {
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Type            models.RequestType `json:"type"`
	Priority        models.Priority    `json:"priority"`
	EquipmentID     string             `json:"equipment_id"`
	TeamID          string             `json:"team_id"`
	AssignedToID    string             `json:"assigned_to_id"`
	RequestedByID   string             `json:"requested_by_id"`
	ScheduledAt     time.Time          `json:"scheduled_at"`
	DurationMinutes int                `json:"duration_minutes"`
}

type updateRequestPayload struct {
	Title           *string             `json:"title"`
	Description     *string             `json:"description"`
	Type            *models.RequestType `json:"type"`
	Priority        *models.Priority    `json:"priority"`
	EquipmentID     *string             `json:"equipment_id"`
	TeamID          *string             `json:"team_id"`
	AssignedToID    *string             `json:"assigned_to_id"`
	ScheduledAt     *time.Time          `json:"scheduled_at"`
	DurationMinutes *int                `json:"duration_minutes"`
}

type transitionPayload struct {
	Status  models.Status `json:"status"`
	ActorID string        `json:"actor_id"`
}

type workLogPayload struct {
	Note    string `json:"note"`
	ActorID string `json:"actor_id"`
}

// Requests handles the /api/requests collection endpoint
func (h *RequestHandler) Requests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createRequest(w, r)
	case http.MethodGet:
		h.listRequests(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// RequestByID routes /api/requests/{id} and its sub-resources
func (h *RequestHandler) RequestByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/requests/")
	if rest == "" || rest == r.URL.Path {
		http.Error(w, "Request ID required", http.StatusBadRequest)
		return
	}

	id := rest
	action := ""
	if slash := strings.Index(rest, "/"); slash != -1 {
		id = rest[:slash]
		action = rest[slash+1:]
	}
	if id == "" {
		http.Error(w, "Request ID required", http.StatusBadRequest)
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.getRequest(w, r, id)
		case http.MethodPatch:
			h.updateRequest(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "transition":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.transition(w, r, id)
	case "worklog":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.appendWorkLog(w, r, id)
	case "overdue":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.overdue(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *RequestHandler) createRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var payload createRequestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Validate input
	if payload.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if payload.EquipmentID == "" {
		http.Error(w, "Equipment ID is required", http.StatusBadRequest)
		return
	}
	if !models.IsValidRequestType(payload.Type) {
		http.Error(w, "Invalid request type", http.StatusBadRequest)
		return
	}
	if !models.IsValidPriority(payload.Priority) {
		http.Error(w, "Invalid priority", http.StatusBadRequest)
		return
	}
	if payload.DurationMinutes < 0 {
		http.Error(w, "Duration must not be negative", http.StatusBadRequest)
		return
	}

	// The authenticated actor is the requester; the payload value only
	// applies when the request arrives without actor context
	requestedBy := payload.RequestedByID
	if claims, ok := middleware.ActorFromContext(r.Context()); ok {
		requestedBy = claims.ActorID
	}

	request, err := h.engine.CreateRequest(r.Context(), lifecycle.CreateInput{
		Title:           payload.Title,
		Description:     payload.Description,
		Type:            payload.Type,
		Priority:        payload.Priority,
		EquipmentID:     payload.EquipmentID,
		TeamID:          payload.TeamID,
		AssignedToID:    payload.AssignedToID,
		RequestedByID:   requestedBy,
		ScheduledAt:     payload.ScheduledAt,
		DurationMinutes: payload.DurationMinutes,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(request)
}

func (h *RequestHandler) listRequests(w http.ResponseWriter, r *http.Request) {
	var filter lifecycle.ListFilter

	if status := r.URL.Query().Get("status"); status != "" {
		if !models.IsValidStatus(models.Status(status)) {
			http.Error(w, "Invalid status", http.StatusBadRequest)
			return
		}
		filter.Status = models.Status(status)
	}
	if stage := r.URL.Query().Get("stage"); stage != "" {
		if !models.IsValidStage(models.Stage(stage)) {
			http.Error(w, "Invalid stage", http.StatusBadRequest)
			return
		}
		filter.Stage = models.Stage(stage)
	}
	filter.EquipmentID = r.URL.Query().Get("equipment_id")

	requests, err := h.engine.ListRequests(r.Context(), filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if requests == nil {
		requests = []models.MaintenanceRequest{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(requests)
}

func (h *RequestHandler) getRequest(w http.ResponseWriter, r *http.Request, id string) {
	request, err := h.engine.GetRequest(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(request)
}

func (h *RequestHandler) updateRequest(w http.ResponseWriter, r *http.Request, id string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var payload updateRequestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Validate input
	if payload.Type != nil && !models.IsValidRequestType(*payload.Type) {
		http.Error(w, "Invalid request type", http.StatusBadRequest)
		return
	}
	if payload.Priority != nil && !models.IsValidPriority(*payload.Priority) {
		http.Error(w, "Invalid priority", http.StatusBadRequest)
		return
	}
	if payload.Title != nil && *payload.Title == "" {
		http.Error(w, "Title must not be empty", http.StatusBadRequest)
		return
	}
	if payload.EquipmentID != nil && *payload.EquipmentID == "" {
		http.Error(w, "Equipment ID must not be empty", http.StatusBadRequest)
		return
	}
	if payload.DurationMinutes != nil && *payload.DurationMinutes < 0 {
		http.Error(w, "Duration must not be negative", http.StatusBadRequest)
		return
	}

	request, err := h.engine.UpdateRequest(r.Context(), id, lifecycle.UpdateInput{
		Title:           payload.Title,
		Description:     payload.Description,
		Type:            payload.Type,
		Priority:        payload.Priority,
		EquipmentID:     payload.EquipmentID,
		TeamID:          payload.TeamID,
		AssignedToID:    payload.AssignedToID,
		ScheduledAt:     payload.ScheduledAt,
		DurationMinutes: payload.DurationMinutes,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(request)
}

func (h *RequestHandler) transition(w http.ResponseWriter, r *http.Request, id string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var payload transitionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if payload.Status == "" {
		http.Error(w, "Status is required", http.StatusBadRequest)
		return
	}

	actor := payload.ActorID
	if claims, ok := middleware.ActorFromContext(r.Context()); ok {
		actor = claims.ActorID
	}

	request, err := h.engine.Transition(r.Context(), id, payload.Status, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(request)
}

func (h *RequestHandler) appendWorkLog(w http.ResponseWriter, r *http.Request, id string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var payload workLogPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if payload.Note == "" {
		http.Error(w, "Note is required", http.StatusBadRequest)
		return
	}

	actor := payload.ActorID
	if claims, ok := middleware.ActorFromContext(r.Context()); ok {
		actor = claims.ActorID
	}

	request, err := h.engine.AppendWorkLog(r.Context(), id, actor, payload.Note)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(request)
}

func (h *RequestHandler) overdue(w http.ResponseWriter, r *http.Request, id string) {
	now := time.Now()
	if raw := r.URL.Query().Get("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid now parameter, expected RFC3339", http.StatusBadRequest)
			return
		}
		now = parsed
	}

	overdue, err := h.engine.Overdue(r.Context(), id, now)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"request_id": id,
		"overdue":    overdue,
		"as_of":      now,
	})
}

// EquipmentNextDue handles GET /api/equipment/{id}/next-due
func (h *RequestHandler) EquipmentNextDue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/equipment/")
	id := strings.TrimSuffix(rest, "/next-due")
	if id == rest || id == "" {
		http.NotFound(w, r)
		return
	}

	next, err := h.engine.NextDue(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"equipment_id": id,
		"next_due":     next,
	})
}

// writeEngineError maps engine errors onto HTTP status codes
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrInvalidStatus),
		errors.Is(err, scheduling.ErrInvalidSchedule):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, scheduling.ErrScheduleDisabled),
		errors.Is(err, db.ErrVersionConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.WithError(err).Error("Request handling failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
