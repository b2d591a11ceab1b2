package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ukydev/equipment-maintenance/internal/board"
	"github.com/ukydev/equipment-maintenance/internal/lifecycle"
	"github.com/ukydev/equipment-maintenance/internal/middleware"
	"github.com/ukydev/equipment-maintenance/internal/models"
)

// BoardHandler serves the kanban board and calendar projections
type BoardHandler struct {
	engine *lifecycle.Engine
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(engine *lifecycle.Engine) *BoardHandler {
	return &BoardHandler{
		engine: engine,
	}
}

type movePayload struct {
	RequestID string       `json:"request_id"`
	From      models.Stage `json:"from"`
	To        models.Stage `json:"to"`
	ActorID   string       `json:"actor_id"`
}

// Board handles GET /api/board
func (h *BoardHandler) Board(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requests, err := h.engine.ListRequests(r.Context(), lifecycle.ListFilter{
		EquipmentID: r.URL.Query().Get("equipment_id"),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	grouped, err := board.ClassifySorted(requests, board.SortKey(r.URL.Query().Get("sort")))
	if err != nil {
		if errors.Is(err, board.ErrInvalidSortKey) {
			http.Error(w, "Invalid sort key", http.StatusBadRequest)
			return
		}
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(grouped)
}

// MoveCard handles POST /api/board/move, translating a column drag into a
// status transition. A drop within the same column changes nothing.
func (h *BoardHandler) MoveCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var payload movePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if payload.RequestID == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	move, err := board.MoveCard(payload.RequestID, payload.From, payload.To)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Same-column drop: report the card as it stands
	if move == nil {
		request, err := h.engine.GetRequest(r.Context(), payload.RequestID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(request)
		return
	}

	actor := payload.ActorID
	if claims, ok := middleware.ActorFromContext(r.Context()); ok {
		actor = claims.ActorID
	}

	request, err := h.engine.Transition(r.Context(), move.RequestID, move.TargetStatus, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(request)
}

// Calendar handles GET /api/calendar
func (h *BoardHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requests, err := h.engine.ListRequests(r.Context(), lifecycle.ListFilter{
		EquipmentID: r.URL.Query().Get("equipment_id"),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(board.Events(requests))
}
