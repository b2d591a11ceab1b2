package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/equipment-maintenance/internal/auth"
	"github.com/ukydev/equipment-maintenance/internal/board"
	"github.com/ukydev/equipment-maintenance/internal/db"
	"github.com/ukydev/equipment-maintenance/internal/events"
	"github.com/ukydev/equipment-maintenance/internal/lifecycle"
	"github.com/ukydev/equipment-maintenance/internal/models"
	"github.com/ukydev/equipment-maintenance/internal/websocket"
)

type stubRequestCursor struct {
	requests []models.MaintenanceRequest
}

func (c *stubRequestCursor) All(ctx context.Context, out interface{}) error {
	*out.(*[]models.MaintenanceRequest) = c.requests
	return nil
}

func (c *stubRequestCursor) Close(ctx context.Context) error { return nil }

type stubRequestCollection struct {
	requests []models.MaintenanceRequest
	inserted []models.MaintenanceRequest
}

func (s *stubRequestCollection) InsertRequest(ctx context.Context, request models.MaintenanceRequest) error {
	s.inserted = append(s.inserted, request)
	return nil
}

func (s *stubRequestCollection) FindRequests(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (db.RequestCursor, error) {
	return &stubRequestCursor{requests: s.requests}, nil
}

func (s *stubRequestCollection) FindRequestByID(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	for i := range s.requests {
		if s.requests[i].ID.Hex() == id {
			request := s.requests[i]
			return &request, nil
		}
	}
	return nil, fmt.Errorf("maintenance request %s: %w", id, db.ErrNotFound)
}

func (s *stubRequestCollection) UpdateRequest(ctx context.Context, id string, expectedVersion int64, request models.MaintenanceRequest) error {
	return nil
}

func (s *stubRequestCollection) AppendWorkLog(ctx context.Context, id string, entry models.WorkLogEntry) (*models.MaintenanceRequest, error) {
	return nil, fmt.Errorf("maintenance request %s: %w", id, db.ErrNotFound)
}

type stubEquipmentCollection struct {
	equipment map[string]models.Equipment
}

func (s *stubEquipmentCollection) InsertEquipment(ctx context.Context, equipment models.Equipment) error {
	return nil
}

func (s *stubEquipmentCollection) FindEquipment(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (db.EquipmentCursor, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubEquipmentCollection) FindEquipmentByID(ctx context.Context, id string) (*models.Equipment, error) {
	if equipment, ok := s.equipment[id]; ok {
		return &equipment, nil
	}
	return nil, fmt.Errorf("equipment %s: %w", id, db.ErrNotFound)
}

func (s *stubEquipmentCollection) UpdateMaintenanceDue(ctx context.Context, id string, lastMaintained time.Time, nextDue *time.Time) error {
	return nil
}

func newTestServer(t *testing.T) (http.Handler, *stubRequestCollection, *stubEquipmentCollection, *auth.Service) {
	t.Setenv("JWT_SECRET", "router-test-secret")
	authService, err := auth.NewService()
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}

	requests := &stubRequestCollection{}
	equipment := &stubEquipmentCollection{equipment: map[string]models.Equipment{}}
	engine := lifecycle.NewEngine(requests, equipment, nil, events.NoopPublisher{}, nil)

	handler := wrapMiddleware(buildRouter(engine, websocket.NewHub()), authService)
	return handler, requests, equipment, authService
}

func mintToken(t *testing.T, authService *auth.Service, role models.Role) string {
	token, err := authService.GenerateToken("actor-1", "Test Actor", role)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	handler, _, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestRouterRequiresToken(t *testing.T) {
	handler, _, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/board", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/board", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", w.Code)
	}
}

func TestRouterViewerCannotWrite(t *testing.T) {
	handler, _, _, authService := newTestServer(t)
	token := mintToken(t, authService, models.RoleViewer)

	req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString(`{"title":"x"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for viewer write, got %d", w.Code)
	}
}

func TestRouterCreateRequest(t *testing.T) {
	handler, requests, equipment, authService := newTestServer(t)
	token := mintToken(t, authService, models.RoleTechnician)

	equipmentID := primitive.NewObjectID()
	equipment.equipment[equipmentID.Hex()] = models.Equipment{
		ID:            equipmentID,
		Name:          "Hydraulic press",
		DefaultTeamID: "team-1",
	}

	payload := map[string]interface{}{
		"title":        "Hydraulic leak",
		"equipment_id": equipmentID.Hex(),
		"type":         "corrective",
		"priority":     "high",
	}
	data, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBuffer(data))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created models.MaintenanceRequest
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if created.Status != models.StatusNew {
		t.Errorf("expected status new, got %s", created.Status)
	}
	if created.TeamID != "team-1" {
		t.Errorf("expected default team team-1, got %q", created.TeamID)
	}
	if created.RequestedByID != "actor-1" {
		t.Errorf("expected requester from token, got %q", created.RequestedByID)
	}
	if len(requests.inserted) != 1 {
		t.Errorf("expected 1 inserted request, got %d", len(requests.inserted))
	}
}

func TestRouterBoardAndCalendar(t *testing.T) {
	handler, requests, _, authService := newTestServer(t)
	token := mintToken(t, authService, models.RoleViewer)

	scheduled := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	requests.requests = []models.MaintenanceRequest{
		{ID: primitive.NewObjectID(), Title: "Inspect crane", Status: models.StatusNew, ScheduledAt: scheduled},
		{ID: primitive.NewObjectID(), Title: "Replace belt", Status: models.StatusInProgress, ScheduledAt: scheduled},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/board", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for board, got %d", w.Code)
	}
	var columns map[models.Stage][]models.MaintenanceRequest
	if err := json.NewDecoder(w.Body).Decode(&columns); err != nil {
		t.Fatalf("Failed to decode board: %v", err)
	}
	if len(columns[models.StageNew]) != 1 || len(columns[models.StageInProgress]) != 1 {
		t.Errorf("unexpected column sizes: new=%d in-progress=%d",
			len(columns[models.StageNew]), len(columns[models.StageInProgress]))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/calendar", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for calendar, got %d", w.Code)
	}
	var eventList []board.CalendarEvent
	if err := json.NewDecoder(w.Body).Decode(&eventList); err != nil {
		t.Fatalf("Failed to decode calendar: %v", err)
	}
	if len(eventList) != 2 {
		t.Fatalf("expected 2 events, got %d", len(eventList))
	}
	if !eventList[0].End.Equal(scheduled.Add(60 * time.Minute)) {
		t.Errorf("expected default 60 minute block, got end %v", eventList[0].End)
	}
}

func TestRouterUnknownPath(t *testing.T) {
	handler, _, _, authService := newTestServer(t)
	token := mintToken(t, authService, models.RoleViewer)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRateLimitOnChain(t *testing.T) {
	handler, _, _, _ := newTestServer(t)

	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 past the limit, got %d", w.Code)
	}
}

func TestNewPublisherDefaultsToNoop(t *testing.T) {
	t.Setenv("MQTT_BROKER_URL", "")

	publisher, err := newPublisher()
	if err != nil {
		t.Fatalf("Failed to build publisher: %v", err)
	}
	if _, ok := publisher.(events.NoopPublisher); !ok {
		t.Errorf("expected noop publisher without a broker URL, got %T", publisher)
	}
}
