package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/equipment-maintenance/internal/db"
	"github.com/ukydev/equipment-maintenance/internal/events"
	"github.com/ukydev/equipment-maintenance/internal/models"
	"github.com/ukydev/equipment-maintenance/internal/scheduling"
)

var (
	// ErrNotFound is returned when the referenced request or equipment does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStatus is returned when a target status is outside the defined enum.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition is returned when a request in a terminal status is
	// asked to change status again.
	ErrInvalidTransition = errors.New("invalid transition")
)

// BoardNotifier pushes a refresh notice to board viewers after a mutation.
type BoardNotifier interface {
	NotifyRequest(id string, status models.Status, stage models.Stage)
}

// Engine is the authoritative state machine for maintenance requests. It owns
// creation, status transitions, the terminal-state lock, team auto-fill from
// equipment defaults, and the due-date recompute that follows a completion.
type Engine struct {
	requests  db.RequestCollection
	equipment db.EquipmentCollection
	teams     db.TeamCollection
	publisher events.Publisher
	notifier  BoardNotifier

	nowFn func() time.Time
}

// NewEngine creates an Engine over the given collections. publisher and
// notifier may be nil; mutations then happen without fan-out.
func NewEngine(requests db.RequestCollection, equipment db.EquipmentCollection, teams db.TeamCollection, publisher events.Publisher, notifier BoardNotifier) *Engine {
	return &Engine{
		requests:  requests,
		equipment: equipment,
		teams:     teams,
		publisher: publisher,
		notifier:  notifier,
		nowFn:     time.Now,
	}
}

// CreateInput carries the caller-supplied fields for a new request.
type CreateInput struct {
	Title           string
	Description     string
	Type            models.RequestType
	Priority        models.Priority
	EquipmentID     string
	TeamID          string
	AssignedToID    string
	RequestedByID   string
	ScheduledAt     time.Time
	DurationMinutes int
}

// CreateRequest creates a request in status New against existing equipment.
// When no team is supplied, the equipment's default maintenance team is used;
// an explicit team always wins over the default.
func (e *Engine) CreateRequest(ctx context.Context, input CreateInput) (*models.MaintenanceRequest, error) {
	equipment, err := e.equipment.FindEquipmentByID(ctx, input.EquipmentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("equipment %s: %w", input.EquipmentID, ErrNotFound)
		}
		return nil, err
	}

	teamID, explicit := e.resolveTeam(ctx, input.TeamID, equipment)

	now := e.nowFn()
	request := models.MaintenanceRequest{
		ID:              primitive.NewObjectID(),
		Title:           input.Title,
		Description:     input.Description,
		Type:            input.Type,
		Priority:        input.Priority,
		Status:          models.StatusNew,
		EquipmentID:     input.EquipmentID,
		TeamID:          teamID,
		TeamExplicit:    explicit,
		AssignedToID:    input.AssignedToID,
		RequestedByID:   input.RequestedByID,
		ScheduledAt:     input.ScheduledAt,
		DurationMinutes: input.DurationMinutes,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := e.requests.InsertRequest(ctx, request); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"request_id":   request.ID.Hex(),
		"equipment_id": request.EquipmentID,
		"team_id":      request.TeamID,
		"priority":     request.Priority,
	}).Info("Maintenance request created")

	e.publish(events.NewRequestEvent(events.EventRequestCreated, &request, "", request.Status, input.RequestedByID, now))
	e.notify(&request)

	return &request, nil
}

// resolveTeam applies the equipment default when the caller supplied no team.
// A supplied team that contradicts the default is a warning, never an error;
// the explicit value wins.
func (e *Engine) resolveTeam(ctx context.Context, explicitTeamID string, equipment *models.Equipment) (string, bool) {
	if explicitTeamID == "" {
		return equipment.DefaultTeamID, false
	}

	if equipment.DefaultTeamID != "" && explicitTeamID != equipment.DefaultTeamID {
		log.WithFields(log.Fields{
			"team_id":      explicitTeamID,
			"default_team": equipment.DefaultTeamID,
			"equipment_id": equipment.ID.Hex(),
		}).Warn("Explicit team overrides equipment default")
	}

	if e.teams != nil {
		if _, err := e.teams.FindTeamByID(ctx, explicitTeamID); err != nil {
			log.WithError(err).WithField("team_id", explicitTeamID).Warn("Team lookup failed")
		}
	}

	return explicitTeamID, true
}

// GetRequest returns a single request by ID.
func (e *Engine) GetRequest(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	request, err := e.requests.FindRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return request, nil
}

// ListFilter narrows ListRequests. Zero values match everything. A Stage
// expands to the set of statuses projecting onto it; an explicit Status wins
// over a Stage when both are set.
type ListFilter struct {
	Status      models.Status
	EquipmentID string
	Stage       models.Stage
}

// ListRequests returns matching requests in creation order. Board grouping
// depends on this order being stable across calls.
func (e *Engine) ListRequests(ctx context.Context, filter ListFilter) ([]models.MaintenanceRequest, error) {
	query := bson.M{}
	if filter.Stage != "" {
		query["status"] = bson.M{"$in": models.StatusesForStage(filter.Stage)}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.EquipmentID != "" {
		query["equipment_id"] = filter.EquipmentID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := e.requests.FindRequests(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []models.MaintenanceRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// Transition moves a request to targetStatus. The target must be one of the
// eight defined statuses and the request must not already be terminal; no
// further adjacency is enforced, so a request can move from New straight to
// Completed. Entering any terminal status stamps the closure timestamp.
// Entering Completed additionally recomputes the equipment's next due date
// from the completion time.
func (e *Engine) Transition(ctx context.Context, id string, target models.Status, actor string) (*models.MaintenanceRequest, error) {
	if !models.IsValidStatus(target) {
		return nil, fmt.Errorf("status %q: %w", target, ErrInvalidStatus)
	}

	request, err := e.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Terminal() {
		return nil, fmt.Errorf("request %s is %s: %w", id, request.Status, ErrInvalidTransition)
	}

	now := e.nowFn()
	from := request.Status
	request.Status = target
	request.UpdatedAt = now
	request.WorkLog = append(request.WorkLog, models.WorkLogEntry{
		ActorID: actor,
		Note:    fmt.Sprintf("status changed from %s to %s", from, target),
		At:      now,
	})
	if models.IsTerminalStatus(target) {
		request.CompletedAt = &now
	}

	if err := e.requests.UpdateRequest(ctx, id, request.Version, *request); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	request.Version++

	log.WithFields(log.Fields{
		"request_id": id,
		"from":       from,
		"to":         target,
		"actor":      actor,
	}).Info("Maintenance request transitioned")

	if target == models.StatusCompleted {
		e.recomputeDue(ctx, request.EquipmentID, now)
	}

	e.publish(events.NewRequestEvent(events.EventStatusChanged, request, from, target, actor, now))
	e.notify(request)

	return request, nil
}

// recomputeDue refreshes the equipment's maintenance bookkeeping after a
// completion. Best-effort: a failure here never fails the transition that
// triggered it.
func (e *Engine) recomputeDue(ctx context.Context, equipmentID string, completedAt time.Time) {
	equipment, err := e.equipment.FindEquipmentByID(ctx, equipmentID)
	if err != nil {
		log.WithError(err).WithField("equipment_id", equipmentID).Warn("Due-date recompute skipped: equipment lookup failed")
		return
	}

	if !equipment.Schedule.Enabled {
		if err := e.equipment.UpdateMaintenanceDue(ctx, equipmentID, completedAt, nil); err != nil {
			log.WithError(err).WithField("equipment_id", equipmentID).Warn("Last-maintained update failed")
		}
		return
	}

	next, err := scheduling.NextFromSchedule(equipment.Schedule, completedAt)
	if err != nil {
		log.WithError(err).WithField("equipment_id", equipmentID).Warn("Due-date recompute skipped: bad schedule")
		return
	}

	if err := e.equipment.UpdateMaintenanceDue(ctx, equipmentID, completedAt, &next); err != nil {
		log.WithError(err).WithField("equipment_id", equipmentID).Warn("Due-date update failed")
		return
	}

	log.WithFields(log.Fields{
		"equipment_id": equipmentID,
		"next_due":     next.Format(time.RFC3339),
	}).Info("Equipment due date recomputed")
}

// UpdateInput carries the mutable fields of a request. Nil fields are left
// unchanged. Status is not updatable here; use Transition.
type UpdateInput struct {
	Title           *string
	Description     *string
	Type            *models.RequestType
	Priority        *models.Priority
	EquipmentID     *string
	TeamID          *string
	AssignedToID    *string
	ScheduledAt     *time.Time
	DurationMinutes *int
}

// UpdateRequest applies a partial update. Changing the equipment re-resolves
// the team from the new equipment's default unless a team was explicitly
// chosen, either earlier or in this update. Clearing the team falls back to
// the equipment default.
func (e *Engine) UpdateRequest(ctx context.Context, id string, input UpdateInput) (*models.MaintenanceRequest, error) {
	request, err := e.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		request.Title = *input.Title
	}
	if input.Description != nil {
		request.Description = *input.Description
	}
	if input.Type != nil {
		request.Type = *input.Type
	}
	if input.Priority != nil {
		request.Priority = *input.Priority
	}
	if input.AssignedToID != nil {
		request.AssignedToID = *input.AssignedToID
	}
	if input.ScheduledAt != nil {
		request.ScheduledAt = *input.ScheduledAt
	}
	if input.DurationMinutes != nil {
		request.DurationMinutes = *input.DurationMinutes
	}

	equipmentChanged := input.EquipmentID != nil && *input.EquipmentID != request.EquipmentID
	var equipment *models.Equipment
	if equipmentChanged {
		equipment, err = e.equipment.FindEquipmentByID(ctx, *input.EquipmentID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, fmt.Errorf("equipment %s: %w", *input.EquipmentID, ErrNotFound)
			}
			return nil, err
		}
		request.EquipmentID = *input.EquipmentID
	}

	switch {
	case input.TeamID != nil && *input.TeamID != "":
		request.TeamID, request.TeamExplicit = e.resolveTeamUpdate(ctx, *input.TeamID, equipment)
	case input.TeamID != nil:
		request.TeamExplicit = false
		request.TeamID = e.defaultTeamFor(ctx, request.EquipmentID, equipment)
	case equipmentChanged && !request.TeamExplicit:
		request.TeamID = equipment.DefaultTeamID
	}

	request.UpdatedAt = e.nowFn()
	if err := e.requests.UpdateRequest(ctx, id, request.Version, *request); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	request.Version++

	log.WithFields(log.Fields{
		"request_id":   id,
		"equipment_id": request.EquipmentID,
		"team_id":      request.TeamID,
	}).Info("Maintenance request updated")

	e.publish(events.NewRequestEvent(events.EventRequestUpdated, request, request.Status, request.Status, "", request.UpdatedAt))
	e.notify(request)

	return request, nil
}

// resolveTeamUpdate pins an explicitly chosen team, warning when it
// contradicts the equipment default.
func (e *Engine) resolveTeamUpdate(ctx context.Context, teamID string, equipment *models.Equipment) (string, bool) {
	if equipment != nil && equipment.DefaultTeamID != "" && teamID != equipment.DefaultTeamID {
		log.WithFields(log.Fields{
			"team_id":      teamID,
			"default_team": equipment.DefaultTeamID,
			"equipment_id": equipment.ID.Hex(),
		}).Warn("Explicit team overrides equipment default")
	}
	if e.teams != nil {
		if _, err := e.teams.FindTeamByID(ctx, teamID); err != nil {
			log.WithError(err).WithField("team_id", teamID).Warn("Team lookup failed")
		}
	}
	return teamID, true
}

// defaultTeamFor returns the default team of the given equipment, fetching it
// when the caller has not already.
func (e *Engine) defaultTeamFor(ctx context.Context, equipmentID string, equipment *models.Equipment) string {
	if equipment == nil {
		var err error
		equipment, err = e.equipment.FindEquipmentByID(ctx, equipmentID)
		if err != nil {
			log.WithError(err).WithField("equipment_id", equipmentID).Warn("Equipment lookup failed during team fallback")
			return ""
		}
	}
	return equipment.DefaultTeamID
}

// AppendWorkLog appends a timestamped note. Allowed in any status: a closed
// request can still collect follow-up notes.
func (e *Engine) AppendWorkLog(ctx context.Context, id, actor, note string) (*models.MaintenanceRequest, error) {
	entry := models.WorkLogEntry{ActorID: actor, Note: note, At: e.nowFn()}
	request, err := e.requests.AppendWorkLog(ctx, id, entry)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	e.publish(events.NewRequestEvent(events.EventWorkLogAppended, request, request.Status, request.Status, actor, entry.At))

	return request, nil
}

// NextDue computes when the equipment's next preventive maintenance falls
// due. The anchor is the last recorded maintenance, or the equipment's
// creation time when it has never been maintained.
func (e *Engine) NextDue(ctx context.Context, equipmentID string) (time.Time, error) {
	equipment, err := e.equipment.FindEquipmentByID(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return time.Time{}, fmt.Errorf("equipment %s: %w", equipmentID, ErrNotFound)
		}
		return time.Time{}, err
	}

	anchor := equipment.CreatedAt
	if equipment.LastMaintainedAt != nil {
		anchor = *equipment.LastMaintainedAt
	}
	return scheduling.NextFromSchedule(equipment.Schedule, anchor)
}

// Overdue reports whether the request's scheduled time has passed while the
// request is still on an active board stage.
func (e *Engine) Overdue(ctx context.Context, id string, now time.Time) (bool, error) {
	request, err := e.GetRequest(ctx, id)
	if err != nil {
		return false, err
	}
	return scheduling.IsOverdue(request.ScheduledAt, request.Stage(), now), nil
}

func (e *Engine) publish(event events.RequestEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(event); err != nil {
		log.WithError(err).WithField("event_type", event.Type).Warn("Event publish failed")
	}
}

func (e *Engine) notify(request *models.MaintenanceRequest) {
	if e.notifier == nil {
		return
	}
	e.notifier.NotifyRequest(request.ID.Hex(), request.Status, request.Stage())
}
