package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the authoritative, persisted lifecycle value of a maintenance request.
type Status string

const (
	StatusNew             Status = "new"
	StatusAssigned        Status = "assigned"
	StatusInProgress      Status = "in_progress"
	StatusWaitingForParts Status = "waiting_for_parts"
	StatusOnHold          Status = "on_hold"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
	StatusRejected        Status = "rejected"
)

// AllStatuses lists every defined status in declaration order.
var AllStatuses = []Status{
	StatusNew,
	StatusAssigned,
	StatusInProgress,
	StatusWaitingForParts,
	StatusOnHold,
	StatusCompleted,
	StatusCancelled,
	StatusRejected,
}

// TerminalStatuses are statuses with no outgoing transitions. A request in one
// of these can still collect work-log entries but its status is locked.
var TerminalStatuses = []Status{
	StatusCompleted,
	StatusCancelled,
	StatusRejected,
}

// IsValidStatus reports whether s is one of the eight defined statuses.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress, StatusWaitingForParts,
		StatusOnHold, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminalStatus reports whether s permits no further transitions.
func IsTerminalStatus(s Status) bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// RequestType categorizes why the maintenance is being performed.
type RequestType string

const (
	TypeCorrective RequestType = "corrective"
	TypePreventive RequestType = "preventive"
	TypePredictive RequestType = "predictive"
	TypeEmergency  RequestType = "emergency"
)

// IsValidRequestType reports whether t is a defined request type.
func IsValidRequestType(t RequestType) bool {
	switch t {
	case TypeCorrective, TypePreventive, TypePredictive, TypeEmergency:
		return true
	default:
		return false
	}
}

// Priority ranks how urgently a request should be worked.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityCritical  Priority = "critical"
	PriorityEmergency Priority = "emergency"
)

// IsValidPriority reports whether p is a defined priority.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical, PriorityEmergency:
		return true
	default:
		return false
	}
}

// WorkLogEntry is a timestamped note appended to a request by an actor.
type WorkLogEntry struct {
	ActorID string    `json:"actor_id" bson:"actor_id"`
	Note    string    `json:"note" bson:"note"`
	At      time.Time `json:"at" bson:"at"`
}

// MaintenanceRequest represents a maintenance request against a piece of equipment.
type MaintenanceRequest struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title           string             `json:"title" bson:"title"`
	Description     string             `json:"description" bson:"description"`
	Type            RequestType        `json:"type" bson:"type"`         // "corrective", "preventive", "predictive", "emergency"
	Priority        Priority           `json:"priority" bson:"priority"` // "low", "medium", "high", "critical", "emergency"
	Status          Status             `json:"status" bson:"status"`
	EquipmentID     string             `json:"equipment_id" bson:"equipment_id"`
	TeamID          string             `json:"team_id,omitempty" bson:"team_id,omitempty"`
	TeamExplicit    bool               `json:"team_explicit" bson:"team_explicit"` // caller pinned the team; equipment changes keep it
	AssignedToID    string             `json:"assigned_to_id,omitempty" bson:"assigned_to_id,omitempty"`
	RequestedByID   string             `json:"requested_by_id" bson:"requested_by_id"`
	ScheduledAt     time.Time          `json:"scheduled_at" bson:"scheduled_at"`
	DurationMinutes int                `json:"duration_minutes,omitempty" bson:"duration_minutes,omitempty"`
	WorkLog         []WorkLogEntry     `json:"work_log,omitempty" bson:"work_log,omitempty"`
	Version         int64              `json:"version" bson:"version"` // bumped on every write, detects lost updates
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// Terminal reports whether the request's status is terminal.
func (r *MaintenanceRequest) Terminal() bool {
	return IsTerminalStatus(r.Status)
}

// Stage returns the board stage the request currently belongs to.
func (r *MaintenanceRequest) Stage() Stage {
	return StageForStatus(r.Status)
}
