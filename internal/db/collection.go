package db

import (
	"context"
	"time"

	"github.com/ukydev/equipment-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RequestCollection defines the interface for maintenance request data operations.
type RequestCollection interface {
	InsertRequest(ctx context.Context, request models.MaintenanceRequest) error
	FindRequests(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (RequestCursor, error)
	FindRequestByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
	UpdateRequest(ctx context.Context, id string, expectedVersion int64, request models.MaintenanceRequest) error
	AppendWorkLog(ctx context.Context, id string, entry models.WorkLogEntry) (*models.MaintenanceRequest, error)
}

// RequestCursor defines the interface for maintenance request cursor operations.
type RequestCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

// EquipmentCollection defines the interface for equipment data operations.
type EquipmentCollection interface {
	InsertEquipment(ctx context.Context, equipment models.Equipment) error
	FindEquipment(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (EquipmentCursor, error)
	FindEquipmentByID(ctx context.Context, id string) (*models.Equipment, error)
	UpdateMaintenanceDue(ctx context.Context, id string, lastMaintained time.Time, nextDue *time.Time) error
}

// EquipmentCursor defines the interface for equipment cursor operations.
type EquipmentCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

// TeamCollection defines the interface for maintenance team data operations.
type TeamCollection interface {
	InsertTeam(ctx context.Context, team models.Team) error
	FindTeams(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (TeamCursor, error)
	FindTeamByID(ctx context.Context, id string) (*models.Team, error)
}

// TeamCursor defines the interface for team cursor operations.
type TeamCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}
