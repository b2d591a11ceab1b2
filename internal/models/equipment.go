package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FrequencyUnit is the calendar unit of a recurring maintenance interval.
type FrequencyUnit string

const (
	FrequencyDays   FrequencyUnit = "days"
	FrequencyWeeks  FrequencyUnit = "weeks"
	FrequencyMonths FrequencyUnit = "months"
	FrequencyYears  FrequencyUnit = "years"
)

// IsValidFrequencyUnit reports whether u is one of the four defined units.
func IsValidFrequencyUnit(u FrequencyUnit) bool {
	switch u {
	case FrequencyDays, FrequencyWeeks, FrequencyMonths, FrequencyYears:
		return true
	default:
		return false
	}
}

// RecurringSchedule is the equipment-level preventive maintenance configuration.
// When enabled, the interval must be >= 1 and the frequency one of the defined
// units; the scheduling package enforces this and never silently defaults.
type RecurringSchedule struct {
	Enabled   bool          `json:"enabled" bson:"enabled"`
	Type      RequestType   `json:"type" bson:"type"`
	Interval  int           `json:"interval" bson:"interval"`
	Frequency FrequencyUnit `json:"frequency" bson:"frequency"` // "days", "weeks", "months", "years"
}

// Equipment represents a maintainable asset. The equipment directory is owned
// by the enclosing application; this engine only reads it and writes back the
// maintenance due-date fields after a completion.
type Equipment struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name             string             `json:"name" bson:"name"`
	Category         string             `json:"category" bson:"category"`
	DefaultTeamID    string             `json:"default_team_id,omitempty" bson:"default_team_id,omitempty"`
	Schedule         RecurringSchedule  `json:"schedule" bson:"schedule"`
	LastMaintainedAt *time.Time         `json:"last_maintained_at,omitempty" bson:"last_maintained_at,omitempty"`
	NextDueAt        *time.Time         `json:"next_due_at,omitempty" bson:"next_due_at,omitempty"`
	Status           string             `json:"status" bson:"status"` // "active" or "retired"
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" bson:"updated_at"`
}
