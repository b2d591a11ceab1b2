package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeamMember is a user's membership in a maintenance team.
type TeamMember struct {
	UserID string `json:"user_id" bson:"user_id"`
	Role   string `json:"role" bson:"role"` // "lead" or "technician"
}

// Team represents a maintenance crew. The team directory is owned by the
// enclosing application and read-only from this engine's point of view.
type Team struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	Specializations []string           `json:"specializations,omitempty" bson:"specializations,omitempty"`
	Members         []TeamMember       `json:"members,omitempty" bson:"members,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}
