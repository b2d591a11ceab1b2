package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/equipment-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTeamCollection implements TeamCollection for MongoDB.
type MongoTeamCollection struct {
	Collection *mongo.Collection
}

type mongoTeamCursor struct {
	cursor *mongo.Cursor
}

func (c *mongoTeamCursor) All(ctx context.Context, out interface{}) error {
	return c.cursor.All(ctx, out)
}

func (c *mongoTeamCursor) Close(ctx context.Context) error {
	return c.cursor.Close(ctx)
}

// InsertTeam inserts a maintenance team into the collection.
func (c *MongoTeamCollection) InsertTeam(ctx context.Context, team models.Team) error {
	team.CreatedAt = time.Now()
	team.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, team)
	return err
}

// FindTeams queries maintenance teams from the collection.
func (c *MongoTeamCollection) FindTeams(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (TeamCursor, error) {
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoTeamCursor{cursor: cursor}, nil
}

// FindTeamByID finds a maintenance team by its ID.
func (c *MongoTeamCollection) FindTeamByID(ctx context.Context, id string) (*models.Team, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid team ID: %w", err)
	}
	var team models.Team
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&team)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("team %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &team, nil
}
