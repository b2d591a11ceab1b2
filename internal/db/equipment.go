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

// MongoEquipmentCollection implements EquipmentCollection for MongoDB.
type MongoEquipmentCollection struct {
	Collection *mongo.Collection
}

type mongoEquipmentCursor struct {
	cursor *mongo.Cursor
}

func (c *mongoEquipmentCursor) All(ctx context.Context, out interface{}) error {
	return c.cursor.All(ctx, out)
}

func (c *mongoEquipmentCursor) Close(ctx context.Context) error {
	return c.cursor.Close(ctx)
}

// InsertEquipment inserts an equipment record into the collection.
func (c *MongoEquipmentCollection) InsertEquipment(ctx context.Context, equipment models.Equipment) error {
	equipment.CreatedAt = time.Now()
	equipment.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, equipment)
	return err
}

// FindEquipment queries equipment records from the collection.
func (c *MongoEquipmentCollection) FindEquipment(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (EquipmentCursor, error) {
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoEquipmentCursor{cursor: cursor}, nil
}

// FindEquipmentByID finds an equipment record by its ID.
func (c *MongoEquipmentCollection) FindEquipmentByID(ctx context.Context, id string) (*models.Equipment, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid equipment ID: %w", err)
	}
	var equipment models.Equipment
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&equipment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("equipment %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &equipment, nil
}

// UpdateMaintenanceDue records when a piece of equipment was last maintained
// and when its next maintenance falls due. A nil nextDue leaves the stored
// due date untouched.
func (c *MongoEquipmentCollection) UpdateMaintenanceDue(ctx context.Context, id string, lastMaintained time.Time, nextDue *time.Time) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid equipment ID: %w", err)
	}

	set := bson.M{
		"last_maintained_at": lastMaintained,
		"updated_at":         time.Now(),
	}
	if nextDue != nil {
		set["next_due_at"] = *nextDue
	}

	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("equipment %s: %w", id, ErrNotFound)
	}
	return nil
}
