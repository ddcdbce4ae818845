package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/internal/utils"
)

type hospitalRepository struct {
	collection *mongo.Collection
}

func NewHospitalRepository(db *mongo.Database) interfaces.HospitalRepository {
	return &hospitalRepository{
		collection: db.Collection(utils.CollectionHospitals),
	}
}

func (r *hospitalRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	var hospital models.Hospital
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&hospital)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get hospital: %w", err)
	}
	return &hospital, nil
}

func (r *hospitalRepository) List(ctx context.Context) ([]*models.Hospital, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list hospitals: %w", err)
	}
	defer cursor.Close(ctx)

	var hospitals []*models.Hospital
	for cursor.Next(ctx) {
		var hospital models.Hospital
		if err := cursor.Decode(&hospital); err != nil {
			return nil, fmt.Errorf("failed to decode hospital: %w", err)
		}
		hospitals = append(hospitals, &hospital)
	}
	return hospitals, cursor.Err()
}

func (r *hospitalRepository) UpdateBeds(ctx context.Context, id primitive.ObjectID, beds models.BedAvailability) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"beds":         beds,
			"last_updated": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update hospital beds: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}
