package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/realtime"
	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/internal/utils"
)

type ambulanceRepository struct {
	collection *mongo.Collection
	broker     *realtime.Broker
}

func NewAmbulanceRepository(db *mongo.Database, broker *realtime.Broker) interfaces.AmbulanceRepository {
	return &ambulanceRepository{
		collection: db.Collection(utils.CollectionAmbulances),
		broker:     broker,
	}
}

func (r *ambulanceRepository) Create(ctx context.Context, ambulance *models.Ambulance) error {
	ambulance.ID = primitive.NewObjectID()
	if ambulance.Status == "" {
		ambulance.Status = models.AmbulanceStatusOffline
	}
	ambulance.CreatedAt = time.Now()
	ambulance.LastUpdated = ambulance.CreatedAt

	_, err := r.collection.InsertOne(ctx, ambulance)
	if err != nil {
		return fmt.Errorf("failed to create ambulance: %w", err)
	}

	r.broker.PublishAmbulance(realtime.ChangeCreated, ambulance)
	return nil
}

func (r *ambulanceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	var ambulance models.Ambulance
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ambulance: %w", err)
	}
	return &ambulance, nil
}

func (r *ambulanceRepository) GetByDriverID(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error) {
	var ambulance models.Ambulance
	err := r.collection.FindOne(ctx, bson.M{"driver_id": driverID}).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ambulance by driver: %w", err)
	}
	return &ambulance, nil
}

func (r *ambulanceRepository) GetAvailable(ctx context.Context) ([]*models.Ambulance, error) {
	// Stable order so nearest-selection tie-breaking is deterministic.
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"status": models.AmbulanceStatusAvailable}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find available ambulances: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeAmbulances(ctx, cursor)
}

func (r *ambulanceRepository) List(ctx context.Context) ([]*models.Ambulance, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list ambulances: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeAmbulances(ctx, cursor)
}

func (r *ambulanceRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error {
	updated, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"location":     location,
			"last_updated": time.Now(),
		}},
	)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to update ambulance location: %w", err)
	}

	r.broker.PublishAmbulance(realtime.ChangeUpdated, updated)
	return nil
}

func (r *ambulanceRepository) SetOnline(ctx context.Context, id primitive.ObjectID) error {
	return r.setStatus(ctx, id, models.AmbulanceStatusOffline, models.AmbulanceStatusAvailable)
}

func (r *ambulanceRepository) SetOffline(ctx context.Context, id primitive.ObjectID) error {
	return r.setStatus(ctx, id, models.AmbulanceStatusAvailable, models.AmbulanceStatusOffline)
}

// setStatus applies a driver-facing status flip with the current status as a
// precondition, so a driver can never pull an ambulance out of an active trip.
func (r *ambulanceRepository) setStatus(ctx context.Context, id primitive.ObjectID, from, to models.AmbulanceStatus) error {
	updated, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{
			"status":       to,
			"last_updated": time.Now(),
		}},
	)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Distinguish a missing record from a precondition failure.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return getErr
			}
			return interfaces.ErrAssignmentConflict
		}
		return fmt.Errorf("failed to update ambulance status: %w", err)
	}

	r.broker.PublishAmbulance(realtime.ChangeUpdated, updated)
	return nil
}

func (r *ambulanceRepository) ClaimForTrip(ctx context.Context, id primitive.ObjectID) error {
	updated, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.AmbulanceStatusAvailable},
		bson.M{"$set": bson.M{
			"status":       models.AmbulanceStatusOnTrip,
			"last_updated": time.Now(),
		}},
	)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return getErr
			}
			return interfaces.ErrAssignmentConflict
		}
		return fmt.Errorf("failed to claim ambulance: %w", err)
	}

	r.broker.PublishAmbulance(realtime.ChangeUpdated, updated)
	return nil
}

func (r *ambulanceRepository) Release(ctx context.Context, id primitive.ObjectID) error {
	updated, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.AmbulanceStatusOnTrip},
		bson.M{"$set": bson.M{
			"status":       models.AmbulanceStatusAvailable,
			"last_updated": time.Now(),
		}},
	)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Already released or never claimed; releasing is idempotent.
			return nil
		}
		return fmt.Errorf("failed to release ambulance: %w", err)
	}

	r.broker.PublishAmbulance(realtime.ChangeUpdated, updated)
	return nil
}

func (r *ambulanceRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Ambulance, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ambulance models.Ambulance
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ambulance); err != nil {
		return nil, err
	}
	return &ambulance, nil
}

func decodeAmbulances(ctx context.Context, cursor *mongo.Cursor) ([]*models.Ambulance, error) {
	var ambulances []*models.Ambulance
	for cursor.Next(ctx) {
		var ambulance models.Ambulance
		if err := cursor.Decode(&ambulance); err != nil {
			return nil, fmt.Errorf("failed to decode ambulance: %w", err)
		}
		ambulances = append(ambulances, &ambulance)
	}
	return ambulances, cursor.Err()
}
