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

type requestRepository struct {
	collection *mongo.Collection
	broker     *realtime.Broker
}

func NewRequestRepository(db *mongo.Database, broker *realtime.Broker) interfaces.RequestRepository {
	return &requestRepository{
		collection: db.Collection(utils.CollectionRequests),
		broker:     broker,
	}
}

func (r *requestRepository) Create(ctx context.Context, request *models.EmergencyRequest) error {
	request.ID = primitive.NewObjectID()
	request.Status = models.RequestStatusPending
	request.AssignedAmbulanceID = nil
	request.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to create emergency request: %w", err)
	}

	r.broker.PublishRequest(realtime.ChangeCreated, request)
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	var request models.EmergencyRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get emergency request: %w", err)
	}
	return &request, nil
}

func (r *requestRepository) GetPending(ctx context.Context) ([]*models.EmergencyRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"status": models.RequestStatusPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending requests: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeRequests(ctx, cursor)
}

func (r *requestRepository) GetActiveByAmbulance(ctx context.Context, ambulanceID primitive.ObjectID) ([]*models.EmergencyRequest, error) {
	filter := bson.M{
		"assigned_ambulance_id": ambulanceID,
		"status": bson.M{"$in": []models.RequestStatus{
			models.RequestStatusAssigned,
			models.RequestStatusEnRoute,
		}},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find ambulance requests: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeRequests(ctx, cursor)
}

func (r *requestRepository) BindAmbulance(ctx context.Context, id, ambulanceID primitive.ObjectID, estimatedArrival time.Time) (*models.EmergencyRequest, error) {
	updated, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.RequestStatusPending},
		bson.M{"$set": bson.M{
			"status":                models.RequestStatusAssigned,
			"assigned_ambulance_id": ambulanceID,
			"estimated_arrival":     estimatedArrival,
		}},
	)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, interfaces.ErrAssignmentConflict
		}
		return nil, fmt.Errorf("failed to bind ambulance: %w", err)
	}

	r.broker.PublishRequest(realtime.ChangeUpdated, updated)
	return updated, nil
}

func (r *requestRepository) AdvanceStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus) (*models.EmergencyRequest, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("illegal request transition %s -> %s", from, to)
	}

	updated, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, interfaces.ErrAssignmentConflict
		}
		return nil, fmt.Errorf("failed to advance request status: %w", err)
	}

	r.broker.PublishRequest(realtime.ChangeUpdated, updated)
	return updated, nil
}

func (r *requestRepository) Cancel(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, bool, error) {
	updated, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []models.RequestStatus{
			models.RequestStatusPending,
			models.RequestStatusAssigned,
			models.RequestStatusEnRoute,
		}}},
		bson.M{"$set": bson.M{"status": models.RequestStatusCancelled}},
	)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Already terminal: cancelling twice is a no-op, return the record.
			// Reporting won=false keeps a racing completion's ambulance claim
			// intact.
			request, getErr := r.GetByID(ctx, id)
			return request, false, getErr
		}
		return nil, false, fmt.Errorf("failed to cancel request: %w", err)
	}

	r.broker.PublishRequest(realtime.ChangeUpdated, updated)
	return updated, true, nil
}

func (r *requestRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.EmergencyRequest, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var request models.EmergencyRequest
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&request); err != nil {
		return nil, err
	}
	return &request, nil
}

func decodeRequests(ctx context.Context, cursor *mongo.Cursor) ([]*models.EmergencyRequest, error) {
	var requests []*models.EmergencyRequest
	for cursor.Next(ctx) {
		var request models.EmergencyRequest
		if err := cursor.Decode(&request); err != nil {
			return nil, fmt.Errorf("failed to decode emergency request: %w", err)
		}
		requests = append(requests, &request)
	}
	return requests, cursor.Err()
}
