package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
)

type HospitalRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error)
	List(ctx context.Context) ([]*models.Hospital, error)
	UpdateBeds(ctx context.Context, id primitive.ObjectID, beds models.BedAvailability) error
}
