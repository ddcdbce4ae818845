package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	GetByLicense(ctx context.Context, licenseNumber string) (*models.Driver, error)
	UpdateDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error
}
