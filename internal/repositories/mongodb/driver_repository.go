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

type driverRepository struct {
	collection *mongo.Collection
}

func NewDriverRepository(db *mongo.Database) interfaces.DriverRepository {
	return &driverRepository{
		collection: db.Collection(utils.CollectionDrivers),
	}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	driver.ID = primitive.NewObjectID()
	if driver.Status == "" {
		driver.Status = models.DriverStatusActive
	}
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = driver.CreatedAt

	_, err := r.collection.InsertOne(ctx, driver)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	return nil
}

func (r *driverRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	var driver models.Driver
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}
	return &driver, nil
}

func (r *driverRepository) GetByLicense(ctx context.Context, licenseNumber string) (*models.Driver, error) {
	var driver models.Driver
	err := r.collection.FindOne(ctx, bson.M{"license_number": licenseNumber}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get driver by license: %w", err)
	}
	return &driver, nil
}

func (r *driverRepository) UpdateDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"device_token": token,
			"updated_at":   time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update device token: %w", err)
	}
	return nil
}
