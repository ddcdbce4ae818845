package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/internal/utils"
	"swasthsuraksha/pkg/logger"
)

// DriverService handles driver onboarding and the lightweight credential check
// used by the driver app: license number plus the phone number on record.
type DriverService interface {
	Register(ctx context.Context, input *RegisterDriverInput) (*models.Driver, error)
	Login(ctx context.Context, licenseNumber, phone string) (*LoginResult, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	UpdateDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error
}

type RegisterDriverInput struct {
	Name          string             `json:"name" binding:"required"`
	Phone         string             `json:"phone" binding:"required"`
	LicenseNumber string             `json:"license_number" binding:"required"`
	AmbulanceID   primitive.ObjectID `json:"ambulance_id"`
}

type LoginResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Driver    *models.Driver `json:"driver"`
}

type driverService struct {
	drivers   interfaces.DriverRepository
	jwtSecret []byte
	jwtExpiry time.Duration
	log       *logger.Logger
}

func NewDriverService(drivers interfaces.DriverRepository, jwtSecret []byte, jwtExpiry time.Duration, log *logger.Logger) DriverService {
	return &driverService{
		drivers:   drivers,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		log:       log,
	}
}

func (s *driverService) Register(ctx context.Context, input *RegisterDriverInput) (*models.Driver, error) {
	driver := &models.Driver{
		Name:          input.Name,
		Phone:         input.Phone,
		LicenseNumber: input.LicenseNumber,
		AmbulanceID:   input.AmbulanceID,
		Status:        models.DriverStatusActive,
	}

	if err := s.drivers.Create(ctx, driver); err != nil {
		return nil, err
	}

	s.log.WithField("driver_id", driver.ID.Hex()).Info("Driver registered")
	return driver, nil
}

func (s *driverService) Login(ctx context.Context, licenseNumber, phone string) (*LoginResult, error) {
	driver, err := s.drivers.GetByLicense(ctx, licenseNumber)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	if driver.Phone != phone || driver.Status != models.DriverStatusActive {
		return nil, fmt.Errorf("invalid credentials")
	}

	expiresAt := time.Now().Add(s.jwtExpiry)
	token, err := utils.GenerateJWT(s.jwtSecret, driver.ID.Hex(), "driver", s.jwtExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Driver:    driver,
	}, nil
}

func (s *driverService) Get(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	return s.drivers.GetByID(ctx, id)
}

func (s *driverService) UpdateDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return s.drivers.UpdateDeviceToken(ctx, id, token)
}
