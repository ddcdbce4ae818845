package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/pkg/logger"
)

// AmbulanceService is the fleet-facing surface: registration, the driver's
// location heartbeat, and the online/offline status flips.
type AmbulanceService interface {
	Register(ctx context.Context, input *RegisterAmbulanceInput) (*models.Ambulance, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error)
	List(ctx context.Context) ([]*models.Ambulance, error)
	ListAvailable(ctx context.Context) ([]*models.Ambulance, error)
	UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.AmbulanceStatus) error
}

type RegisterAmbulanceInput struct {
	Type          models.AmbulanceType `json:"type" binding:"required"`
	VehicleNumber string               `json:"vehicle_number" binding:"required"`
	DriverID      primitive.ObjectID   `json:"driver_id"`
	DriverName    string               `json:"driver_name"`
	Location      models.Location      `json:"location"`
}

type ambulanceService struct {
	ambulances interfaces.AmbulanceRepository
	log        *logger.Logger
}

func NewAmbulanceService(ambulances interfaces.AmbulanceRepository, log *logger.Logger) AmbulanceService {
	return &ambulanceService{
		ambulances: ambulances,
		log:        log,
	}
}

func (s *ambulanceService) Register(ctx context.Context, input *RegisterAmbulanceInput) (*models.Ambulance, error) {
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ambulance type: %s", input.Type)
	}

	ambulance := &models.Ambulance{
		Type:          input.Type,
		VehicleNumber: input.VehicleNumber,
		DriverID:      input.DriverID,
		DriverName:    input.DriverName,
		Location:      input.Location,
		Status:        models.AmbulanceStatusOffline,
	}

	if err := s.ambulances.Create(ctx, ambulance); err != nil {
		return nil, err
	}

	s.log.WithAmbulanceID(ambulance.ID).Info("Ambulance registered")
	return ambulance, nil
}

func (s *ambulanceService) Get(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	return s.ambulances.GetByID(ctx, id)
}

func (s *ambulanceService) GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error) {
	return s.ambulances.GetByDriverID(ctx, driverID)
}

func (s *ambulanceService) List(ctx context.Context) ([]*models.Ambulance, error) {
	return s.ambulances.List(ctx)
}

func (s *ambulanceService) ListAvailable(ctx context.Context) ([]*models.Ambulance, error) {
	return s.ambulances.GetAvailable(ctx)
}

func (s *ambulanceService) UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error {
	if location.IsZero() {
		return fmt.Errorf("location must not be zero")
	}
	return s.ambulances.UpdateLocation(ctx, id, location)
}

// SetStatus handles the driver toggles. ON_TRIP is owned by dispatch and can
// not be entered or left through this path.
func (s *ambulanceService) SetStatus(ctx context.Context, id primitive.ObjectID, status models.AmbulanceStatus) error {
	switch status {
	case models.AmbulanceStatusAvailable:
		return s.ambulances.SetOnline(ctx, id)
	case models.AmbulanceStatusOffline:
		return s.ambulances.SetOffline(ctx, id)
	default:
		return fmt.Errorf("status %s cannot be set directly", status)
	}
}
