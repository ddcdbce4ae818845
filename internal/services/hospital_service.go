package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/pkg/logger"
)

// HospitalService backs the hospital dashboard: the facility list and the bed
// availability counters it keeps current.
type HospitalService interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error)
	List(ctx context.Context) ([]*models.Hospital, error)
	UpdateBeds(ctx context.Context, id primitive.ObjectID, beds models.BedAvailability) error
}

type hospitalService struct {
	hospitals interfaces.HospitalRepository
	log       *logger.Logger
}

func NewHospitalService(hospitals interfaces.HospitalRepository, log *logger.Logger) HospitalService {
	return &hospitalService{
		hospitals: hospitals,
		log:       log,
	}
}

func (s *hospitalService) Get(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	return s.hospitals.GetByID(ctx, id)
}

func (s *hospitalService) List(ctx context.Context) ([]*models.Hospital, error) {
	return s.hospitals.List(ctx)
}

func (s *hospitalService) UpdateBeds(ctx context.Context, id primitive.ObjectID, beds models.BedAvailability) error {
	if err := s.hospitals.UpdateBeds(ctx, id, beds); err != nil {
		return err
	}

	s.log.WithField("hospital_id", id.Hex()).Info("Hospital bed availability updated")
	return nil
}
