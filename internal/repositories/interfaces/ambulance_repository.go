package interfaces

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrAssignmentConflict means a conditional update lost a race: the record
	// no longer satisfied the expected precondition. The caller aborts its
	// attempt and releases anything it tentatively claimed.
	ErrAssignmentConflict = errors.New("assignment conflict")
)

type AmbulanceRepository interface {
	Create(ctx context.Context, ambulance *models.Ambulance) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error)
	GetByDriverID(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error)
	GetAvailable(ctx context.Context) ([]*models.Ambulance, error)
	List(ctx context.Context) ([]*models.Ambulance, error)

	UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error

	// SetOnline and SetOffline are the driver-facing status flips. Neither can
	// touch an ambulance that is ON_TRIP.
	SetOnline(ctx context.Context, id primitive.ObjectID) error
	SetOffline(ctx context.Context, id primitive.ObjectID) error

	// ClaimForTrip conditionally moves AVAILABLE -> ON_TRIP. Returns
	// ErrAssignmentConflict when the ambulance is no longer available, so two
	// concurrent dispatch attempts can never both claim it.
	ClaimForTrip(ctx context.Context, id primitive.ObjectID) error

	// Release conditionally moves ON_TRIP -> AVAILABLE. Releasing an ambulance
	// that is not on a trip is a no-op.
	Release(ctx context.Context, id primitive.ObjectID) error
}
