package interfaces

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
)

type RequestRepository interface {
	Create(ctx context.Context, request *models.EmergencyRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error)

	// GetPending returns pending requests ordered by creation time descending.
	GetPending(ctx context.Context) ([]*models.EmergencyRequest, error)

	// GetActiveByAmbulance returns the requests bound to an ambulance whose
	// status is ASSIGNED or EN_ROUTE.
	GetActiveByAmbulance(ctx context.Context, ambulanceID primitive.ObjectID) ([]*models.EmergencyRequest, error)

	// BindAmbulance conditionally moves PENDING -> ASSIGNED, recording the
	// ambulance and ETA in the same operation. Returns ErrAssignmentConflict
	// when the request is no longer pending.
	BindAmbulance(ctx context.Context, id, ambulanceID primitive.ObjectID, estimatedArrival time.Time) (*models.EmergencyRequest, error)

	// AdvanceStatus conditionally moves from -> to; the filter carries the
	// precondition so a stale caller observes ErrAssignmentConflict.
	AdvanceStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus) (*models.EmergencyRequest, error)

	// Cancel moves any non-terminal status to CANCELLED. Cancelling a request
	// that is already terminal is a no-op; the returned request reflects the
	// stored state either way. The bool reports whether this call performed
	// the transition, so callers only unwind side effects (releasing the
	// bound ambulance) when they actually won it.
	Cancel(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, bool, error)
}
