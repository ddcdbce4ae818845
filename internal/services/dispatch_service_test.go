package services

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/pkg/logger"
	"swasthsuraksha/pkg/sms"
)

// fakeAmbulanceRepo mirrors the conditional-update semantics of the mongo
// implementation: ClaimForTrip and Release check the stored status under a
// lock, so concurrent claims observe the same races the real repository would.
type fakeAmbulanceRepo struct {
	mu         sync.Mutex
	ambulances map[primitive.ObjectID]*models.Ambulance
}

func newFakeAmbulanceRepo() *fakeAmbulanceRepo {
	return &fakeAmbulanceRepo{ambulances: make(map[primitive.ObjectID]*models.Ambulance)}
}

func (r *fakeAmbulanceRepo) add(status models.AmbulanceStatus, lat, lng float64) *models.Ambulance {
	r.mu.Lock()
	defer r.mu.Unlock()

	ambulance := &models.Ambulance{
		ID:            primitive.NewObjectID(),
		Status:        status,
		Type:          models.AmbulanceTypeBasic,
		Location:      models.Location{Lat: lat, Lng: lng},
		DriverID:      primitive.NewObjectID(),
		VehicleNumber: "KA-01-" + primitive.NewObjectID().Hex()[:4],
	}
	r.ambulances[ambulance.ID] = ambulance
	return ambulance
}

func (r *fakeAmbulanceRepo) Create(ctx context.Context, ambulance *models.Ambulance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ambulance.ID = primitive.NewObjectID()
	r.ambulances[ambulance.ID] = ambulance
	return nil
}

func (r *fakeAmbulanceRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ambulance, ok := r.ambulances[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *ambulance
	return &copied, nil
}

func (r *fakeAmbulanceRepo) GetByDriverID(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ambulance := range r.ambulances {
		if ambulance.DriverID == driverID {
			copied := *ambulance
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeAmbulanceRepo) GetAvailable(ctx context.Context) ([]*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var available []*models.Ambulance
	for _, ambulance := range r.ambulances {
		if ambulance.Status == models.AmbulanceStatusAvailable {
			copied := *ambulance
			available = append(available, &copied)
		}
	}
	sort.Slice(available, func(i, j int) bool {
		return available[i].ID.Hex() < available[j].ID.Hex()
	})
	return available, nil
}

func (r *fakeAmbulanceRepo) List(ctx context.Context) ([]*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*models.Ambulance
	for _, ambulance := range r.ambulances {
		copied := *ambulance
		all = append(all, &copied)
	}
	return all, nil
}

func (r *fakeAmbulanceRepo) UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ambulance, ok := r.ambulances[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	ambulance.Location = location
	return nil
}

func (r *fakeAmbulanceRepo) SetOnline(ctx context.Context, id primitive.ObjectID) error {
	return r.setStatus(id, models.AmbulanceStatusOffline, models.AmbulanceStatusAvailable)
}

func (r *fakeAmbulanceRepo) SetOffline(ctx context.Context, id primitive.ObjectID) error {
	return r.setStatus(id, models.AmbulanceStatusAvailable, models.AmbulanceStatusOffline)
}

func (r *fakeAmbulanceRepo) setStatus(id primitive.ObjectID, from, to models.AmbulanceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ambulance, ok := r.ambulances[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	if ambulance.Status != from {
		return interfaces.ErrAssignmentConflict
	}
	ambulance.Status = to
	return nil
}

func (r *fakeAmbulanceRepo) ClaimForTrip(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ambulance, ok := r.ambulances[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	if ambulance.Status != models.AmbulanceStatusAvailable {
		return interfaces.ErrAssignmentConflict
	}
	ambulance.Status = models.AmbulanceStatusOnTrip
	return nil
}

func (r *fakeAmbulanceRepo) Release(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ambulance, ok := r.ambulances[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	if ambulance.Status == models.AmbulanceStatusOnTrip {
		ambulance.Status = models.AmbulanceStatusAvailable
	}
	return nil
}

func (r *fakeAmbulanceRepo) status(id primitive.ObjectID) models.AmbulanceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ambulances[id].Status
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.EmergencyRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[primitive.ObjectID]*models.EmergencyRequest)}
}

func (r *fakeRequestRepo) Create(ctx context.Context, request *models.EmergencyRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request.ID = primitive.NewObjectID()
	request.Status = models.RequestStatusPending
	request.AssignedAmbulanceID = nil
	request.CreatedAt = time.Now()
	copied := *request
	r.requests[request.ID] = &copied
	return nil
}

func (r *fakeRequestRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (r *fakeRequestRepo) GetPending(ctx context.Context) ([]*models.EmergencyRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*models.EmergencyRequest
	for _, request := range r.requests {
		if request.Status == models.RequestStatusPending {
			copied := *request
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	return pending, nil
}

func (r *fakeRequestRepo) GetActiveByAmbulance(ctx context.Context, ambulanceID primitive.ObjectID) ([]*models.EmergencyRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []*models.EmergencyRequest
	for _, request := range r.requests {
		if request.AssignedAmbulanceID != nil && *request.AssignedAmbulanceID == ambulanceID &&
			(request.Status == models.RequestStatusAssigned || request.Status == models.RequestStatusEnRoute) {
			copied := *request
			active = append(active, &copied)
		}
	}
	return active, nil
}

func (r *fakeRequestRepo) BindAmbulance(ctx context.Context, id, ambulanceID primitive.ObjectID, estimatedArrival time.Time) (*models.EmergencyRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if request.Status != models.RequestStatusPending {
		return nil, interfaces.ErrAssignmentConflict
	}
	request.Status = models.RequestStatusAssigned
	request.AssignedAmbulanceID = &ambulanceID
	request.EstimatedArrival = &estimatedArrival
	copied := *request
	return &copied, nil
}

func (r *fakeRequestRepo) AdvanceStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus) (*models.EmergencyRequest, error) {
	if !from.CanTransitionTo(to) {
		return nil, interfaces.ErrAssignmentConflict
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if request.Status != from {
		return nil, interfaces.ErrAssignmentConflict
	}
	request.Status = to
	copied := *request
	return &copied, nil
}

func (r *fakeRequestRepo) Cancel(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, false, interfaces.ErrNotFound
	}
	won := !request.Status.IsTerminal()
	if won {
		request.Status = models.RequestStatusCancelled
	}
	copied := *request
	return &copied, won, nil
}

type fakeDriverRepo struct{}

func (fakeDriverRepo) Create(ctx context.Context, driver *models.Driver) error { return nil }
func (fakeDriverRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	return nil, interfaces.ErrNotFound
}
func (fakeDriverRepo) GetByLicense(ctx context.Context, licenseNumber string) (*models.Driver, error) {
	return nil, interfaces.ErrNotFound
}
func (fakeDriverRepo) UpdateDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return nil
}

// recordingSMS captures outbound messages so tests can assert on
// notifications without a network.
type recordingSMS struct {
	mu       sync.Mutex
	messages []*sms.SMSRequest
}

func (r *recordingSMS) SendSMS(ctx context.Context, request *sms.SMSRequest) (*sms.SMSResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, request)
	return &sms.SMSResponse{MessageID: "test", Status: "sent"}, nil
}

func (r *recordingSMS) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text"})
	require.NoError(t, err)
	log.SetOutput(io.Discard)
	return log
}

type dispatchFixture struct {
	service    DispatchService
	requests   *fakeRequestRepo
	ambulances *fakeAmbulanceRepo
	sms        *recordingSMS
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	requests := newFakeRequestRepo()
	ambulances := newFakeAmbulanceRepo()
	smsRec := &recordingSMS{}

	service := NewDispatchService(
		requests, ambulances, fakeDriverRepo{},
		smsRec, nil, nil,
		0, testLogger(t),
	)

	return &dispatchFixture{
		service:    service,
		requests:   requests,
		ambulances: ambulances,
		sms:        smsRec,
	}
}

func (f *dispatchFixture) newPendingRequest(t *testing.T, lat, lng float64) *models.EmergencyRequest {
	t.Helper()
	request := &models.EmergencyRequest{
		Location:      models.Location{Lat: lat, Lng: lng},
		PatientPhone:  "+919876543210",
		EmergencyType: models.EmergencyTypeCardiac,
		Priority:      models.PriorityHigh,
	}
	require.NoError(t, f.requests.Create(context.Background(), request))
	return request
}

func TestAssignNearestPicksClosestAmbulance(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	// Three available ambulances at roughly 3.0, 1.2, and 7.5 km from the
	// patient (1 degree of latitude is about 111 km).
	far := f.ambulances.add(models.AmbulanceStatusAvailable, 0.027, 0)
	near := f.ambulances.add(models.AmbulanceStatusAvailable, 0.0108, 0)
	farthest := f.ambulances.add(models.AmbulanceStatusAvailable, 0.0675, 0)

	request := f.newPendingRequest(t, 0, 0)
	require.NoError(t, f.service.AssignNearest(ctx, request.ID))

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAssigned, stored.Status)
	require.NotNil(t, stored.AssignedAmbulanceID)
	assert.Equal(t, near.ID, *stored.AssignedAmbulanceID)
	require.NotNil(t, stored.EstimatedArrival)

	assert.Equal(t, models.AmbulanceStatusOnTrip, f.ambulances.status(near.ID))
	assert.Equal(t, models.AmbulanceStatusAvailable, f.ambulances.status(far.ID))
	assert.Equal(t, models.AmbulanceStatusAvailable, f.ambulances.status(farthest.ID))

	// Patient was told about the assignment.
	assert.Equal(t, 1, f.sms.count())
}

func TestAssignNearestNoCandidatesLeavesPending(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	f.ambulances.add(models.AmbulanceStatusOffline, 0.01, 0)
	f.ambulances.add(models.AmbulanceStatusOnTrip, 0.01, 0)

	request := f.newPendingRequest(t, 0, 0)
	require.NoError(t, f.service.AssignNearest(ctx, request.ID))

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, stored.Status)
	assert.Nil(t, stored.AssignedAmbulanceID)
	assert.Zero(t, f.sms.count())
}

func TestAssignNearestIsNoOpOnNonPendingRequest(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	first := f.ambulances.add(models.AmbulanceStatusAvailable, 0.01, 0)
	second := f.ambulances.add(models.AmbulanceStatusAvailable, 0.02, 0)

	request := f.newPendingRequest(t, 0, 0)
	require.NoError(t, f.service.AssignNearest(ctx, request.ID))
	require.NoError(t, f.service.AssignNearest(ctx, request.ID))

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, *stored.AssignedAmbulanceID)
	assert.Equal(t, models.AmbulanceStatusAvailable, f.ambulances.status(second.ID))
}

func TestCreateRequestTriggersAssignment(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	ambulance := f.ambulances.add(models.AmbulanceStatusAvailable, 0.01, 0)

	request, err := f.service.CreateRequest(ctx, &CreateRequestInput{
		Location:      models.Location{Lat: 0, Lng: 0},
		PatientPhone:  "+919876543210",
		EmergencyType: models.EmergencyTypeAccident,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, request.Priority)

	require.Eventually(t, func() bool {
		stored, err := f.requests.GetByID(ctx, request.ID)
		return err == nil && stored.Status == models.RequestStatusAssigned
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.AmbulanceStatusOnTrip, f.ambulances.status(ambulance.ID))
}

func TestCreateRequestRejectsInvalidType(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.service.CreateRequest(context.Background(), &CreateRequestInput{
		Location:      models.Location{Lat: 0.01, Lng: 0},
		PatientPhone:  "+919876543210",
		EmergencyType: "volcano",
	})
	assert.Error(t, err)
}

func TestFullLifecycle(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	ambulance := f.ambulances.add(models.AmbulanceStatusAvailable, 0.01, 0)
	request := f.newPendingRequest(t, 0, 0)

	require.NoError(t, f.service.AssignNearest(ctx, request.ID))
	require.NoError(t, f.service.StartTrip(ctx, request.ID, ambulance.ID))

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusEnRoute, stored.Status)

	require.NoError(t, f.service.CompleteRequest(ctx, request.ID, ambulance.ID))

	stored, err = f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, stored.Status)
	assert.Equal(t, models.AmbulanceStatusAvailable, f.ambulances.status(ambulance.ID))
}

func TestCompleteDirectlyFromAssigned(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	ambulance := f.ambulances.add(models.AmbulanceStatusAvailable, 0.01, 0)
	request := f.newPendingRequest(t, 0, 0)

	require.NoError(t, f.service.AssignNearest(ctx, request.ID))
	require.NoError(t, f.service.CompleteRequest(ctx, request.ID, ambulance.ID))

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, stored.Status)
	assert.Equal(t, models.AmbulanceStatusAvailable, f.ambulances.status(ambulance.ID))
}

func TestStartTripRejectsWrongAmbulance(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	assigned := f.ambulances.add(models.AmbulanceStatusAvailable, 0.01, 0)
	other := f.ambulances.add(models.AmbulanceStatusAvailable, 0.02, 0)
	request := f.newPendingRequest(t, 0, 0)

	require.NoError(t, f.service.AssignNearest(ctx, request.ID))
	assert.Error(t, f.service.StartTrip(ctx, request.ID, other.ID))

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAssigned, stored.Status)
	assert.Equal(t, assigned.ID, *stored.AssignedAmbulanceID)
}

func TestCancelReleasesAmbulanceAndIsIdempotent(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	ambulance := f.ambulances.add(models.AmbulanceStatusAvailable, 0.01, 0)
	request := f.newPendingRequest(t, 0, 0)

	require.NoError(t, f.service.AssignNearest(ctx, request.ID))
	require.NoError(t, f.service.CancelRequest(ctx, request.ID))

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, stored.Status)
	assert.Equal(t, models.AmbulanceStatusAvailable, f.ambulances.status(ambulance.ID))

	// Second cancel is a no-op, not an error.
	require.NoError(t, f.service.CancelRequest(ctx, request.ID))
	stored, err = f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, stored.Status)
}

func TestCancelAfterCompletionKeepsAmbulanceOnNextTrip(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	ambulance := f.ambulances.add(models.AmbulanceStatusAvailable, 0.01, 0)

	// First trip runs to completion; the ambulance returns to the pool and is
	// immediately claimed for a second request.
	first := f.newPendingRequest(t, 0, 0)
	require.NoError(t, f.service.AssignNearest(ctx, first.ID))
	require.NoError(t, f.service.CompleteRequest(ctx, first.ID, ambulance.ID))

	second := f.newPendingRequest(t, 0, 0)
	require.NoError(t, f.service.AssignNearest(ctx, second.ID))
	require.Equal(t, models.AmbulanceStatusOnTrip, f.ambulances.status(ambulance.ID))

	// A late cancel of the completed request is a no-op: the ambulance it once
	// carried now belongs to the second request and must stay on that trip.
	require.NoError(t, f.service.CancelRequest(ctx, first.ID))

	assert.Equal(t, models.AmbulanceStatusOnTrip, f.ambulances.status(ambulance.ID))

	firstStored, err := f.requests.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, firstStored.Status)

	secondStored, err := f.requests.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAssigned, secondStored.Status)
	assert.Equal(t, ambulance.ID, *secondStored.AssignedAmbulanceID)
}

func TestCancelPendingRequest(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	request := f.newPendingRequest(t, 0, 0)
	require.NoError(t, f.service.CancelRequest(ctx, request.ID))

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, stored.Status)
}

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	first := f.ambulances.add(models.AmbulanceStatusAvailable, 0.01, 0)
	second := f.ambulances.add(models.AmbulanceStatusAvailable, 0.02, 0)
	request := f.newPendingRequest(t, 0, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, ambulanceID := range []primitive.ObjectID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			errs[i] = f.service.AcceptRequest(ctx, request.ID, id)
		}(i, ambulanceID)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, interfaces.ErrAssignmentConflict)
		}
	}
	require.Equal(t, 1, winners)

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAssigned, stored.Status)

	// Exactly one ambulance ended up on the trip; the loser was released.
	onTrip := 0
	for _, id := range []primitive.ObjectID{first.ID, second.ID} {
		if f.ambulances.status(id) == models.AmbulanceStatusOnTrip {
			onTrip++
		}
	}
	assert.Equal(t, 1, onTrip)
	assert.Equal(t, *stored.AssignedAmbulanceID, assignedOf(t, f, first.ID, second.ID))
}

func assignedOf(t *testing.T, f *dispatchFixture, ids ...primitive.ObjectID) primitive.ObjectID {
	t.Helper()
	for _, id := range ids {
		if f.ambulances.status(id) == models.AmbulanceStatusOnTrip {
			return id
		}
	}
	t.Fatal("no ambulance on trip")
	return primitive.NilObjectID
}

func TestAcceptRequestOnAssignedRequestConflicts(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	f.ambulances.add(models.AmbulanceStatusAvailable, 0.01, 0)
	late := f.ambulances.add(models.AmbulanceStatusAvailable, 0.02, 0)
	request := f.newPendingRequest(t, 0, 0)

	require.NoError(t, f.service.AssignNearest(ctx, request.ID))

	err := f.service.AcceptRequest(ctx, request.ID, late.ID)
	assert.ErrorIs(t, err, interfaces.ErrAssignmentConflict)
	assert.Equal(t, models.AmbulanceStatusAvailable, f.ambulances.status(late.ID))
}
