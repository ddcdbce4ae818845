package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/internal/utils"
	"swasthsuraksha/pkg/logger"
	"swasthsuraksha/pkg/maps"
	"swasthsuraksha/pkg/push"
	"swasthsuraksha/pkg/sms"
)

// DispatchService coordinates the emergency-request lifecycle: intake,
// nearest-ambulance assignment, driver status advances, completion, and
// cancellation. Both the coordinator's own assignment and driver self-accept
// funnel into the same conditional claim-then-bind sequence, so they can race
// safely.
type DispatchService interface {
	CreateRequest(ctx context.Context, input *CreateRequestInput) (*models.EmergencyRequest, error)
	AssignNearest(ctx context.Context, requestID primitive.ObjectID) error
	AcceptRequest(ctx context.Context, requestID, ambulanceID primitive.ObjectID) error
	StartTrip(ctx context.Context, requestID, ambulanceID primitive.ObjectID) error
	CompleteRequest(ctx context.Context, requestID, ambulanceID primitive.ObjectID) error
	CancelRequest(ctx context.Context, requestID primitive.ObjectID) error
}

type CreateRequestInput struct {
	Location      models.Location      `json:"location" binding:"required"`
	PatientPhone  string               `json:"patient_phone" binding:"required"`
	PatientName   string               `json:"patient_name"`
	EmergencyType models.EmergencyType `json:"emergency_type" binding:"required"`
	Priority      models.Priority      `json:"priority"`
	Notes         string               `json:"notes"`
}

type dispatchService struct {
	requests    interfaces.RequestRepository
	ambulances  interfaces.AmbulanceRepository
	drivers     interfaces.DriverRepository
	smsProvider sms.SMSProvider
	pushFCM     push.PushProvider
	etaProvider maps.ETAProvider
	assignDelay time.Duration
	log         *logger.Logger
}

func NewDispatchService(
	requests interfaces.RequestRepository,
	ambulances interfaces.AmbulanceRepository,
	drivers interfaces.DriverRepository,
	smsProvider sms.SMSProvider,
	pushProvider push.PushProvider,
	etaProvider maps.ETAProvider,
	assignDelay time.Duration,
	log *logger.Logger,
) DispatchService {
	return &dispatchService{
		requests:    requests,
		ambulances:  ambulances,
		drivers:     drivers,
		smsProvider: smsProvider,
		pushFCM:     pushProvider,
		etaProvider: etaProvider,
		assignDelay: assignDelay,
		log:         log,
	}
}

func (s *dispatchService) CreateRequest(ctx context.Context, input *CreateRequestInput) (*models.EmergencyRequest, error) {
	if !input.EmergencyType.IsValid() {
		return nil, fmt.Errorf("invalid emergency type: %s", input.EmergencyType)
	}

	priority := input.Priority
	if priority == "" {
		priority = models.DefaultPriority(input.EmergencyType)
	} else if !priority.IsValid() {
		return nil, fmt.Errorf("invalid priority: %s", priority)
	}

	request := &models.EmergencyRequest{
		Location:      input.Location,
		PatientPhone:  input.PatientPhone,
		PatientName:   input.PatientName,
		EmergencyType: input.EmergencyType,
		Priority:      priority,
		Notes:         input.Notes,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	s.log.LogDispatchEvent(request.ID, "request_created", map[string]interface{}{
		"emergency_type": request.EmergencyType,
		"priority":       request.Priority,
	})

	// Assignment is attempted at least once after creation, off the request
	// path. A short delay lets the write settle before the first attempt.
	go func(id primitive.ObjectID) {
		if s.assignDelay > 0 {
			time.Sleep(s.assignDelay)
		}

		assignCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.AssignNearest(assignCtx, id); err != nil {
			s.log.WithRequestID(id).WithError(err).Warn("Initial assignment attempt failed")
		}
	}(request.ID)

	return request, nil
}

func (s *dispatchService) AssignNearest(ctx context.Context, requestID primitive.ObjectID) error {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	// Another assignment already happened, or the request was cancelled.
	if request.Status != models.RequestStatusPending {
		return nil
	}

	candidates, err := s.ambulances.GetAvailable(ctx)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		// Not an error: the request stays pending and is picked up by a later
		// attempt or by driver auto-accept.
		s.log.WithRequestID(requestID).Info("No available ambulances, request remains pending")
		return nil
	}

	nearest := candidates[0]
	minDistance := utils.CalculateDistance(
		request.Location.Lat, request.Location.Lng,
		nearest.Location.Lat, nearest.Location.Lng,
	)
	for _, candidate := range candidates[1:] {
		distance := utils.CalculateDistance(
			request.Location.Lat, request.Location.Lng,
			candidate.Location.Lat, candidate.Location.Lng,
		)
		// Strict comparison keeps ties on the first candidate encountered.
		if distance < minDistance {
			minDistance = distance
			nearest = candidate
		}
	}

	return s.claimAndBind(ctx, request, nearest, minDistance)
}

func (s *dispatchService) AcceptRequest(ctx context.Context, requestID, ambulanceID primitive.ObjectID) error {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if request.Status != models.RequestStatusPending {
		return interfaces.ErrAssignmentConflict
	}

	ambulance, err := s.ambulances.GetByID(ctx, ambulanceID)
	if err != nil {
		return err
	}

	distance := utils.CalculateDistance(
		request.Location.Lat, request.Location.Lng,
		ambulance.Location.Lat, ambulance.Location.Lng,
	)

	return s.claimAndBind(ctx, request, ambulance, distance)
}

// claimAndBind is the single mutual-exclusion point for "assign this ambulance
// to this request". The ambulance is claimed first; losing the request bind
// afterwards releases it, so a loser never leaves an ambulance stranded in
// ON_TRIP.
func (s *dispatchService) claimAndBind(ctx context.Context, request *models.EmergencyRequest, ambulance *models.Ambulance, distanceKM float64) error {
	etaMinutes := s.etaMinutes(ctx, ambulance, request, distanceKM)
	estimatedArrival := time.Now().Add(time.Duration(etaMinutes) * time.Minute)

	if err := s.ambulances.ClaimForTrip(ctx, ambulance.ID); err != nil {
		if errors.Is(err, interfaces.ErrAssignmentConflict) {
			s.log.WithRequestID(request.ID).WithAmbulanceID(ambulance.ID).
				Debug("Lost ambulance claim to a concurrent assignment")
		}
		return err
	}

	bound, err := s.requests.BindAmbulance(ctx, request.ID, ambulance.ID, estimatedArrival)
	if err != nil {
		if releaseErr := s.ambulances.Release(ctx, ambulance.ID); releaseErr != nil {
			s.log.WithAmbulanceID(ambulance.ID).WithError(releaseErr).
				Error("Failed to release ambulance after lost request bind")
		}
		return err
	}

	s.log.LogDispatchEvent(request.ID, "ambulance_assigned", map[string]interface{}{
		"ambulance_id": ambulance.ID.Hex(),
		"distance_km":  distanceKM,
		"eta_minutes":  etaMinutes,
	})

	s.notifyAssignment(ctx, bound, ambulance, etaMinutes)
	return nil
}

func (s *dispatchService) etaMinutes(ctx context.Context, ambulance *models.Ambulance, request *models.EmergencyRequest, distanceKM float64) int {
	if s.etaProvider != nil {
		duration, err := s.etaProvider.TravelETA(ctx,
			ambulance.Location.Lat, ambulance.Location.Lng,
			request.Location.Lat, request.Location.Lng,
		)
		if err == nil {
			minutes := int(duration.Round(time.Minute) / time.Minute)
			if minutes < utils.MinETAMinutes {
				minutes = utils.MinETAMinutes
			}
			return minutes
		}
		s.log.WithError(err).Warn("ETA provider failed, using distance heuristic")
	}

	return utils.DispatchETAMinutes(distanceKM)
}

func (s *dispatchService) StartTrip(ctx context.Context, requestID, ambulanceID primitive.ObjectID) error {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if request.AssignedAmbulanceID == nil || *request.AssignedAmbulanceID != ambulanceID {
		return fmt.Errorf("request %s is not assigned to ambulance %s", requestID.Hex(), ambulanceID.Hex())
	}

	if _, err := s.requests.AdvanceStatus(ctx, requestID, models.RequestStatusAssigned, models.RequestStatusEnRoute); err != nil {
		return err
	}

	s.log.LogDispatchEvent(requestID, "trip_started", map[string]interface{}{
		"ambulance_id": ambulanceID.Hex(),
	})

	s.notifyStatus(ctx, request.PatientPhone, "Your ambulance is on the way.")
	return nil
}

func (s *dispatchService) CompleteRequest(ctx context.Context, requestID, ambulanceID primitive.ObjectID) error {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if request.AssignedAmbulanceID == nil || *request.AssignedAmbulanceID != ambulanceID {
		return fmt.Errorf("request %s is not assigned to ambulance %s", requestID.Hex(), ambulanceID.Hex())
	}

	// Completion is legal from EN_ROUTE and, for short hops, straight from
	// ASSIGNED.
	_, err = s.requests.AdvanceStatus(ctx, requestID, models.RequestStatusEnRoute, models.RequestStatusCompleted)
	if errors.Is(err, interfaces.ErrAssignmentConflict) {
		_, err = s.requests.AdvanceStatus(ctx, requestID, models.RequestStatusAssigned, models.RequestStatusCompleted)
	}
	if err != nil {
		return err
	}

	// The ambulance returns to the pool as part of the same logical operation.
	if err := s.ambulances.Release(ctx, ambulanceID); err != nil {
		return err
	}

	s.log.LogDispatchEvent(requestID, "request_completed", map[string]interface{}{
		"ambulance_id": ambulanceID.Hex(),
	})
	return nil
}

func (s *dispatchService) CancelRequest(ctx context.Context, requestID primitive.ObjectID) error {
	cancelled, won, err := s.requests.Cancel(ctx, requestID)
	if err != nil {
		return err
	}

	// Idempotent: the request was already terminal. The ambulance must not be
	// touched here; a completion that raced us has already released it, and it
	// may be on a trip for another request by now.
	if !won {
		return nil
	}

	if cancelled.AssignedAmbulanceID != nil {
		if err := s.ambulances.Release(ctx, *cancelled.AssignedAmbulanceID); err != nil {
			return err
		}
	}

	s.log.LogDispatchEvent(requestID, "request_cancelled", nil)
	return nil
}

func (s *dispatchService) notifyAssignment(ctx context.Context, request *models.EmergencyRequest, ambulance *models.Ambulance, etaMinutes int) {
	if s.smsProvider != nil {
		message := fmt.Sprintf("SwasthSuraksha: ambulance %s has been assigned to you. Estimated arrival in %d minutes.",
			ambulance.VehicleNumber, etaMinutes)
		if _, err := s.smsProvider.SendSMS(ctx, &sms.SMSRequest{
			To:      request.PatientPhone,
			Message: message,
			Type:    "emergency",
		}); err != nil {
			s.log.WithRequestID(request.ID).WithError(err).Warn("Failed to send assignment SMS")
		}
	}

	if s.pushFCM == nil {
		return
	}

	driver, err := s.drivers.GetByID(ctx, ambulance.DriverID)
	if err != nil || driver.DeviceToken == "" {
		return
	}

	if _, err := s.pushFCM.SendNotification(ctx, &push.NotificationRequest{
		Token: driver.DeviceToken,
		Title: "New emergency assignment",
		Body:  fmt.Sprintf("%s emergency, ETA %d min", request.EmergencyType, etaMinutes),
		Data: map[string]string{
			"request_id": request.ID.Hex(),
		},
	}); err != nil {
		s.log.WithRequestID(request.ID).WithError(err).Warn("Failed to send assignment push")
	}
}

func (s *dispatchService) notifyStatus(ctx context.Context, phone, message string) {
	if s.smsProvider == nil {
		return
	}

	if _, err := s.smsProvider.SendSMS(ctx, &sms.SMSRequest{
		To:      phone,
		Message: message,
		Type:    "transactional",
	}); err != nil {
		s.log.WithError(err).Warn("Failed to send status SMS")
	}
}
