package services

import (
	"context"
	"errors"
	"time"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/realtime"
	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/internal/utils"
	"swasthsuraksha/pkg/logger"
)

// AutoAcceptWorker stands in for driver apps running in auto-accept mode: it
// watches the pending queue and tries to accept each pending request with the
// nearest available ambulance. Every attempt goes through the same conditional
// claim as manual accepts, so racing the coordinator is safe; a lost race is
// expected and silently retried on the next event or tick.
type AutoAcceptWorker struct {
	dispatch   DispatchService
	requests   interfaces.RequestRepository
	ambulances interfaces.AmbulanceRepository
	broker     *realtime.Broker
	interval   time.Duration
	log        *logger.Logger
}

func NewAutoAcceptWorker(
	dispatch DispatchService,
	requests interfaces.RequestRepository,
	ambulances interfaces.AmbulanceRepository,
	broker *realtime.Broker,
	log *logger.Logger,
) *AutoAcceptWorker {
	return &AutoAcceptWorker{
		dispatch:   dispatch,
		requests:   requests,
		ambulances: ambulances,
		broker:     broker,
		interval:   30 * time.Second,
		log:        log,
	}
}

// Run blocks until ctx is cancelled. The periodic tick backstops requests that
// were created while no ambulance was available.
func (w *AutoAcceptWorker) Run(ctx context.Context) {
	sub := w.broker.SubscribePending()
	defer sub.Unsubscribe()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Auto-accept worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Auto-accept worker stopped")
			return
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			if event.Request == nil || event.Request.Status != models.RequestStatusPending {
				continue
			}
			w.sweep(ctx)
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep matches every pending request with its nearest available ambulance and
// attempts the accept. The pending and available sets are re-read each pass so
// the worker never acts on a snapshot older than the event that woke it.
func (w *AutoAcceptWorker) sweep(ctx context.Context) {
	pending, err := w.requests.GetPending(ctx)
	if err != nil {
		w.log.WithError(err).Warn("Auto-accept failed to list pending requests")
		return
	}
	if len(pending) == 0 {
		return
	}

	available, err := w.ambulances.GetAvailable(ctx)
	if err != nil {
		w.log.WithError(err).Warn("Auto-accept failed to list available ambulances")
		return
	}
	if len(available) == 0 {
		return
	}

	claimed := make(map[string]bool)

	for _, request := range pending {
		var nearest *models.Ambulance
		minDistance := 0.0

		for _, ambulance := range available {
			if claimed[ambulance.ID.Hex()] {
				continue
			}
			distance := utils.CalculateDistance(
				request.Location.Lat, request.Location.Lng,
				ambulance.Location.Lat, ambulance.Location.Lng,
			)
			if nearest == nil || distance < minDistance {
				nearest = ambulance
				minDistance = distance
			}
		}

		if nearest == nil {
			return
		}

		err := w.dispatch.AcceptRequest(ctx, request.ID, nearest.ID)
		switch {
		case err == nil:
			claimed[nearest.ID.Hex()] = true
		case errors.Is(err, interfaces.ErrAssignmentConflict):
			// A concurrent accept or the coordinator won; nothing to do.
			claimed[nearest.ID.Hex()] = true
		default:
			w.log.WithRequestID(request.ID).WithError(err).Warn("Auto-accept attempt failed")
		}
	}
}
