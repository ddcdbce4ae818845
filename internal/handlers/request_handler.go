package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/internal/services"
	"swasthsuraksha/internal/utils"
	"swasthsuraksha/pkg/logger"
)

type RequestHandler struct {
	dispatch services.DispatchService
	requests interfaces.RequestRepository
	log      *logger.Logger
}

func NewRequestHandler(dispatch services.DispatchService, requests interfaces.RequestRepository, log *logger.Logger) *RequestHandler {
	return &RequestHandler{
		dispatch: dispatch,
		requests: requests,
		log:      log,
	}
}

func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var input services.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	if input.Location.IsZero() {
		utils.BadRequestResponse(c, "location is required")
		return
	}

	request, err := h.dispatch.CreateRequest(c.Request.Context(), &input)
	if err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, "Emergency request created", request)
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid request id")
		return
	}

	request, err := h.requests.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			utils.NotFoundResponse(c, "Request")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Request retrieved", request)
}

func (h *RequestHandler) GetPendingRequests(c *gin.Context) {
	pending, err := h.requests.GetPending(c.Request.Context())
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Pending requests retrieved", gin.H{
		"requests": pending,
		"count":    len(pending),
	})
}

// AcceptRequest is the driver's manual accept. Losing the race to another
// ambulance is reported as a 409 so the app can refresh its queue.
func (h *RequestHandler) AcceptRequest(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid request id")
		return
	}

	ambulanceID, ok := ambulanceIDFromContext(c)
	if !ok {
		return
	}

	if err := h.dispatch.AcceptRequest(c.Request.Context(), id, ambulanceID); err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			utils.NotFoundResponse(c, "Request")
		case errors.Is(err, interfaces.ErrAssignmentConflict):
			utils.ConflictResponse(c, "Request was already taken")
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.SuccessResponse(c, "Request accepted", nil)
}

func (h *RequestHandler) StartTrip(c *gin.Context) {
	h.advance(c, h.dispatch.StartTrip, "Trip started")
}

func (h *RequestHandler) CompleteRequest(c *gin.Context) {
	h.advance(c, h.dispatch.CompleteRequest, "Request completed")
}

func (h *RequestHandler) advance(c *gin.Context, op func(ctx context.Context, requestID, ambulanceID primitive.ObjectID) error, message string) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid request id")
		return
	}

	ambulanceID, ok := ambulanceIDFromContext(c)
	if !ok {
		return
	}

	if err := op(c.Request.Context(), id, ambulanceID); err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			utils.NotFoundResponse(c, "Request")
		case errors.Is(err, interfaces.ErrAssignmentConflict):
			utils.ConflictResponse(c, "Request is not in the expected state")
		default:
			utils.BadRequestResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, message, nil)
}

func (h *RequestHandler) CancelRequest(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid request id")
		return
	}

	if err := h.dispatch.CancelRequest(c.Request.Context(), id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			utils.NotFoundResponse(c, "Request")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Request cancelled", nil)
}

// GetActiveForAmbulance lists the requests currently bound to the
// authenticated driver's ambulance.
func (h *RequestHandler) GetActiveForAmbulance(c *gin.Context) {
	ambulanceID, ok := ambulanceIDFromContext(c)
	if !ok {
		return
	}

	active, err := h.requests.GetActiveByAmbulance(c.Request.Context(), ambulanceID)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Active requests retrieved", gin.H{
		"requests": active,
		"count":    len(active),
	})
}
