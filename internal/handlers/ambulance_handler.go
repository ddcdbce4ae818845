package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/internal/services"
	"swasthsuraksha/internal/utils"
	"swasthsuraksha/pkg/logger"
)

type AmbulanceHandler struct {
	ambulances services.AmbulanceService
	log        *logger.Logger
}

func NewAmbulanceHandler(ambulances services.AmbulanceService, log *logger.Logger) *AmbulanceHandler {
	return &AmbulanceHandler{
		ambulances: ambulances,
		log:        log,
	}
}

func (h *AmbulanceHandler) Register(c *gin.Context) {
	var input services.RegisterAmbulanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	ambulance, err := h.ambulances.Register(c.Request.Context(), &input)
	if err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, "Ambulance registered", ambulance)
}

func (h *AmbulanceHandler) GetAmbulance(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid ambulance id")
		return
	}

	ambulance, err := h.ambulances.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			utils.NotFoundResponse(c, "Ambulance")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Ambulance retrieved", ambulance)
}

func (h *AmbulanceHandler) ListAmbulances(c *gin.Context) {
	var (
		ambulances []*models.Ambulance
		err        error
	)

	if c.Query("status") == string(models.AmbulanceStatusAvailable) {
		ambulances, err = h.ambulances.ListAvailable(c.Request.Context())
	} else {
		ambulances, err = h.ambulances.List(c.Request.Context())
	}
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Ambulances retrieved", gin.H{
		"ambulances": ambulances,
		"count":      len(ambulances),
	})
}

type updateLocationInput struct {
	Location models.Location `json:"location" binding:"required"`
}

// UpdateLocation is the driver heartbeat. It targets the authenticated
// driver's own ambulance.
func (h *AmbulanceHandler) UpdateLocation(c *gin.Context) {
	ambulanceID, ok := ambulanceIDFromContext(c)
	if !ok {
		return
	}

	var input updateLocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	if err := h.ambulances.UpdateLocation(c.Request.Context(), ambulanceID, input.Location); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			utils.NotFoundResponse(c, "Ambulance")
			return
		}
		utils.BadRequestResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, "Location updated", nil)
}

type updateStatusInput struct {
	Status models.AmbulanceStatus `json:"status" binding:"required"`
}

// UpdateStatus flips the authenticated driver's ambulance between available
// and offline. ON_TRIP is rejected here; it only moves through dispatch.
func (h *AmbulanceHandler) UpdateStatus(c *gin.Context) {
	ambulanceID, ok := ambulanceIDFromContext(c)
	if !ok {
		return
	}

	var input updateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	if err := h.ambulances.SetStatus(c.Request.Context(), ambulanceID, input.Status); err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			utils.NotFoundResponse(c, "Ambulance")
		case errors.Is(err, interfaces.ErrAssignmentConflict):
			utils.ConflictResponse(c, "Ambulance is on a trip")
		default:
			utils.BadRequestResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, "Status updated", nil)
}
