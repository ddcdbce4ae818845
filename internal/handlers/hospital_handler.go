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

type HospitalHandler struct {
	hospitals services.HospitalService
	log       *logger.Logger
}

func NewHospitalHandler(hospitals services.HospitalService, log *logger.Logger) *HospitalHandler {
	return &HospitalHandler{
		hospitals: hospitals,
		log:       log,
	}
}

func (h *HospitalHandler) ListHospitals(c *gin.Context) {
	hospitals, err := h.hospitals.List(c.Request.Context())
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Hospitals retrieved", gin.H{
		"hospitals": hospitals,
		"count":     len(hospitals),
	})
}

func (h *HospitalHandler) GetHospital(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid hospital id")
		return
	}

	hospital, err := h.hospitals.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			utils.NotFoundResponse(c, "Hospital")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Hospital retrieved", hospital)
}

type updateBedsInput struct {
	Beds models.BedAvailability `json:"beds" binding:"required"`
}

func (h *HospitalHandler) UpdateBeds(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid hospital id")
		return
	}

	var input updateBedsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	if err := h.hospitals.UpdateBeds(c.Request.Context(), id, input.Beds); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			utils.NotFoundResponse(c, "Hospital")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Bed availability updated", nil)
}
