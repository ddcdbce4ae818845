package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/internal/services"
	"swasthsuraksha/internal/utils"
	"swasthsuraksha/pkg/logger"
)

type DriverHandler struct {
	drivers services.DriverService
	log     *logger.Logger
}

func NewDriverHandler(drivers services.DriverService, log *logger.Logger) *DriverHandler {
	return &DriverHandler{
		drivers: drivers,
		log:     log,
	}
}

func (h *DriverHandler) Register(c *gin.Context) {
	var input services.RegisterDriverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	driver, err := h.drivers.Register(c.Request.Context(), &input)
	if err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, "Driver registered", driver)
}

type loginInput struct {
	LicenseNumber string `json:"license_number" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
}

func (h *DriverHandler) Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	result, err := h.drivers.Login(c.Request.Context(), input.LicenseNumber, input.Phone)
	if err != nil {
		utils.UnauthorizedResponse(c)
		return
	}

	utils.SuccessResponse(c, "Login successful", result)
}

func (h *DriverHandler) GetProfile(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	driver, err := h.drivers.Get(c.Request.Context(), driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			utils.NotFoundResponse(c, "Driver")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Driver retrieved", driver)
}

type deviceTokenInput struct {
	DeviceToken string `json:"device_token" binding:"required"`
}

// UpdateDeviceToken stores the FCM registration token used for assignment
// pushes.
func (h *DriverHandler) UpdateDeviceToken(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	var input deviceTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	if err := h.drivers.UpdateDeviceToken(c.Request.Context(), driverID, input.DeviceToken); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			utils.NotFoundResponse(c, "Driver")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Device token updated", nil)
}
