package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"swasthsuraksha/internal/services"
	"swasthsuraksha/internal/tokenstore"
	"swasthsuraksha/internal/utils"
	"swasthsuraksha/pkg/logger"
)

// CallHandler is the telephony webhook surface plus the token endpoints the
// confirmation page calls.
type CallHandler struct {
	tokens services.TokenService
	log    *logger.Logger
}

func NewCallHandler(tokens services.TokenService, log *logger.Logger) *CallHandler {
	return &CallHandler{
		tokens: tokens,
		log:    log,
	}
}

// IncomingCall is the voice webhook. The provider posts form data; From is the
// caller's number. The response body is TwiML regardless of outcome, since the
// provider plays whatever comes back.
func (h *CallHandler) IncomingCall(c *gin.Context) {
	from := c.PostForm("From")

	twiml, err := h.tokens.HandleIncomingCall(c.Request.Context(), from)
	if err != nil {
		h.log.WithError(err).Error("Incoming call handling failed")
	}

	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twiml)
}

// GetToken reports the token's state without consuming it. The confirmation
// page uses this to prefill the caller's number and show a countdown.
func (h *CallHandler) GetToken(c *gin.Context) {
	token := c.Param("token")

	validation, err := h.tokens.Validate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, tokenstore.ErrTokenNotFound) || errors.Is(err, tokenstore.ErrTokenExpired) {
			utils.NotFoundResponse(c, "Token")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Token is valid", gin.H{
		"phone":      validation.Phone,
		"used":       validation.Used,
		"expires_in": validation.ExpiresIn,
	})
}

// UseToken consumes the token. Exactly one caller succeeds; later attempts get
// a 400 with a distinct code so the page can explain what happened.
func (h *CallHandler) UseToken(c *gin.Context) {
	token := c.Param("token")

	phone, err := h.tokens.Consume(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, tokenstore.ErrTokenNotFound), errors.Is(err, tokenstore.ErrTokenExpired):
			utils.NotFoundResponse(c, "Token")
		case errors.Is(err, tokenstore.ErrTokenAlreadyUsed):
			utils.ErrorResponse(c, http.StatusBadRequest, "TOKEN_ALREADY_USED", "This confirmation link was already used")
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.SuccessResponse(c, "Token consumed", gin.H{
		"phone": phone,
	})
}
