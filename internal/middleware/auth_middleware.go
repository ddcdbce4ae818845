package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/internal/utils"
	"swasthsuraksha/pkg/logger"
)

const (
	ContextDriverID    = "driver_id"
	ContextAmbulanceID = "ambulance_id"
	ContextSubjectType = "subject_type"
)

// AuthMiddleware validates the bearer token and records the authenticated
// subject on the gin context.
func AuthMiddleware(jwtSecret []byte, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		claims, err := utils.ParseJWT(jwtSecret, parts[1])
		if err != nil {
			log.WithError(err).Debug("Rejected bearer token")
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		subjectID, err := primitive.ObjectIDFromHex(claims.SubjectID)
		if err != nil {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		c.Set(ContextSubjectType, claims.SubjectType)
		if claims.SubjectType == "driver" {
			c.Set(ContextDriverID, subjectID)
		}

		c.Next()
	}
}

// RequireDriver gates routes that only the driver app may call.
func RequireDriver() gin.HandlerFunc {
	return func(c *gin.Context) {
		if subjectType, _ := c.Get(ContextSubjectType); subjectType != "driver" {
			utils.ForbiddenResponse(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ResolveAmbulance looks up the authenticated driver's ambulance and stores
// its id on the context, so handlers act on the driver's own vehicle and never
// on a client-supplied id.
func ResolveAmbulance(ambulances interfaces.AmbulanceRepository, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextDriverID)
		if !exists {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		driverID, ok := value.(primitive.ObjectID)
		if !ok {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		ambulance, err := ambulances.GetByDriverID(c.Request.Context(), driverID)
		if err != nil {
			log.WithField("driver_id", driverID.Hex()).WithError(err).Debug("Driver has no ambulance")
			utils.ForbiddenResponse(c)
			c.Abort()
			return
		}

		c.Set(ContextAmbulanceID, ambulance.ID)
		c.Next()
	}
}
