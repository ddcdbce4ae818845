package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/middleware"
	"swasthsuraksha/internal/utils"
)

func driverIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	return objectIDFromContext(c, middleware.ContextDriverID)
}

func ambulanceIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	return objectIDFromContext(c, middleware.ContextAmbulanceID)
}

func objectIDFromContext(c *gin.Context, key string) (primitive.ObjectID, bool) {
	value, exists := c.Get(key)
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	id, ok := value.(primitive.ObjectID)
	if !ok || id.IsZero() {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	return id, true
}
