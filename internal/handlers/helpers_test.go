package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/middleware"
)

func TestObjectIDFromContextUsesMiddlewareKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("reads the ids the auth chain stores", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		driverID := primitive.NewObjectID()
		ambulanceID := primitive.NewObjectID()
		c.Set(middleware.ContextDriverID, driverID)
		c.Set(middleware.ContextAmbulanceID, ambulanceID)

		got, ok := driverIDFromContext(c)
		require.True(t, ok)
		assert.Equal(t, driverID, got)

		got, ok = ambulanceIDFromContext(c)
		require.True(t, ok)
		assert.Equal(t, ambulanceID, got)
	})

	t.Run("missing key responds 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)

		_, ok := ambulanceIDFromContext(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong value type responds 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Set(middleware.ContextDriverID, "not-an-object-id")

		_, ok := driverIDFromContext(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
