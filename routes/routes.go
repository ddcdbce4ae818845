package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"swasthsuraksha/internal/config"
	"swasthsuraksha/internal/handlers"
	"swasthsuraksha/internal/middleware"
	"swasthsuraksha/internal/repositories/interfaces"
	"swasthsuraksha/pkg/logger"
	"swasthsuraksha/pkg/websocket"
)

type Dependencies struct {
	Config     *config.Config
	Log        *logger.Logger
	Ambulances interfaces.AmbulanceRepository

	CallHandler      *handlers.CallHandler
	RequestHandler   *handlers.RequestHandler
	AmbulanceHandler *handlers.AmbulanceHandler
	HospitalHandler  *handlers.HospitalHandler
	DriverHandler    *handlers.DriverHandler
	WSHandler        *websocket.Handler
}

func SetupRoutes(router *gin.Engine, deps *Dependencies) {
	jwtSecret := []byte(deps.Config.Security.JWTSecret)

	allowedOrigin := ""
	if origins := deps.Config.Security.CORSAllowedOrigins; len(origins) > 0 {
		allowedOrigin = origins[0]
	}

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(allowedOrigin))
	router.Use(middleware.LoggingMiddleware(deps.Log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": deps.Config.App.Name,
			"version": deps.Config.App.Version,
		})
	})

	// Telephony webhook and the public confirmation-token endpoints. These are
	// unauthenticated: the token itself is the credential.
	router.POST("/incoming-call", deps.CallHandler.IncomingCall)
	router.GET("/token/:token", deps.CallHandler.GetToken)
	router.POST("/token/:token/use", deps.CallHandler.UseToken)

	api := router.Group("/api/v1")
	{
		// Patient-facing: request intake and tracking, reached from the
		// confirmation page after the token is consumed.
		requests := api.Group("/requests")
		{
			requests.POST("", deps.RequestHandler.CreateRequest)
			requests.GET("/pending", deps.RequestHandler.GetPendingRequests)
			requests.GET("/:id", deps.RequestHandler.GetRequest)
			requests.POST("/:id/cancel", deps.RequestHandler.CancelRequest)
		}

		api.GET("/hospitals", deps.HospitalHandler.ListHospitals)
		api.GET("/hospitals/:id", deps.HospitalHandler.GetHospital)
		api.PUT("/hospitals/:id/beds", deps.HospitalHandler.UpdateBeds)

		api.GET("/ambulances", deps.AmbulanceHandler.ListAmbulances)
		api.GET("/ambulances/:id", deps.AmbulanceHandler.GetAmbulance)
		api.POST("/ambulances", deps.AmbulanceHandler.Register)

		api.POST("/drivers", deps.DriverHandler.Register)
		api.POST("/drivers/login", deps.DriverHandler.Login)

		// Driver app: everything below acts on the authenticated driver's own
		// ambulance.
		driver := api.Group("/driver")
		driver.Use(middleware.AuthMiddleware(jwtSecret, deps.Log))
		driver.Use(middleware.RequireDriver())
		{
			driver.GET("/profile", deps.DriverHandler.GetProfile)
			driver.PUT("/device-token", deps.DriverHandler.UpdateDeviceToken)

			ambulance := driver.Group("")
			ambulance.Use(middleware.ResolveAmbulance(deps.Ambulances, deps.Log))
			{
				ambulance.PUT("/location", deps.AmbulanceHandler.UpdateLocation)
				ambulance.PUT("/status", deps.AmbulanceHandler.UpdateStatus)
				ambulance.GET("/requests", deps.RequestHandler.GetActiveForAmbulance)
				ambulance.GET("/requests/pending", deps.RequestHandler.GetPendingRequests)
				ambulance.POST("/requests/:id/accept", deps.RequestHandler.AcceptRequest)
				ambulance.POST("/requests/:id/start", deps.RequestHandler.StartTrip)
				ambulance.POST("/requests/:id/complete", deps.RequestHandler.CompleteRequest)
			}
		}
	}

	if deps.Config.WebSocket.Enabled && deps.WSHandler != nil {
		router.GET("/ws", deps.WSHandler.HandleWebSocket)
	}
}
