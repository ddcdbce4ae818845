package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"swasthsuraksha/internal/config"
	"swasthsuraksha/internal/handlers"
	"swasthsuraksha/internal/realtime"
	"swasthsuraksha/internal/repositories/mongodb"
	"swasthsuraksha/internal/services"
	"swasthsuraksha/internal/tokenstore"
	"swasthsuraksha/pkg/cache"
	"swasthsuraksha/pkg/database"
	"swasthsuraksha/pkg/logger"
	"swasthsuraksha/pkg/maps"
	"swasthsuraksha/pkg/push"
	"swasthsuraksha/pkg/sms"
	"swasthsuraksha/pkg/websocket"
	"swasthsuraksha/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting dispatch server")

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close()

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(&cache.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisCache.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker := realtime.NewBroker()

	ambulanceRepo := mongodb.NewAmbulanceRepository(db.Database, broker)
	requestRepo := mongodb.NewRequestRepository(db.Database, broker)
	hospitalRepo := mongodb.NewHospitalRepository(db.Database)
	driverRepo := mongodb.NewDriverRepository(db.Database)

	// Token store: Redis-backed when available so tokens survive restarts and
	// are shared across replicas; in-memory otherwise.
	var tokens tokenstore.Store
	if redisCache != nil {
		tokens = tokenstore.NewRedisStore(redisCache, cfg.Dispatch.TokenTTL)
	} else {
		tokens = tokenstore.NewMemoryStore(cfg.Dispatch.TokenTTL, log)
	}
	tokens.StartSweep(ctx, cfg.Dispatch.TokenSweepInterval)

	smsProvider := buildSMSProvider(cfg, log)
	pushProvider := buildPushProvider(cfg, log)
	etaProvider := buildETAProvider(cfg, log)

	dispatchService := services.NewDispatchService(
		requestRepo, ambulanceRepo, driverRepo,
		smsProvider, pushProvider, etaProvider,
		cfg.Dispatch.AssignDelay, log,
	)
	tokenService := services.NewTokenService(tokens, smsProvider, cfg.App.FrontendURL, log)
	ambulanceService := services.NewAmbulanceService(ambulanceRepo, log)
	driverService := services.NewDriverService(driverRepo, []byte(cfg.Security.JWTSecret), cfg.Security.JWTAccessTokenTTL, log)
	hospitalService := services.NewHospitalService(hospitalRepo, log)

	var wsHandler *websocket.Handler
	if cfg.WebSocket.Enabled {
		wsHandler = websocket.NewHandler()
		bridge := services.NewStreamBridge(broker, wsHandler.GetHub(), redisCache, log)
		go bridge.Run(ctx)
	}

	if cfg.Dispatch.AutoAcceptEnabled {
		worker := services.NewAutoAcceptWorker(dispatchService, requestRepo, ambulanceRepo, broker, log)
		go worker.Run(ctx)
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		log.WithError(err).Warn("Invalid trusted proxy list")
	}

	routes.SetupRoutes(router, &routes.Dependencies{
		Config:           cfg,
		Log:              log,
		Ambulances:       ambulanceRepo,
		CallHandler:      handlers.NewCallHandler(tokenService, log),
		RequestHandler:   handlers.NewRequestHandler(dispatchService, requestRepo, log),
		AmbulanceHandler: handlers.NewAmbulanceHandler(ambulanceService, log),
		HospitalHandler:  handlers.NewHospitalHandler(hospitalService, log),
		DriverHandler:    handlers.NewDriverHandler(driverService, log),
		WSHandler:        wsHandler,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		log.Infof("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

func buildSMSProvider(cfg *config.Config, log *logger.Logger) sms.SMSProvider {
	switch cfg.SMS.Provider {
	case "aws":
		provider, err := sms.NewAWSSNSProvider(cfg.SMS.AWS.Region)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize SNS provider")
		}
		return provider
	default:
		return sms.NewTwilioProvider(
			cfg.SMS.Twilio.AccountSID,
			cfg.SMS.Twilio.AuthToken,
			cfg.SMS.Twilio.FromNumber,
		)
	}
}

func buildPushProvider(cfg *config.Config, log *logger.Logger) push.PushProvider {
	if !cfg.Push.Enabled || cfg.Push.FCMCredentialsFile == "" {
		return nil
	}

	provider, err := push.NewFCMProvider(cfg.Push.FCMCredentialsFile)
	if err != nil {
		// Push is best-effort; dispatch works without it.
		log.WithError(err).Warn("Failed to initialize FCM, push disabled")
		return nil
	}
	return provider
}

func buildETAProvider(cfg *config.Config, log *logger.Logger) maps.ETAProvider {
	if !cfg.Maps.Enabled || cfg.Maps.APIKey == "" {
		return nil
	}

	provider, err := maps.NewGoogleMapsProvider(cfg.Maps.APIKey)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize Maps client, using distance heuristic")
		return nil
	}
	return provider
}
