package utils

import "time"

const (
	// Response status
	StatusSuccess = "success"
	StatusError   = "error"

	// Common error messages
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized access"
	ErrForbidden        = "Access forbidden"

	// Geodesy
	EarthRadiusKM = 6371.0

	// Dispatch ETA heuristic: two minutes per straight-line kilometer,
	// floored at five minutes.
	MinutesPerKM  = 2.0
	MinETAMinutes = 5

	// Confirmation tokens
	TokenTTL           = time.Hour
	TokenSweepInterval = 15 * time.Minute

	// Collections
	CollectionAmbulances = "ambulances"
	CollectionRequests   = "emergency_requests"
	CollectionHospitals  = "hospitals"
	CollectionDrivers    = "drivers"
)
