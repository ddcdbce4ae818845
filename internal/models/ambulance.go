package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceStatus string
type AmbulanceType string

const (
	AmbulanceStatusOffline   AmbulanceStatus = "offline"
	AmbulanceStatusAvailable AmbulanceStatus = "available"
	AmbulanceStatusOnTrip    AmbulanceStatus = "on_trip"

	AmbulanceTypeBasic    AmbulanceType = "basic"
	AmbulanceTypeAdvanced AmbulanceType = "advanced"
	AmbulanceTypeICU      AmbulanceType = "icu"
)

type Ambulance struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Status        AmbulanceStatus    `json:"status" bson:"status" default:"offline"`
	Type          AmbulanceType      `json:"type" bson:"type" validate:"required"`
	Location      Location           `json:"location" bson:"location"`
	DriverID      primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	DriverName    string             `json:"driver_name" bson:"driver_name"`
	VehicleNumber string             `json:"vehicle_number" bson:"vehicle_number" validate:"required"`
	LastUpdated   time.Time          `json:"last_updated" bson:"last_updated"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}

// ambulanceTransitions holds the legal status moves. ON_TRIP is entered only by a
// dispatch claim and left only when the bound request completes or is cancelled,
// never by the driver directly.
var ambulanceTransitions = map[AmbulanceStatus][]AmbulanceStatus{
	AmbulanceStatusOffline:   {AmbulanceStatusAvailable},
	AmbulanceStatusAvailable: {AmbulanceStatusOffline, AmbulanceStatusOnTrip},
	AmbulanceStatusOnTrip:    {AmbulanceStatusAvailable},
}

func (s AmbulanceStatus) CanTransitionTo(next AmbulanceStatus) bool {
	for _, allowed := range ambulanceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s AmbulanceStatus) IsValid() bool {
	switch s {
	case AmbulanceStatusOffline, AmbulanceStatusAvailable, AmbulanceStatusOnTrip:
		return true
	}
	return false
}

func (t AmbulanceType) IsValid() bool {
	switch t {
	case AmbulanceTypeBasic, AmbulanceTypeAdvanced, AmbulanceTypeICU:
		return true
	}
	return false
}
