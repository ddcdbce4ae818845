package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
)

type Driver struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name" validate:"required"`
	Phone         string             `json:"phone" bson:"phone" validate:"required"`
	LicenseNumber string             `json:"license_number" bson:"license_number" validate:"required"`
	AmbulanceID   primitive.ObjectID `json:"ambulance_id" bson:"ambulance_id"`
	Status        DriverStatus       `json:"status" bson:"status" default:"active"`
	DeviceToken   string             `json:"device_token,omitempty" bson:"device_token,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}
