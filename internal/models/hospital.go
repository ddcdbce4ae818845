package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Hospital struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name" validate:"required"`
	Location    Location           `json:"location" bson:"location"`
	Address     string             `json:"address" bson:"address"`
	Phone       string             `json:"phone" bson:"phone"`
	Beds        BedAvailability    `json:"beds" bson:"beds"`
	LastUpdated time.Time          `json:"last_updated" bson:"last_updated"`
}

type BedAvailability struct {
	ICU     int `json:"icu" bson:"icu"`
	Oxygen  int `json:"oxygen" bson:"oxygen"`
	General int `json:"general" bson:"general"`
}
