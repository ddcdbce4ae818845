package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestStatus string
type EmergencyType string
type Priority string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAssigned  RequestStatus = "assigned"
	RequestStatusEnRoute   RequestStatus = "en_route"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"

	EmergencyTypeCardiac     EmergencyType = "cardiac"
	EmergencyTypeAccident    EmergencyType = "accident"
	EmergencyTypeRespiratory EmergencyType = "respiratory"
	EmergencyTypeOther       EmergencyType = "other"

	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type EmergencyRequest struct {
	ID                  primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Location            Location            `json:"location" bson:"location" validate:"required"`
	Status              RequestStatus       `json:"status" bson:"status" default:"pending"`
	AssignedAmbulanceID *primitive.ObjectID `json:"assigned_ambulance_id,omitempty" bson:"assigned_ambulance_id,omitempty"`
	PatientPhone        string              `json:"patient_phone" bson:"patient_phone" validate:"required"`
	PatientName         string              `json:"patient_name,omitempty" bson:"patient_name,omitempty"`
	EmergencyType       EmergencyType       `json:"emergency_type" bson:"emergency_type" validate:"required"`
	Priority            Priority            `json:"priority" bson:"priority" default:"medium"`
	CreatedAt           time.Time           `json:"created_at" bson:"created_at"`
	EstimatedArrival    *time.Time          `json:"estimated_arrival,omitempty" bson:"estimated_arrival,omitempty"`
	Notes               string              `json:"notes,omitempty" bson:"notes,omitempty"`
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:  {RequestStatusAssigned, RequestStatusCancelled},
	RequestStatusAssigned: {RequestStatusEnRoute, RequestStatusCompleted, RequestStatusCancelled},
	RequestStatusEnRoute:  {RequestStatusCompleted, RequestStatusCancelled},
	// completed and cancelled are terminal
}

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusAssigned, RequestStatusEnRoute,
		RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

func (t EmergencyType) IsValid() bool {
	switch t {
	case EmergencyTypeCardiac, EmergencyTypeAccident, EmergencyTypeRespiratory, EmergencyTypeOther:
		return true
	}
	return false
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// DefaultPriority maps an emergency type to its triage priority when the caller
// does not set one.
func DefaultPriority(t EmergencyType) Priority {
	switch t {
	case EmergencyTypeCardiac, EmergencyTypeRespiratory:
		return PriorityHigh
	case EmergencyTypeAccident:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
