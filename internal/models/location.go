package models

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat" bson:"lat" validate:"required"`
	Lng float64 `json:"lng" bson:"lng" validate:"required"`
}

func (l Location) IsZero() bool {
	return l.Lat == 0 && l.Lng == 0
}
