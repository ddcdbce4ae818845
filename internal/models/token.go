package models

import "time"

// ConfirmationToken bridges an inbound voice call to a web session. The token
// value itself is the key; it never appears in logs in full.
type ConfirmationToken struct {
	Token     string    `json:"token" bson:"_id"`
	Phone     string    `json:"phone" bson:"phone"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Used      bool      `json:"used" bson:"used"`
}

// ExpiresIn reports the remaining lifetime in whole seconds at time now.
// Negative once the token is past its TTL.
func (t *ConfirmationToken) ExpiresIn(ttl time.Duration, now time.Time) int64 {
	return int64(ttl.Seconds()) - int64(now.Sub(t.CreatedAt).Seconds())
}

// Expired reports whether the token is past its TTL at time now.
func (t *ConfirmationToken) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(t.CreatedAt) >= ttl
}
