// Package tokenstore issues and redeems the short-lived confirmation tokens
// that bridge an inbound emergency call to a browser session. A token is sent
// to the caller by SMS as part of a confirmation link; the first browser to
// consume it wins, and tokens silently age out after their TTL.
package tokenstore

import (
	"context"
	"errors"
	"time"

	"swasthsuraksha/internal/models"
)

var (
	ErrTokenNotFound    = errors.New("confirmation token not found")
	ErrTokenExpired     = errors.New("confirmation token expired")
	ErrTokenAlreadyUsed = errors.New("confirmation token already used")
)

// Validation is the read-only view returned by Validate. ExpiresIn may be
// negative once the token is past its TTL.
type Validation struct {
	Phone     string `json:"phone"`
	Used      bool   `json:"used"`
	ExpiresIn int64  `json:"expires_in"`
}

// Store is the confirmation-token contract. Validate never mutates the token;
// Consume is first-caller-wins and must be atomic with respect to concurrent
// consumers. Both enforce the TTL themselves, so correctness never depends on
// the background sweep having run.
type Store interface {
	Issue(ctx context.Context, phone string) (*models.ConfirmationToken, error)
	Validate(ctx context.Context, token string) (*Validation, error)
	Consume(ctx context.Context, token string) (string, error)

	// StartSweep launches the periodic expiry sweep. It returns immediately
	// and stops when ctx is cancelled.
	StartSweep(ctx context.Context, interval time.Duration)
}
