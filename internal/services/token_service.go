package services

import (
	"context"
	"fmt"

	"swasthsuraksha/internal/tokenstore"
	"swasthsuraksha/pkg/logger"
	"swasthsuraksha/pkg/sms"
)

// Voice responses returned to the telephony provider. The caller hears the
// prompt and hangs up; the actual request continues over the SMS link.
const (
	twimlConfirmation = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Say voice="alice">Thank you for calling Swasth Suraksha emergency services. We have sent a confirmation link to your phone. Please tap the link to share your location and request an ambulance.</Say>
  <Hangup/>
</Response>`

	twimlFailure = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Say voice="alice">We are sorry, we could not process your call. Please try again or dial your local emergency number.</Say>
  <Hangup/>
</Response>`
)

// TokenService bridges an inbound phone call to a web confirmation session: it
// mints a single-use token keyed to the caller's number, texts back a link
// carrying it, and answers the call with voice instructions.
type TokenService interface {
	// HandleIncomingCall issues a token for the caller and sends the SMS link.
	// The returned TwiML is always valid to play, even on failure.
	HandleIncomingCall(ctx context.Context, from string) (twiml string, err error)

	Validate(ctx context.Context, token string) (*tokenstore.Validation, error)
	Consume(ctx context.Context, token string) (phone string, err error)
}

type tokenService struct {
	store       tokenstore.Store
	smsProvider sms.SMSProvider
	frontendURL string
	log         *logger.Logger
}

func NewTokenService(store tokenstore.Store, smsProvider sms.SMSProvider, frontendURL string, log *logger.Logger) TokenService {
	return &tokenService{
		store:       store,
		smsProvider: smsProvider,
		frontendURL: frontendURL,
		log:         log,
	}
}

func (s *tokenService) HandleIncomingCall(ctx context.Context, from string) (string, error) {
	if from == "" {
		return twimlFailure, fmt.Errorf("incoming call without caller number")
	}

	issued, err := s.store.Issue(ctx, from)
	if err != nil {
		s.log.WithPhone(from).WithError(err).Error("Failed to issue confirmation token")
		return twimlFailure, err
	}

	link := fmt.Sprintf("%s/confirm/%s", s.frontendURL, issued.Token)
	message := fmt.Sprintf("SwasthSuraksha Emergency: tap this link to share your location and request an ambulance: %s. The link expires in 1 hour.", link)

	if _, err := s.smsProvider.SendSMS(ctx, &sms.SMSRequest{
		To:      from,
		Message: message,
		Type:    "emergency",
	}); err != nil {
		s.log.WithPhone(from).WithError(err).Error("Failed to send confirmation SMS")
		return twimlFailure, err
	}

	s.log.WithPhone(from).Info("Confirmation link sent for incoming call")
	return twimlConfirmation, nil
}

func (s *tokenService) Validate(ctx context.Context, token string) (*tokenstore.Validation, error) {
	return s.store.Validate(ctx, token)
}

func (s *tokenService) Consume(ctx context.Context, token string) (string, error) {
	return s.store.Consume(ctx, token)
}
