package twilio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grainlyyy/pds-api/internal/config"
	"github.com/grainlyyy/pds-api/internal/pkg/phone"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender sends SMS through the Twilio Messages API.
type Sender struct {
	client *twilio.RestClient
	from   string
}

func NewSender(cfg *config.Config) (*Sender, error) {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
		return nil, fmt.Errorf("twilio: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return &Sender{client: client, from: cfg.TwilioFromNumber}, nil
}

// SendSMS ignores ctx; the Twilio client has no context-aware API.
func (s *Sender) SendSMS(_ context.Context, to, message string) error {
	number := phone.E164(to)
	if number == "" {
		return fmt.Errorf("twilio: no phone number in %q", to)
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(number)
	params.SetBody(message)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	if resp.Sid != nil {
		slog.Debug("twilio message queued", "sid", *resp.Sid)
	}
	return nil
}
