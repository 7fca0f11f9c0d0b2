package receipt

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"medicos/m/domain"
)

// Sender delivers a rendered receipt to a phone number in E.164 form.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Twilio sends WhatsApp messages through the Twilio REST API.
type Twilio struct {
	client *twilio.RestClient
	from   string
}

func NewTwilio(accountSID, authToken, fromWhatsApp string) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Twilio{client: client, from: strings.TrimPrefix(fromWhatsApp, "whatsapp:")}
}

func (t *Twilio) Send(ctx context.Context, to, body string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo("whatsapp:" + to)
	params.SetFrom("whatsapp:" + t.from)
	params.SetBody(body)

	done := make(chan error, 1)
	go func() {
		_, err := t.client.Api.CreateMessage(params)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("twilio: %v: %w", ctx.Err(), domain.ErrDeliveryFailed)
	case err := <-done:
		if err != nil {
			return fmt.Errorf("twilio: %v: %w", err, domain.ErrDeliveryFailed)
		}
		return nil
	}
}

// LogSender writes receipts to the log. Used when no messaging provider is
// configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (l *LogSender) Send(_ context.Context, to, body string) error {
	l.log.Info("receipt_logged", zap.String("to", to), zap.Int("bytes", len(body)))
	return nil
}

// NormalizePhone converts a customer phone number to E.164. Bare ten digit
// numbers are taken as Indian mobiles.
func NormalizePhone(phone string) (string, error) {
	var digits strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", fmt.Errorf("phone %q: %w", phone, domain.ErrValidation)
		}
	}
	d := digits.String()
	switch {
	case len(d) == 10:
		return "+91" + d, nil
	case len(d) == 11 && d[0] == '0':
		return "+91" + d[1:], nil
	case len(d) >= 11 && len(d) <= 15:
		return "+" + d, nil
	}
	return "", fmt.Errorf("phone %q: %w", phone, domain.ErrValidation)
}
