// services/whatsapp.go
package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"duebook-backend/models"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// DeliveryError wraps a transport or provider failure. The retry pipeline
// does not distinguish transient from permanent failures; both exhaust the
// retry budget the same way.
type DeliveryError struct {
	Channel models.ReminderChannel
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", strings.ToLower(string(e.Channel)), e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// NotificationSender delivers one reminder message to a customer's address.
type NotificationSender interface {
	Send(ctx context.Context, channel models.ReminderChannel, to, body string) (messageID string, err error)
}

// TwilioSender sends over WhatsApp or SMS through the Twilio API.
type TwilioSender struct {
	client       *twilio.RestClient
	whatsappFrom string
	smsFrom      string
}

func NewTwilioSender() *TwilioSender {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
		whatsappFrom: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		smsFrom:      os.Getenv("TWILIO_PHONE_NUMBER"),
	}
}

func (s *TwilioSender) Send(ctx context.Context, channel models.ReminderChannel, to, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	if channel == models.ChannelWhatsApp {
		params.SetTo("whatsapp:" + to)
		params.SetFrom("whatsapp:" + s.whatsappFrom)
	} else {
		params.SetTo(to)
		params.SetFrom(s.smsFrom)
	}
	params.SetBody(body)

	type result struct {
		sid string
		err error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := s.client.Api.CreateMessage(params)
		if err != nil {
			done <- result{err: err}
			return
		}
		if resp.Sid == nil {
			done <- result{}
			return
		}
		done <- result{sid: *resp.Sid}
	}()

	// The Twilio client has no context support; an attempt that outlives the
	// deadline counts as a failure for retry purposes.
	select {
	case <-ctx.Done():
		return "", &DeliveryError{Channel: channel, Err: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			return "", &DeliveryError{Channel: channel, Err: r.err}
		}
		return r.sid, nil
	}
}

// LogSender logs messages instead of sending them. Used when Twilio
// credentials are not configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, channel models.ReminderChannel, to, body string) (string, error) {
	logrus.WithFields(logrus.Fields{
		"channel": channel,
		"to":      to,
		"body":    body,
	}).Info("Reminder delivery skipped (log-only sender)")
	return "log-only", nil
}

// NewSenderFromEnv picks the Twilio sender when credentials are present and
// the log-only sender otherwise.
func NewSenderFromEnv() NotificationSender {
	if os.Getenv("TWILIO_ACCOUNT_SID") == "" || os.Getenv("TWILIO_AUTH_TOKEN") == "" {
		logrus.Warn("Twilio credentials not set; reminders will be logged, not sent")
		return LogSender{}
	}
	return NewTwilioSender()
}
