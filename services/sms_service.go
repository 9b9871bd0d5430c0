package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reviewflow-backend/utils"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrSMSNotConfigured = errors.New("twilio is not configured")

// SMSSender delivers a plain text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// TwilioSMS sends through the Twilio REST API with credentials from settings.
type TwilioSMS struct {
	settings SettingsResolver
	log      *utils.Logger
}

func NewTwilioSMS(settings SettingsResolver, log *utils.Logger) *TwilioSMS {
	return &TwilioSMS{settings: settings, log: log.With("service", "TwilioSMS")}
}

func (s *TwilioSMS) SendSMS(ctx context.Context, to, body string) error {
	sid, okSID := s.settings.Get(ctx, KeyTwilioAccountSID)
	token, okToken := s.settings.Get(ctx, KeyTwilioAuthToken)
	from, okFrom := s.settings.Get(ctx, KeyTwilioFrom)
	if !okSID || !okToken || !okFrom {
		return ErrSMSNotConfigured
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: sid,
		Password: token,
	})

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	if resp.Sid != nil {
		s.log.Info("sms sent", "sid", *resp.Sid)
	}
	return nil
}

// OperatorNotifier texts the automation run summary to OPERATOR_PHONE.
type OperatorNotifier struct {
	sms      SMSSender
	settings SettingsResolver
	log      *utils.Logger
}

func NewOperatorNotifier(sms SMSSender, settings SettingsResolver, log *utils.Logger) *OperatorNotifier {
	return &OperatorNotifier{sms: sms, settings: settings, log: log.With("service", "OperatorNotifier")}
}

func (n *OperatorNotifier) NotifyRun(ctx context.Context, result RunResult) error {
	phone, ok := n.settings.Get(ctx, KeyOperatorPhone)
	if !ok {
		n.log.Debug("no operator phone, skipping run summary")
		return nil
	}
	err := n.sms.SendSMS(ctx, phone, FormatRunSummary(result))
	if errors.Is(err, ErrSMSNotConfigured) {
		n.log.Debug("twilio not configured, skipping run summary")
		return nil
	}
	return err
}

// FormatRunSummary renders a run as a short text message.
func FormatRunSummary(result RunResult) string {
	var newPatients, sent int
	var b strings.Builder
	for _, r := range result.Results {
		newPatients += r.NewPatients
		sent += r.EmailsSent
	}
	fmt.Fprintf(&b, "ReviewFlow weekly run: %d clients, %d new patients, %d emails sent", result.Processed, newPatients, sent)
	for _, r := range result.Results {
		fmt.Fprintf(&b, "\n%s: %d/%d sent", r.ClientName, r.EmailsSent, r.NewPatients)
		if r.Error != "" {
			b.WriteString(" (failed)")
		}
	}
	return b.String()
}
