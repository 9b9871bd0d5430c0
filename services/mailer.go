package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"
	"time"

	"reviewflow-backend/utils"

	"github.com/resend/resend-go/v2"
)

type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers one transactional email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// ResendMailer sends through Resend, picking up API key rotations from settings.
type ResendMailer struct {
	settings SettingsResolver
	log      *utils.Logger
	timeout  time.Duration

	mu      sync.Mutex
	client  *resend.Client
	lastKey string
}

func NewResendMailer(settings SettingsResolver, log *utils.Logger, timeout time.Duration) *ResendMailer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ResendMailer{
		settings: settings,
		log:      log.With("service", "ResendMailer"),
		timeout:  timeout,
	}
}

func (m *ResendMailer) resendClient(ctx context.Context) (*resend.Client, error) {
	key, ok := m.settings.Get(ctx, KeyResendAPIKey)
	if !ok {
		return nil, errors.New("RESEND_API_KEY is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil || key != m.lastKey {
		m.client = resend.NewClient(key)
		m.lastKey = key
	}
	return m.client, nil
}

func (m *ResendMailer) Send(ctx context.Context, email Email) error {
	client, err := m.resendClient(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	sent, err := client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	m.log.Debug("email accepted", "id", sent.Id)
	return nil
}

type ReviewEmailData struct {
	CustomerName string
	ClientName   string
	LogoURL      string
	BrandColor   string
	BaseURL      string
	Token        string
}

type starLink struct {
	Rating int
	URL    string
}

var reviewEmailTemplate = template.Must(template.New("review").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>How was your experience with {{.ClientName}}?</title></head>
<body style="background-color:#F3F4F6;font-family:'Inter',-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;padding:40px 0;">
<div style="max-width:600px;margin:0 auto;">
<div style="background-color:#FFFFFF;border-radius:12px;padding:0 32px 32px;border-top:4px solid {{.BrandColor}};">
<div style="text-align:center;padding:24px 0 8px;">
{{if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.ClientName}}" width="120" height="40" style="margin:0 auto;display:block;object-fit:contain;">{{else}}<p style="font-size:22px;font-weight:bold;color:{{.BrandColor}};margin:0;">{{.ClientName}}</p>{{end}}
</div>
<p style="font-size:18px;font-weight:600;color:#111827;text-align:center;line-height:1.5;margin:16px 0 8px;">Hi {{.CustomerName}}, how was your experience with {{.ClientName}}?</p>
<p style="font-size:14px;color:#6B7280;text-align:center;line-height:1.5;margin:0 0 8px;">Your feedback helps us improve. Please tap a star below to rate your experience:</p>
<table cellpadding="0" cellspacing="0" style="margin:0 auto;padding:8px 0 24px;"><tbody>
<tr>{{range .Stars}}<td style="padding:0 6px;"><a href="{{.URL}}" style="display:inline-block;width:44px;height:44px;line-height:44px;font-size:36px;text-align:center;text-decoration:none;color:#F59E0B;">&#9733;</a></td>{{end}}</tr>
<tr>{{range .Stars}}<td style="text-align:center;font-size:11px;color:#9CA3AF;padding-top:2px;">{{.Rating}}</td>{{end}}</tr>
</tbody></table>
<hr style="border-color:#E5E7EB;margin:0 0 16px;">
<p style="font-size:12px;color:#9CA3AF;text-align:center;margin:0;">Powered by ReviewFlow</p>
<img src="{{.PixelURL}}" width="1" height="1" alt="" style="display:block;">
</div>
</div>
</body>
</html>`))

// RatingURL is the link behind one star.
func RatingURL(baseURL, token string, rating int) string {
	return fmt.Sprintf("%s/r/%s?s=%d", baseURL, token, rating)
}

// PixelURL is the open-tracking image source.
func PixelURL(baseURL, token string) string {
	return fmt.Sprintf("%s/track/open/%s", baseURL, token)
}

func RenderReviewEmail(d ReviewEmailData) (string, error) {
	stars := make([]starLink, 0, 5)
	for r := 1; r <= 5; r++ {
		stars = append(stars, starLink{Rating: r, URL: RatingURL(d.BaseURL, d.Token, r)})
	}
	var buf bytes.Buffer
	err := reviewEmailTemplate.Execute(&buf, struct {
		ReviewEmailData
		Stars    []starLink
		PixelURL string
	}{d, stars, PixelURL(d.BaseURL, d.Token)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
