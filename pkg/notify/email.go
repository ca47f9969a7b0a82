package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"

	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/wneessen/go-mail"
)

// Payload is everything a notification needs to describe one price event.
type Payload struct {
	AlertName     string
	CurrentPrice  decimal.Decimal
	TargetPrice   decimal.Decimal
	URL           string
	Reason        models.TriggerReason
	PreviousPrice decimal.NullDecimal
}

// SMTPConfig holds the mail relay and both ends of the conversation.
type SMTPConfig struct {
	Host           string `mapstructure:"smtp_host"`
	Port           int    `mapstructure:"smtp_port"`
	SenderEmail    string `mapstructure:"sender_email"`
	SenderPassword string `mapstructure:"sender_password"`
	RecipientEmail string `mapstructure:"recipient_email"`
}

// mailer is the part of *mail.Client the notifier needs.
type mailer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
	DialWithContext(ctx context.Context) error
	Close() error
}

// EmailNotifier sends multipart (plain text + HTML) alert emails over SMTP
// with STARTTLS and PLAIN auth.
type EmailNotifier struct {
	cfg    SMTPConfig
	client mailer
	log    logger.Logger
}

func NewEmailNotifier(cfg SMTPConfig, log logger.Logger) (*EmailNotifier, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SenderEmail),
		mail.WithPassword(cfg.SenderPassword),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &EmailNotifier{cfg: cfg, client: client, log: log}, nil
}

// Send reports delivery success. Every failure is logged and turned into
// false so the caller can keep the alert's notified price untouched.
func (n *EmailNotifier) Send(ctx context.Context, p Payload) bool {
	msg, err := n.message(p)
	if err != nil {
		n.log.Error("Failed to build notification email", logger.String("alert", p.AlertName), logger.Error(err))
		return false
	}

	n.log.Info("Sending notification email", logger.String("recipient", n.cfg.RecipientEmail))
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		n.log.Error("Failed to send notification email", logger.String("alert", p.AlertName), logger.Error(err))
		return false
	}

	n.log.Info("Notification sent successfully",
		logger.String("alert", p.AlertName),
		logger.String("price", p.CurrentPrice.StringFixed(2)),
		logger.String("reason", string(p.Reason)),
	)
	return true
}

// TestConnection dials and authenticates without sending anything.
func (n *EmailNotifier) TestConnection(ctx context.Context) bool {
	n.log.Info("Testing SMTP connection",
		logger.String("host", n.cfg.Host),
		logger.Int("port", n.cfg.Port),
	)
	if err := n.client.DialWithContext(ctx); err != nil {
		n.log.Error("SMTP connection test failed", logger.Error(err))
		return false
	}
	if err := n.client.Close(); err != nil {
		n.log.Warn("Closing SMTP connection failed", logger.Error(err))
	}
	n.log.Info("SMTP connection test successful")
	return true
}

func (n *EmailNotifier) message(p Payload) (*mail.Msg, error) {
	text, html, err := Render(p)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(n.cfg.SenderEmail); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(n.cfg.RecipientEmail); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject("Price Alert: " + p.AlertName)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}

type bodyData struct {
	AlertName string
	URL       string
	Current   string
	Target    string
	Savings   string
	Previous  string
	Drop      string
	FirstTime bool
}

func newBodyData(p Payload) bodyData {
	prev := p.PreviousPrice.Decimal
	drop := decimal.Zero
	if p.PreviousPrice.Valid {
		drop = prev.Sub(p.CurrentPrice)
	}
	return bodyData{
		AlertName: p.AlertName,
		URL:       p.URL,
		Current:   p.CurrentPrice.StringFixed(2),
		Target:    p.TargetPrice.StringFixed(2),
		Savings:   p.TargetPrice.Sub(p.CurrentPrice).StringFixed(2),
		Previous:  prev.StringFixed(2),
		Drop:      drop.StringFixed(2),
		FirstTime: p.Reason != models.ReasonPriceDrop,
	}
}

// Render produces the plain text and HTML bodies for p.
func Render(p Payload) (text, html string, err error) {
	data := newBodyData(p)

	var tb bytes.Buffer
	if err := textBody.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	var hb bytes.Buffer
	if err := htmlBody.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	return tb.String(), hb.String(), nil
}

var textBody = template.Must(template.New("text").Parse(`Price Alert: {{.AlertName}}
{{if .FirstTime}}
The ticket price has dropped below your target!

Current Price: ${{.Current}}
Target Price: ${{.Target}}
Savings: ${{.Savings}}

Event URL: {{.URL}}

This is the first time the price has been below your target.
{{else}}
The ticket price has dropped further!

Current Price: ${{.Current}}
Previous Price: ${{.Previous}}
Price Drop: ${{.Drop}}
Target Price: ${{.Target}}

Event URL: {{.URL}}

The price continues to fall. Act now!
{{end}}`))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<html>
  <body>
    <h2>Price Alert: {{.AlertName}}</h2>
    <p>{{if .FirstTime}}The ticket price has dropped below your target!{{else}}The ticket price has dropped further!{{end}}</p>
    <table border="1" cellpadding="10" style="border-collapse: collapse;">
      <tr>
        <td><strong>Current Price:</strong></td>
        <td style="color: green; font-size: 18px;">${{.Current}}</td>
      </tr>
{{- if not .FirstTime}}
      <tr>
        <td><strong>Previous Price:</strong></td>
        <td style="text-decoration: line-through;">${{.Previous}}</td>
      </tr>
      <tr>
        <td><strong>Price Drop:</strong></td>
        <td style="color: green; font-weight: bold;">${{.Drop}}</td>
      </tr>
{{- end}}
      <tr>
        <td><strong>Target Price:</strong></td>
        <td>${{.Target}}</td>
      </tr>
{{- if .FirstTime}}
      <tr>
        <td><strong>Savings:</strong></td>
        <td style="color: green;">${{.Savings}}</td>
      </tr>
{{- end}}
    </table>
    <p><a href="{{.URL}}" style="background-color: #4CAF50; color: white; padding: 14px 20px; text-align: center; text-decoration: none; display: inline-block; margin-top: 10px;">View Event</a></p>
{{- if .FirstTime}}
    <p style="color: gray; font-size: 12px;">This is the first time the price has been below your target.</p>
{{- else}}
    <p style="color: red; font-weight: bold;">The price continues to fall. Act now!</p>
{{- end}}
  </body>
</html>
`))
