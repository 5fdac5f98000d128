package services

import (
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"

	"oahushop/internal/config"
	"oahushop/internal/logx"
	"oahushop/internal/models"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService mails new inquiries to the shop owner. Without SMTP
// credentials it only logs.
type EmailService struct {
	dialer mailSender
	from   string
	to     string
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	if cfg.User == "" || cfg.Pass == "" {
		logx.Info().Msg("SMTP credentials not set, inquiry mail disabled")
		return &EmailService{from: "noreply@oahu.shop"}
	}
	to := cfg.NotifyTo
	if to == "" {
		to = cfg.User
	}
	return &EmailService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:   cfg.User,
		to:     to,
	}
}

// Enabled reports whether mail is actually sent.
func (es *EmailService) Enabled() bool {
	return es.dialer != nil
}

// NotifyInquiry sends one inquiry, labelled with the form schema in effect.
func (es *EmailService) NotifyInquiry(schema []models.FormField, inq models.Inquiry) error {
	if es.dialer == nil {
		logx.Debug().Int("inquiry", inq.ID).Msg("mail disabled, inquiry notification skipped")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", es.from)
	m.SetHeader("To", es.to)
	m.SetHeader("Subject", fmt.Sprintf("[OAHU] 새 문의 #%d", inq.ID))
	m.SetBody("text/html", inquiryBody(schema, inq))

	if email := inq.Value("email"); email != "" && strings.Contains(email, "@") {
		m.SetHeader("Reply-To", email)
	}

	if err := es.dialer.DialAndSend(m); err != nil {
		logx.Error().Err(err).Int("inquiry", inq.ID).Msg("inquiry mail failed")
		return err
	}
	logx.Info().Int("inquiry", inq.ID).Str("to", es.to).Msg("inquiry mail sent")
	return nil
}

func inquiryBody(schema []models.FormField, inq models.Inquiry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>새 문의 #%d</h2>\n<p>%s</p>\n<table>\n", inq.ID, html.EscapeString(inq.Timestamp))
	seen := make(map[string]bool, len(schema))
	for _, f := range schema {
		seen[f.ID] = true
		writeRow(&b, f.Label, inq.Value(f.ID))
	}
	// values of fields removed from the form since submission
	for id, v := range inq.Values {
		if !seen[id] {
			writeRow(&b, id, v)
		}
	}
	b.WriteString("</table>\n")
	return b.String()
}

func writeRow(b *strings.Builder, label, value string) {
	value = strings.ReplaceAll(html.EscapeString(value), "\n", "<br>")
	fmt.Fprintf(b, "<tr><th>%s</th><td>%s</td></tr>\n", html.EscapeString(label), value)
}
