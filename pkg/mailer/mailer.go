// Package mailer sends transactional email over SMTP. Delivery is
// best-effort: callers log failures and move on, a send error never
// propagates into a state transition.
package mailer

import (
	"github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"
)

var log = logrus.WithField("prefix", "mailer")

// Mailer wraps an SMTP dialer. A nil-host Mailer silently drops mail,
// which keeps local development working without an SMTP server.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New builds a Mailer. If host is empty, sending becomes a no-op.
func New(host string, port int, user, password, from string) *Mailer {
	m := &Mailer{from: from}
	if host != "" {
		m.dialer = gomail.NewDialer(host, port, user, password)
	}
	return m
}

// Send delivers a single HTML email.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if m.dialer == nil {
		log.Debugf("smtp disabled, dropping mail to %s (%s)", to, subject)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	return m.dialer.DialAndSend(msg)
}
