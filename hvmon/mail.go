// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hvmon

import (
	"crypto/tls"
	"fmt"

	mail "gopkg.in/gomail.v2"

	"github.com/go-lpc/caen/internal/setup"
)

type sender interface {
	DialAndSend(msgs ...*mail.Message) error
}

// Mailer sends alerts by mail.
type Mailer struct {
	from string
	to   []string
	dial sender
}

// NewMailer returns a mailer sending through the SMTP server of cfg.
func NewMailer(cfg setup.Mail) *Mailer {
	dial := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	dial.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &Mailer{
		from: from,
		to:   append([]string(nil), cfg.To...),
		dial: dial,
	}
}

func (m *Mailer) message(subject, body string) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("Bcc", m.to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}

// Alert sends a mail to all the recipients.
func (m *Mailer) Alert(subject, body string) error {
	if len(m.to) == 0 {
		return fmt.Errorf("hvmon: no mail recipient")
	}
	err := m.dial.DialAndSend(m.message(subject, body))
	if err != nil {
		return fmt.Errorf("hvmon: could not send mail: %w", err)
	}
	return nil
}

var _ Alerter = (*Mailer)(nil)
