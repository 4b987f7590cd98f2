// Package notify renders and sends the transactional mail of the agent
// account flows.
package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Sender turns account events into messages and hands them to a transport.
type Sender struct {
	transport   Transport
	frontendURL string
	tokenTTL    time.Duration
}

func NewSender(t Transport, frontendURL string, tokenTTL time.Duration) *Sender {
	return &Sender{transport: t, frontendURL: strings.TrimRight(frontendURL, "/"), tokenTTL: tokenTTL}
}

func (s *Sender) TransportName() string { return s.transport.Name() }

func (s *Sender) SendVerification(ctx context.Context, to, name, token string) error {
	return s.send(ctx, to, name, "Verify Your Email - ApartmentNG", verificationTemplate,
		s.frontendURL+"/agent/verify-email/"+token)
}

func (s *Sender) SendEmailChange(ctx context.Context, to, name, token string) error {
	return s.send(ctx, to, name, "Confirm Your New Email - ApartmentNG", emailChangeTemplate,
		s.frontendURL+"/agent/verify-new-email/"+token)
}

type templateData struct {
	Name  string
	Link  string
	Hours int
	Year  int
}

func (s *Sender) send(ctx context.Context, to, name, subject string, tpl mailTemplate, link string) error {
	data := templateData{Name: name, Link: link, Hours: int(s.tokenTTL.Hours()), Year: time.Now().Year()}
	var text, html bytes.Buffer
	if err := tpl.text.Execute(&text, data); err != nil {
		return fmt.Errorf("render %s text: %w", tpl.name, err)
	}
	if err := tpl.html.Execute(&html, data); err != nil {
		return fmt.Errorf("render %s html: %w", tpl.name, err)
	}
	return s.transport.Send(ctx, Message{To: to, ToName: name, Subject: subject, Text: text.String(), HTML: html.String()})
}

type mailTemplate struct {
	name string
	text *texttemplate.Template
	html *htmltemplate.Template
}

func newMailTemplate(name, text, html string) mailTemplate {
	return mailTemplate{
		name: name,
		text: texttemplate.Must(texttemplate.New(name).Parse(text)),
		html: htmltemplate.Must(htmltemplate.New(name).Parse(html)),
	}
}

const htmlLayoutStart = `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<div style="background: #0d9488; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;"><h1 style="color: white; margin: 0;">ApartmentNG</h1></div>
<div style="background: #f8f9fa; padding: 40px 30px; border-radius: 0 0 10px 10px;">`

const htmlLayoutEnd = `<p style="background: #fef3c7; border-left: 4px solid #f59e0b; padding: 15px;"><strong>Note:</strong> This link will expire in {{.Hours}} hours.</p>
</div>
<p style="text-align: center; color: #666; font-size: 12px;">&copy; {{.Year}} ApartmentNG. Premium Short-Let Apartments in Nigeria</p>
</div></body></html>`

var verificationTemplate = newMailTemplate("verification",
	`Welcome to ApartmentNG, {{.Name}}!

Please verify your email address by opening the link below:
{{.Link}}

This link will expire in {{.Hours}} hours.
If you didn't register for ApartmentNG, please ignore this email.

(c) {{.Year}} ApartmentNG
`,
	htmlLayoutStart+`<h2>Welcome, {{.Name}}!</h2>
<p>Thank you for registering as an agent on ApartmentNG. Please verify your email address to unlock all features.</p>
<p style="text-align: center;"><a href="{{.Link}}" style="background: #0d9488; color: white; padding: 14px 30px; text-decoration: none; border-radius: 8px;">Verify Email Address</a></p>
<p style="color: #666; font-size: 14px;">Or copy and paste this link into your browser:<br><code>{{.Link}}</code></p>
<p style="color: #666; font-size: 14px;">If you didn't register for ApartmentNG, please ignore this email.</p>
`+htmlLayoutEnd)

var emailChangeTemplate = newMailTemplate("email_change",
	`Hello {{.Name}},

You requested to change the email address on your ApartmentNG agent account to this address.
Confirm the change by opening the link below:
{{.Link}}

This link will expire in {{.Hours}} hours.
If you didn't request this change, please ignore this email and your account will stay unchanged.

(c) {{.Year}} ApartmentNG
`,
	htmlLayoutStart+`<h2>Confirm your new email, {{.Name}}</h2>
<p>You requested to change the email address on your ApartmentNG agent account to this address.</p>
<p style="text-align: center;"><a href="{{.Link}}" style="background: #0d9488; color: white; padding: 14px 30px; text-decoration: none; border-radius: 8px;">Confirm New Email</a></p>
<p style="color: #666; font-size: 14px;">Or copy and paste this link into your browser:<br><code>{{.Link}}</code></p>
<p style="color: #666; font-size: 14px;">If you didn't request this change, please ignore this email.</p>
`+htmlLayoutEnd)
