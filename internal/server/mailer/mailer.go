// Package mailer sends the transactional e-mails of the service: account
// confirmation, partner welcome and password recovery.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/config"
	"github.com/wneessen/go-mail"
)

// Mailer is what the account flows need from mail delivery.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, token string) error
	SendPartnerWelcome(ctx context.Context, to string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// newSMTPClient is a seam for tests.
var newSMTPClient = func(cfg *config.Config) (sender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	return mail.NewClient(cfg.SMTPHost, opts...)
}

type SMTPMailer struct {
	client  sender
	from    string
	siteURL string
	log     logging.Logger
}

func NewSMTPMailer(cfg *config.Config, log logging.Logger) (*SMTPMailer, error) {
	client, err := newSMTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{
		client:  client,
		from:    cfg.SMTPFrom,
		siteURL: strings.TrimSuffix(cfg.SiteURL, "/"),
		log:     log.With("module", "mailer"),
	}, nil
}

var (
	confirmationTmpl = template.Must(template.New("confirmation").Parse(
		`<h1>Confirmação de cadastro</h1>
<a href="{{.Link}}">Clique no link</a>
`))
	partnerTmpl = template.Must(template.New("partner").Parse(
		`<h1>Você solicitou se tornar um membro do site Ikebana Sanguetsu</h1>
<h2>Aproveite as novas funcionalidades.</h2>
`))
	resetTmpl = template.Must(template.New("reset").Parse(
		`<h1>Recuperação de senha</h1>
<a href="{{.Link}}">Clique aqui</a>
`))
)

func (m *SMTPMailer) SendConfirmation(ctx context.Context, to, token string) error {
	return m.send(ctx, to, "Confirmação de cadastro", confirmationTmpl, m.link("/verify", token))
}

func (m *SMTPMailer) SendPartnerWelcome(ctx context.Context, to string) error {
	return m.send(ctx, to, "Ikebana Sanguetsu", partnerTmpl, "")
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	return m.send(ctx, to, "Recuperação de senha", resetTmpl, m.link("/reset_pass", token))
}

func (m *SMTPMailer) link(path, token string) string {
	return m.siteURL + path + "?code=" + url.QueryEscape(token)
}

func render(t *template.Template, link string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ Link string }{Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *SMTPMailer) send(ctx context.Context, to, subject string, t *template.Template, link string) error {
	body, err := render(t, link)
	if err != nil {
		return fmt.Errorf("render %s: %w", t.Name(), err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.log.Error(ctx, "mail delivery failed", "template", t.Name(), "error", err)
		return fmt.Errorf("send %s mail: %w", t.Name(), err)
	}

	m.log.Info(ctx, "mail sent", "template", t.Name())
	return nil
}
