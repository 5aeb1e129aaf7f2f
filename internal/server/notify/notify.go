// Package notify renders the fixed set of system notifications and stores
// them for their recipient.
package notify

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/models"
)

type Kind string

const (
	KindWelcome      Kind = "welcome"
	KindTurnedMember Kind = "turned_member"
	KindNewProject   Kind = "new_project"
	KindNewRequest   Kind = "new_request"
)

// Message selects a template and carries its substitution values. Only the
// fields used by the chosen kind are read.
type Message struct {
	Kind      Kind
	Project   string
	Requester string
	Note      string
}

var templates = map[Kind]*template.Template{
	KindWelcome: parse(KindWelcome, `Bem-vindo ao projeto Ikebana Sanguetsu. Este website é uma plataforma de
aprendizagem e compartilhamento de arranjos e ideias, bem como videoaulas e
tutoriais.`),
	KindTurnedMember: parse(KindTurnedMember, `Você se tornou membro do website. Agora poderá criar novos arranjos e projetos
para compartilhar com a comunidade.`),
	KindNewProject: parse(KindNewProject, `Novo projeto adicionado: {{.Project}}`),
	KindNewRequest: parse(KindNewRequest, `Foi requisitado o arranjo: {{.Project}}
Por: {{.Requester}}

Mensagem do solicitador:
{{.Note}}

Faça-o se puder`),
}

func parse(k Kind, text string) *template.Template {
	return template.Must(template.New(string(k)).Option("missingkey=error").Parse(text))
}

// Render produces the notification text for m. Values are inserted exactly
// once, so text that looks like template syntax stays as typed.
func Render(m Message) (string, error) {
	t, ok := templates[m.Kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown notification kind %q", common.ErrorValidation, m.Kind)
	}

	var b strings.Builder
	if err := t.Execute(&b, m); err != nil {
		return "", fmt.Errorf("render %s: %w", m.Kind, err)
	}
	return b.String(), nil
}

// Store is the part of the notifications repository the composer needs.
type Store interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
}

type Composer struct {
	log logging.Logger
}

func NewComposer(log logging.Logger) *Composer {
	return &Composer{log: log.With("module", "notify")}
}

// Notify renders m and stores it for accountID through store, which is
// normally bound to the caller's transaction.
func (c *Composer) Notify(ctx context.Context, store Store, accountID int64, m Message) (*models.Notification, error) {
	content, err := Render(m)
	if err != nil {
		return nil, err
	}

	n, err := store.Create(ctx, &models.Notification{
		AccountID: accountID,
		Sender:    common.SystemSender,
		Content:   content,
	})
	if err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	c.log.Debug(ctx, "notification stored", "account_id", accountID, "kind", string(m.Kind))
	return n, nil
}
