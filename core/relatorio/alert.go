package relatorio

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

const alertTemplate = "radar_abandono"

// AlertLine is one student of the dropout digest.
type AlertLine struct {
	Nome       string
	Turma      string
	Risco      float64
	Percentual string // "72%"
}

// AlertData is the template data of the dropout digest.
type AlertData struct {
	Escopo string
	Limiar string
	Linhas []AlertLine
}

// AlertMessage builds the dropout-risk digest for the given radar rows.
// It returns nil when there is nobody to report or nobody to tell.
func AlertMessage(scope session.Scope, rows []Row, recipients []mail.Address) *core.EmailMessage {
	if len(recipients) == 0 {
		return nil
	}

	data := AlertData{
		Escopo: scope.String(),
		Limiar: fmt.Sprintf("%.0f%%", riskThreshold*100),
	}
	for _, r := range rows {
		risk, ok := r.(RiskRow)
		if !ok {
			continue
		}
		data.Linhas = append(data.Linhas, AlertLine{
			Nome:       risk.Nome,
			Turma:      risk.Turma,
			Risco:      risk.Risco,
			Percentual: fmt.Sprintf("%.0f%%", risk.Risco*100),
		})
	}
	if len(data.Linhas) == 0 {
		return nil
	}

	return &core.EmailMessage{
		To:           recipients,
		Subject:      fmt.Sprintf("Radar de Abandono: %d aluno(s) em risco", len(data.Linhas)),
		TemplateName: alertTemplate,
		TemplateData: data,
	}
}

// Loader loads the records of a session's scope.
type Loader interface {
	Load(ctx context.Context, sess session.Session) (nota.Snapshot, error)
}

// SendAlert loads the session's scope, derives its dropout radar and mails the digest.
// It returns the number of students reported; nothing is sent when that is 0.
func SendAlert(
	ctx context.Context,
	loader Loader,
	engine *Engine,
	mailer core.EmailService,
	sess session.Session,
	to []mail.Address,
) (int, error) {
	snap, err := loader.Load(ctx, sess)
	if err != nil {
		return 0, err
	}
	if snap.Err != nil && snap.Version == 0 {
		return 0, snap.Err
	}

	res, _ := engine.Derive(SlugRadarAbandono, snap, nota.Filter{})
	msg := AlertMessage(sess.Scope, res.Data.Dados, to)
	if msg == nil {
		return 0, nil
	}
	if err = msg.Render(); err != nil {
		return 0, errors.Wrap(err, "rendering alert")
	}
	mailer.SendMessages(msg)
	return len(msg.TemplateData.(AlertData).Linhas), nil
}
