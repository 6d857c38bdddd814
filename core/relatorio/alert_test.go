package relatorio

import (
	"context"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
	emailsvc "github.com/e-docBR/colaboraEdu-produc/services/email"
	inmemdb "github.com/e-docBR/colaboraEdu-produc/storage/database/inmem"
	testutil "github.com/e-docBR/colaboraEdu-produc/tests"
)

func TestAlertMessage(t *testing.T) {
	core.ParseEmailTemplates(&core.Config{TestMode: true, FrontendBaseURL: "https://app.test"}, testutil.Logger{})

	to := []mail.Address{{Name: "Coord", Address: "coord@school.test"}}
	rows := []Row{
		RiskRow{Nome: "Caio", Turma: "9A", Risco: 0.99},
		RiskRow{Nome: "Bia", Turma: "9B", Risco: 0.4},
	}

	assert.Nil(t, AlertMessage(testutil.TestScope, rows, nil), "no recipients")
	assert.Nil(t, AlertMessage(testutil.TestScope, nil, to), "no rows")
	assert.Nil(t, AlertMessage(testutil.TestScope, []Row{MoverRow{Nome: "Ana", Delta: 3}}, to), "wrong rows")

	msg := AlertMessage(testutil.TestScope, rows, to)
	require.NotNil(t, msg)
	assert.Equal(t, to, msg.To)
	assert.Equal(t, "Radar de Abandono: 2 aluno(s) em risco", msg.Subject)

	require.NoError(t, msg.Render())
	assert.Contains(t, msg.TextContent, "- Caio (9A): 99%")
	assert.Contains(t, msg.TextContent, "- Bia (9B): 40%")
	assert.Contains(t, msg.TextContent, "acima de 30%")
	assert.Contains(t, msg.TextContent, "https://app.test/relatorios/radar-abandono")
	assert.Contains(t, msg.HTMLContent, "<td>Caio</td>")
}

func TestSendAlert(t *testing.T) {
	conf := &core.Config{TestMode: true, AppName: "colaboraEdu", FrontendBaseURL: "https://app.test"}
	core.ParseEmailTemplates(conf, testutil.Logger{})

	repo := inmemdb.NewNotaRepository(inmemdb.Open())
	ana := testutil.Aluno(1, "Ana", "9A", "Manhã")
	bia := testutil.Aluno(2, "Bia", "9B", "Manhã")
	repo.Add(testutil.TestScope,
		testutil.Nota(ana, "Mat", 80, 2),
		testutil.Nota(bia, "Mat", 50, 0),
		testutil.Nota(bia, "Port", 50, 0),
		testutil.Nota(bia, "Hist", 50, 0),
		testutil.Nota(bia, "Geo", 50, 0),
	)

	store := nota.NewStore(repo, testutil.Logger{}, 0)
	engine, err := NewEngine(DefaultCacheSize)
	require.NoError(t, err)
	to := []mail.Address{{Address: "coord@school.test"}}

	tests := []struct {
		name     string
		scope    session.Scope
		to       []mail.Address
		want     int
		wantSent int
		wantErr  bool
	}{
		{name: "no scope", scope: session.Scope{}, to: to, wantErr: true},
		{name: "nobody at risk", scope: session.Scope{TenantID: 9, AcademicYearID: 2024}, to: to},
		{name: "no recipients", scope: testutil.TestScope},
		{name: "sent", scope: testutil.TestScope, to: to, want: 1, wantSent: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := emailsvc.NewConsoleServiceMock(conf, testutil.Logger{})
			got, err := SendAlert(context.Background(), store, engine, mailer, session.System(tt.scope), tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("SendAlert() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			assert.Equal(t, tt.want, got)

			sent := mailer.SentMessages()
			require.Len(t, sent, tt.wantSent)
			if tt.wantSent > 0 {
				assert.Equal(t, "Radar de Abandono: 1 aluno(s) em risco", sent[0].Subject)
				assert.Contains(t, sent[0].TextContent, "- Bia (9B): 40%")
			}
		})
	}
}
