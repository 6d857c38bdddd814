package main

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/relatorio"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
	emailsvc "github.com/e-docBR/colaboraEdu-produc/services/email"
	inmemdb "github.com/e-docBR/colaboraEdu-produc/storage/database/inmem"
	testutil "github.com/e-docBR/colaboraEdu-produc/tests"
)

var (
	out    *bytes.Buffer
	mailer *emailsvc.ConsoleServiceMock
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	conf := &core.Config{TestMode: true, AppName: "colaboraEdu", FrontendBaseURL: "https://app.test"}
	core.ParseEmailTemplates(conf, testutil.Logger{})

	repo := inmemdb.NewNotaRepository(inmemdb.Open())
	ana := testutil.Aluno(1, "Ana", "9A", "Manhã")
	bia := testutil.Aluno(2, "Bia", "9B", "Manhã")
	repo.Add(testutil.TestScope,
		testutil.Nota(ana, "Mat", 80, 2, 60, 70, 80),
		testutil.Nota(bia, "Mat", 50, 0, 60, 60, 57),
		testutil.Nota(bia, "Port", 50, 0),
		testutil.Nota(bia, "Hist", 50, 0),
		testutil.Nota(bia, "Geo", 50, 0),
	)

	engine, err := relatorio.NewEngine(relatorio.DefaultCacheSize)
	require.NoError(t, err)

	out = new(bytes.Buffer)
	mailer = emailsvc.NewConsoleServiceMock(conf, testutil.Logger{})

	// start CLI
	return &commandLine{
		secretKey: testutil.TestKey,
		store:     nota.NewStore(repo, testutil.Logger{}, 0),
		engine:    engine,
		mailer:    mailer,
		out:       out,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    []string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()

	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
				return
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "relatorios", args: []string{"relatorios"}, wantOut: []string{"radar-abandono", "top-movers", "comparativo-eficiencia", "heatmap"}},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "notas_index", "sql"}},
	})
}

func Test_commandLine_relatorio(t *testing.T) {
	cli := setup(t)
	scope := []string{"-tenant", "1", "-ano", "2024"}

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"relatorio"}, wantErr: errHelp},
		{name: "no scope", args: []string{"relatorio", "-slug", "top-movers"}, wantErr: errHelp},
		{name: "bad flag", args: []string{"relatorio", "-tenant", "lol"}, wantErrStr: `invalid value "lol" for flag -tenant: parse error`},
		{name: "unknown slug", args: append([]string{"relatorio", "-slug", "lol"}, scope...), wantErrStr: `"lol": unknown report`},
		{name: "server-backed", args: append([]string{"relatorio", "-slug", "performance-heatmap"}, scope...), wantErrStr: `"performance-heatmap": not a derived report`},
		{
			name:    "radar",
			args:    append([]string{"relatorio", "-slug", "radar-abandono"}, scope...),
			wantOut: []string{"NOME", "RISCO", "Bia", "0.4"},
		},
		{
			name:    "movers",
			args:    append([]string{"relatorio", "-slug", "top-movers"}, scope...),
			wantOut: []string{"DELTA", "Ana", "10", "Bia", "-3"},
		},
		{
			name:    "movers filtered",
			args:    append([]string{"relatorio", "-slug", "top-movers", "-turma", " 9B "}, scope...),
			wantOut: []string{"Bia"},
		},
		{
			name:    "efficiency",
			args:    append([]string{"relatorio", "-slug", "comparativo-eficiencia"}, scope...),
			wantOut: []string{"ESCOLA", "9A", "9B", "56"},
		},
		{
			name:    "json",
			args:    append([]string{"relatorio", "-slug", "radar-abandono", "-json"}, scope...),
			wantOut: []string{`"dados": [`, `"nome": "Bia"`, `"risco": 0.4`, `"isError": false`},
		},
		{
			name:    "empty scope",
			args:    []string{"relatorio", "-slug", "radar-abandono", "-tenant", "9", "-ano", "1"},
			wantOut: []string{"NENHUM RESULTADO"},
		},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "relatorio", "-slug", "top-movers", "-turma", "9B", "-tenant", "1", "-ano", "2024"}))
	assert.NotContains(t, out.String(), "Ana")
}

func Test_commandLine_alerta(t *testing.T) {
	cli := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"alerta"}, wantErr: errHelp},
		{name: "no recipients", args: []string{"alerta", "-tenant", "1", "-ano", "2024"}, wantErr: errHelp},
		{
			name:    "sent",
			args:    []string{"alerta", "-tenant", "1", "-ano", "2024", "-to", "coord@school.test, dir@school.test"},
			wantOut: []string{"1 aluno(s) em risco reportado(s) para coord@school.test, dir@school.test"},
		},
	})

	err := cli.run([]string{"admin", "alerta", "-tenant", "1", "-ano", "2024", "-to", "lol"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), `"lol": mail: `), err.Error())

	sent := mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Len(t, sent[0].To, 2)
	assert.Contains(t, sent[0].TextContent, "- Bia (9B): 40%")
}

func Test_commandLine_token(t *testing.T) {
	cli := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no scope", args: []string{"token"}, wantErr: errHelp},
		{name: "bad ttl", args: []string{"token", "-tenant", "1", "-ano", "2024", "-ttl", "-1h"}, wantErr: errHelp},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "token", "-tenant", "1", "-ano", "2024", "-user", "7"}))

	sess, err := session.Parse(strings.TrimSpace(out.String()), testutil.TestKey)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestScope, sess.Scope)
	assert.Equal(t, "7", sess.UserID)
	assert.Equal(t, []string{"admin"}, sess.Roles)
}
