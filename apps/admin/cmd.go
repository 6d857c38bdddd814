package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/olekukonko/tablewriter"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/relatorio"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
	"github.com/e-docBR/colaboraEdu-produc/storage/database"
)

var (
	migrateFunc = database.Migrate // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	secretKey []byte
	store     *nota.Store
	engine    *relatorio.Engine
	mailer    core.EmailService
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a database migration command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  relatorios - list the available reports")
	_, _ = fmt.Fprintln(cli.out, "  relatorio -slug SLUG -tenant ID -ano ID [-turma T] [-turno T] [-disciplina D] [-json] - compute a report")
	_, _ = fmt.Fprintln(cli.out, "  alerta -tenant ID -ano ID -to EMAIL[,EMAIL...] - mail the dropout-risk digest")
	_, _ = fmt.Fprintln(cli.out, "  token -tenant ID -ano ID [-user ID] [-username NAME] [-ttl DURATION] - sign an API token")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return migrateFunc(cli.db, args[2], args[3:]...)

	case "relatorios":
		return cli.listRelatorios()

	case "relatorio":
		cmd := cli.newFlagSet("relatorio")
		slug := cmd.String("slug", "", "The report slug, see `relatorios`.")
		scope := scopeFlags(cmd)
		var filter nota.Filter
		cmd.StringVar(&filter.Turma, "turma", "", "Only this class.")
		cmd.StringVar(&filter.Turno, "turno", "", "Only this shift.")
		cmd.StringVar(&filter.Disciplina, "disciplina", "", "Only this subject.")
		asJSON := cmd.Bool("json", false, "Print the result as JSON.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *slug == "" || scope().IsZero() {
			cmd.Usage()
			return errHelp
		}
		filter.Clean()
		return cli.relatorio(relatorio.Slug(*slug), scope(), filter, *asJSON)

	case "alerta":
		cmd := cli.newFlagSet("alerta")
		scope := scopeFlags(cmd)
		to := cmd.String("to", "", "Comma separated recipients.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if scope().IsZero() || *to == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.alerta(scope(), core.SplitList(*to))

	case "token":
		cmd := cli.newFlagSet("token")
		scope := scopeFlags(cmd)
		userID := cmd.Int("user", 0, "The user ID (sub claim).")
		username := cmd.String("username", "admin", "The username.")
		ttl := cmd.Duration("ttl", 24*time.Hour, "The token lifetime.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if scope().IsZero() || *ttl <= 0 {
			cmd.Usage()
			return errHelp
		}
		return cli.token(session.UserClaims(*userID, *username, scope(), *ttl, "admin"))

	default:
		cli.printUsage()
		return errHelp
	}
}

func scopeFlags(cmd *flag.FlagSet) func() session.Scope {
	tenant := cmd.Int("tenant", 0, "The tenant ID.")
	year := cmd.Int("ano", 0, "The academic year ID.")
	return func() session.Scope {
		return session.Scope{TenantID: *tenant, AcademicYearID: *year}
	}
}

func (cli *commandLine) listRelatorios() error {
	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"Slug", "Tipo", "Título", "Derivado"})
	for _, def := range relatorio.Catalog() {
		derived := "não"
		if def.Derived {
			derived = "sim"
		}
		table.Append([]string{string(def.Slug), string(def.Kind), def.Title, derived})
	}
	table.Render()
	return nil
}

func (cli *commandLine) relatorio(slug relatorio.Slug, scope session.Scope, filter nota.Filter, asJSON bool) error {
	if _, ok := relatorio.Lookup(slug); !ok {
		return fmt.Errorf("%q: unknown report", slug)
	}
	if !relatorio.IsDerived(slug) {
		return fmt.Errorf("%q: not a derived report", slug)
	}

	snap, err := cli.store.Load(context.Background(), session.System(scope))
	if err != nil {
		return err
	}
	if snap.Err != nil {
		return snap.Err
	}
	res, _ := cli.engine.Derive(slug, snap, filter)

	if asJSON {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	table := tablewriter.NewWriter(cli.out)
	table.SetAutoWrapText(false)
	for i, row := range res.Data.Dados {
		header, cells := rowCells(row)
		if i == 0 {
			table.SetHeader(header)
		}
		table.Append(cells)
	}
	if len(res.Data.Dados) == 0 {
		table.SetHeader([]string{"Nenhum resultado"})
	}
	table.Render()
	return nil
}

func rowCells(row relatorio.Row) (header, cells []string) {
	num := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

	switch r := row.(type) {
	case relatorio.RiskRow:
		return []string{"Nome", "Turma", "Risco"}, []string{r.Nome, r.Turma, num(r.Risco)}
	case relatorio.MoverRow:
		return []string{"Nome", "Turma", "Delta"}, []string{r.Nome, r.Turma, num(r.Delta)}
	case relatorio.EfficiencyRow:
		return []string{"Turma", "Média", "Escola", "Delta"}, []string{r.Turma, num(r.Media), num(r.Escola), num(r.Delta)}
	default:
		return []string{"Valor"}, []string{fmt.Sprintf("%v", r)}
	}
}

func (cli *commandLine) alerta(scope session.Scope, recipients []string) error {
	to := make([]mail.Address, 0, len(recipients))
	for _, r := range recipients {
		addr, err := mail.ParseAddress(r)
		if err != nil {
			return fmt.Errorf("%q: %w", r, err)
		}
		to = append(to, *addr)
	}

	n, err := relatorio.SendAlert(context.Background(), cli.store, cli.engine, cli.mailer, session.System(scope), to)
	if err != nil {
		return err
	}
	cli.mailer.Wait()
	_, _ = fmt.Fprintf(cli.out, "%d aluno(s) em risco reportado(s) para %s\n", n, strings.Join(recipients, ", "))
	return nil
}

func (cli *commandLine) token(claims *session.Claims) error {
	tkn, err := session.NewToken(claims, cli.secretKey)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, tkn)
	return nil
}
