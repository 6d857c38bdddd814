package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"net/mail"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	echoapi "github.com/e-docBR/colaboraEdu-produc/apps/api/echo"
	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/relatorio"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
	emailsvc "github.com/e-docBR/colaboraEdu-produc/services/email"
	logsvc "github.com/e-docBR/colaboraEdu-produc/services/logger"
	"github.com/e-docBR/colaboraEdu-produc/services/schoolapi"
	"github.com/e-docBR/colaboraEdu-produc/storage/database"
	sqlxrepos "github.com/e-docBR/colaboraEdu-produc/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	if err := conf.Validate(); err != nil {
		logger.Fatal(fmt.Sprintf("invalid configuration: %v", err), err)
	}

	// set up the record source
	var repo nota.Repository
	switch conf.Source.Kind {
	case core.SourceAPI:
		repo = schoolapi.NewClient(conf.Source, logger)
	default:
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()
		repo = sqlxrepos.NewNotaRepository(db)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	defer mailSvc.Wait()

	store := nota.NewStore(repo, logger, conf.Source.StaleAfter)
	engine, err := relatorio.NewEngine(conf.Relatorio.CacheSize)
	if err != nil {
		logger.Fatal(fmt.Sprintf("creating report engine: %v", err), err)
	}
	sessions := session.NewRegistry([]byte(conf.SecretKey))
	sessions.OnScopeClosed(store.Forget)
	sessions.OnScopeClosed(engine.Forget)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	relatorio.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Scheduled Jobs

	jobs, err := startJobs(conf, logger, store, engine, sessions, mailSvc)
	if err != nil {
		logger.Fatal(fmt.Sprintf("scheduling jobs: %v", err), err)
	}
	defer func() { <-jobs.Stop().Done() }()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("source").Set(conf.Source.Kind)
	expvar.Publish("relatorios", expvar.Func(func() interface{} { return engine.Stats() }))
	expvar.Publish("sessions", expvar.Func(func() interface{} { return sessions.Len() }))
	expvar.Publish("scopes", expvar.Func(func() interface{} { return len(store.Scopes()) }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Store:      store,
			Engine:     engine,
			Sessions:   sessions,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// startJobs schedules the periodic refresh of the tracked scopes and the dropout digest.
func startJobs(
	conf *core.Config,
	logger core.Logger,
	store *nota.Store,
	engine *relatorio.Engine,
	sessions *session.Registry,
	mailSvc core.EmailService,
) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)))

	if conf.Source.RefreshSchedule != "" {
		_, err := c.AddFunc(conf.Source.RefreshSchedule, func() {
			if n := sessions.Prune(); n > 0 {
				logger.Info(fmt.Sprintf("closed %d expired session(s)", n))
			}
			store.RefreshAll(context.Background())
		})
		if err != nil {
			return nil, fmt.Errorf("refresh schedule %q: %w", conf.Source.RefreshSchedule, err)
		}
	}

	if conf.Alert.Schedule != "" {
		scope := session.Scope{TenantID: conf.Alert.TenantID, AcademicYearID: conf.Alert.AcademicYearID}
		to, err := parseRecipients(conf.Alert.Recipients)
		if err != nil {
			return nil, err
		}
		_, err = c.AddFunc(conf.Alert.Schedule, func() {
			n, err := relatorio.SendAlert(context.Background(), store, engine, mailSvc, session.System(scope), to)
			if err != nil {
				logger.Error(fmt.Sprintf("sending dropout alert for %s: %v", scope, err), err)
				return
			}
			logger.Info(fmt.Sprintf("dropout alert for %s: %d student(s)", scope, n))
		})
		if err != nil {
			return nil, fmt.Errorf("alert schedule %q: %w", conf.Alert.Schedule, err)
		}
	}

	c.Start()
	return c, nil
}

func parseRecipients(addrs []string) ([]mail.Address, error) {
	to := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		addr, err := mail.ParseAddress(a)
		if err != nil {
			return nil, fmt.Errorf("alert recipient %q: %w", a, err)
		}
		to = append(to, *addr)
	}
	return to, nil
}
