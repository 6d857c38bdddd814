package main

import (
	"log"
	"os"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/relatorio"
	emailsvc "github.com/e-docBR/colaboraEdu-produc/services/email"
	logsvc "github.com/e-docBR/colaboraEdu-produc/services/logger"
	"github.com/e-docBR/colaboraEdu-produc/storage/database"
	sqlxrepos "github.com/e-docBR/colaboraEdu-produc/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	os.Exit(run(conf, logger))
}

func run(conf *core.Config, logger *logsvc.RollbarLogger) int {
	defer logger.Close()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Error("creating database", err)
		return 1
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Error("opening database", err)
		return 1
	}
	defer db.Close()

	engine, err := relatorio.NewEngine(conf.Relatorio.CacheSize)
	if err != nil {
		logger.Error("creating report engine", err)
		return 1
	}
	core.ParseEmailTemplates(conf, logger)

	var mailer core.EmailService
	if conf.Debug {
		mailer = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailer = emailsvc.NewSendgridService(conf, logger)
	}

	// start CLI
	cli := commandLine{
		db:        db,
		secretKey: []byte(conf.SecretKey),
		store:     nota.NewStore(sqlxrepos.NewNotaRepository(db), logger, 0),
		engine:    engine,
		mailer:    mailer,
		out:       os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		return 1
	}
	return 0
}
