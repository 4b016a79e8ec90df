package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/catalog"
	"github.com/trezcool/fightlab/core/entitlement"
	emailsvc "github.com/trezcool/fightlab/services/email"
	logsvc "github.com/trezcool/fightlab/services/logger"
	paymentsvc "github.com/trezcool/fightlab/services/payment"
	"github.com/trezcool/fightlab/storage/database"
	"github.com/trezcool/fightlab/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf, "admin"), conf)
	defer logger.Sync()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	core.ParseEmailTemplates(conf, logger)

	validate := validator.New()
	catalogSvc := catalog.NewService(sqlxrepos.NewCatalogRepository(db), validate, logger)
	entitlementSvc := entitlement.NewService(entitlement.ServiceDeps{
		Repo:     sqlxrepos.NewPurchaseRepository(db),
		Courses:  catalogSvc,
		Provider: paymentsvc.NewRevolutClient(conf.Payment, logger),
		MailSvc:  mailSvc,
		Logger:   logger,
		Validate: validate,
		SiteURL:  conf.Payment.SiteURL,
	})

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db.DB,
		resolver: entitlementSvc,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
