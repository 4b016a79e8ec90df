package main

import (
	"context"
	"fmt"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/fightlab/apps/api/echo"
	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/assessment"
	"github.com/trezcool/fightlab/core/catalog"
	"github.com/trezcool/fightlab/core/entitlement"
	"github.com/trezcool/fightlab/core/progress"
	emailsvc "github.com/trezcool/fightlab/services/email"
	logsvc "github.com/trezcool/fightlab/services/logger"
	paymentsvc "github.com/trezcool/fightlab/services/payment"
	rediscache "github.com/trezcool/fightlab/storage/cache/redis"
	"github.com/trezcool/fightlab/storage/database"
	"github.com/trezcool/fightlab/storage/database/sqlxrepos"
)

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf, "api"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	dbLogger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf, "db"), conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	if err = database.Migrate(db.DB); err != nil {
		logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	// set up access cache
	var cache entitlement.AccessCache
	if conf.Redis.CacheEnabled() {
		rc, cErr := rediscache.Open(context.Background(), conf.Redis)
		if cErr != nil {
			logger.Warn(fmt.Sprintf("access cache disabled: %v", cErr), cErr)
		} else {
			defer func() { _ = rc.Close() }()
			cache = rc
		}
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)

	catalogSvc := catalog.NewService(sqlxrepos.NewCatalogRepository(db), validate, logger)
	entitlementSvc := entitlement.NewService(entitlement.ServiceDeps{
		Repo:          sqlxrepos.NewPurchaseRepository(db),
		Courses:       catalogSvc,
		Provider:      paymentsvc.NewRevolutClient(conf.Payment, logger),
		Cache:         cache,
		MailSvc:       mailSvc,
		Logger:        logger,
		Validate:      validate,
		WebhookSecret: conf.Payment.WebhookSecret,
		SiteURL:       conf.Payment.SiteURL,
	})
	assessmentSvc := assessment.NewService(sqlxrepos.NewAttemptRepository(db), catalogSvc, logger)
	progressSvc := progress.NewService(sqlxrepos.NewProgressRepository(db), logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(conf, logger)

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		CatalogSvc:     catalogSvc,
		EntitlementSvc: entitlementSvc,
		AssessmentSvc:  assessmentSvc,
		ProgressSvc:    progressSvc,
		Validate:       validate,
		Translator:     translator,
	})

	run(conf, logger, server)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
