package dig_container

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

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
	inmemdb "github.com/trezcool/fightlab/storage/database/inmem"
	"github.com/trezcool/fightlab/storage/database/sqlxrepos"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// DBCloserParam releases the storage backend on shutdown.
	DBCloserParam struct {
		dig.In
		Closer io.Closer `name:"dbCloser"`
	}

	// CacheCloserParam releases the access cache connections on shutdown.
	CacheCloserParam struct {
		dig.In
		Closer io.Closer `name:"cacheCloser"`
	}

	AccessCacheResult struct {
		dig.Out
		Cache  entitlement.AccessCache
		Closer io.Closer `name:"cacheCloser"`
	}

	Repositories struct {
		dig.Out
		Catalog   catalog.Repository
		Purchases entitlement.Repository
		Attempts  assessment.Repository
		Progress  progress.Repository
		Closer    io.Closer `name:"dbCloser"`
	}

	entitlementParams struct {
		dig.In
		Conf       *core.Config
		Repo       entitlement.Repository
		CatalogSvc *catalog.Service
		Provider   entitlement.PaymentProvider
		Cache      entitlement.AccessCache
		MailSvc    core.EmailService
		Logger     core.Logger
		Validate   *validator.Validate
	}

	serverParams struct {
		dig.In
		Conf           *core.Config
		Logger         core.Logger
		CatalogSvc     *catalog.Service
		EntitlementSvc *entitlement.Service
		AssessmentSvc  *assessment.Service
		ProgressSvc    *progress.Service
		Validate       *validator.Validate
		Translator     ut.Translator
	}
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf, "api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf, "db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newRepositories picks the in-memory store or postgres (created & migrated on the fly).
func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.InMemory {
		db := inmemdb.Open()
		return Repositories{
			Catalog:   inmemdb.NewCatalogRepository(db),
			Purchases: inmemdb.NewPurchaseRepository(db),
			Attempts:  inmemdb.NewAttemptRepository(db),
			Progress:  inmemdb.NewProgressRepository(db),
			Closer:    nopCloser{},
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(db.DB); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	return Repositories{
		Catalog:   sqlxrepos.NewCatalogRepository(db),
		Purchases: sqlxrepos.NewPurchaseRepository(db),
		Attempts:  sqlxrepos.NewAttemptRepository(db),
		Progress:  sqlxrepos.NewProgressRepository(db),
		Closer:    db,
	}
}

// newAccessCache returns a nil Cache when no redis address is configured or reachable;
// lookups then always hit the DB.
func newAccessCache(conf *core.Config, logger core.Logger) AccessCacheResult {
	if !conf.Redis.CacheEnabled() {
		return AccessCacheResult{Closer: nopCloser{}}
	}
	cache, err := rediscache.Open(context.Background(), conf.Redis)
	if err != nil {
		logger.Warn(fmt.Sprintf("access cache disabled: %v", err), err)
		return AccessCacheResult{Closer: nopCloser{}}
	}
	return AccessCacheResult{Cache: cache, Closer: cache}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newPaymentProvider(conf *core.Config, logger core.Logger) entitlement.PaymentProvider {
	return paymentsvc.NewRevolutClient(conf.Payment, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newEntitlementService(p entitlementParams) *entitlement.Service {
	return entitlement.NewService(entitlement.ServiceDeps{
		Repo:          p.Repo,
		Courses:       p.CatalogSvc,
		Provider:      p.Provider,
		Cache:         p.Cache,
		MailSvc:       p.MailSvc,
		Logger:        p.Logger,
		Validate:      p.Validate,
		WebhookSecret: p.Conf.Payment.WebhookSecret,
		SiteURL:       p.Conf.Payment.SiteURL,
	})
}

func newAssessmentService(repo assessment.Repository, catalogSvc *catalog.Service, logger core.Logger) *assessment.Service {
	return assessment.NewService(repo, catalogSvc, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           p.Conf,
		Logger:         p.Logger,
		CatalogSvc:     p.CatalogSvc,
		EntitlementSvc: p.EntitlementSvc,
		AssessmentSvc:  p.AssessmentSvc,
		ProgressSvc:    p.ProgressSvc,
		Validate:       p.Validate,
		Translator:     p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newAccessCache))
	must(c.Provide(newEmailService))
	must(c.Provide(newPaymentProvider))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(catalog.NewService))
	must(c.Provide(newEntitlementService))
	must(c.Provide(newAssessmentService))
	must(c.Provide(progress.NewService))
	must(c.Provide(newServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
