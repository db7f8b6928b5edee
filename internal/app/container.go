package app

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hirelane/internal/config"
	"hirelane/internal/database"
	"hirelane/internal/database/migration"
	dbpostgres "hirelane/internal/database/postgres"
	"hirelane/internal/infrastructure/cache"
	"hirelane/internal/infrastructure/gateway"
	"hirelane/internal/infrastructure/objectstore"
	"hirelane/internal/metrics"
	"hirelane/internal/pkg/jwt"
	"hirelane/internal/repository"
	"hirelane/internal/repository/memory"
	"hirelane/internal/usecase/applications"
	"hirelane/internal/usecase/jobs"
	"hirelane/internal/usecase/notifications"
	"hirelane/internal/usecase/offers"
	"hirelane/internal/usecase/payments"
	"hirelane/internal/usecase/sweep"
	"hirelane/internal/ws"
)

type Repositories struct {
	Jobs          repository.JobRepository
	Payments      repository.PaymentRepository
	Applications  repository.ApplicationRepository
	Offers        repository.OfferRepository
	Notifications repository.NotificationRepository
}

type Services struct {
	Jobs          *jobs.Service
	Payments      *payments.Service
	Applications  *applications.Service
	Offers        *offers.Service
	Notifications *notifications.Service
	Sweep         *sweep.Service
}

type Container struct {
	Config  config.Config
	Logger  *zap.Logger
	DB      database.DB
	Store   *memory.Store
	Redis   *cache.Redis
	Metrics *metrics.Collector
	Hub     *ws.Hub
	JWT     jwt.Service

	Gateway  gateway.Gateway
	Uploader objectstore.Uploader

	Repos    Repositories
	Services Services
}

// NewContainer connects storage and builds every service. With
// APP_IN_MEMORY set, Postgres is replaced by the process-local store.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewCollector(),
		JWT:     jwt.NewHMACService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenTTL),
	}

	if cfg.App.InMemory {
		logger.Warn("running with in-memory storage, data is lost on exit")
		c.Store = memory.NewStore()
		c.Repos = Repositories{
			Jobs:          c.Store.Jobs(),
			Payments:      c.Store.Payments(),
			Applications:  c.Store.Applications(),
			Offers:        c.Store.Offers(),
			Notifications: c.Store.Notifications(),
		}
	} else {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		db, err := dbpostgres.Connect(connectCtx, cfg.Database, logger)
		cancel()
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.Repos = Repositories{
			Jobs:          repository.NewPostgresJobRepository(db),
			Payments:      repository.NewPostgresPaymentRepository(db),
			Applications:  repository.NewPostgresApplicationRepository(db),
			Offers:        repository.NewPostgresOfferRepository(db),
			Notifications: repository.NewPostgresNotificationRepository(db),
		}
	}

	c.Redis = cache.NewRedis(cfg.Redis, logger)
	c.Hub = ws.NewHub(logger.Named("ws"), c.Metrics)

	c.Gateway = gateway.NewHTTPGateway(cfg.Payment.GatewayBaseURL, cfg.Payment.GatewayAPIKey, cfg.Payment.CallTimeout, logger.Named("gateway"))
	if c.Gateway == nil {
		logger.Warn("payment gateway url not set, using in-process fake gateway")
		c.Gateway = gateway.NewFake()
	}
	c.Uploader = objectstore.NewHTTPUploader(cfg.Storage.BaseURL, cfg.Storage.Token, cfg.Storage.CallTimeout, logger.Named("objectstore"))
	if c.Uploader == nil {
		logger.Warn("storage url not set, keeping resumes in memory")
		c.Uploader = objectstore.NewMemory()
	}

	c.Services = buildServices(cfg, c, logger)
	return c, nil
}

func buildServices(cfg config.Config, c *Container, logger *zap.Logger) Services {
	var channel notifications.Channel = c.Hub
	if c.Redis.Ping(context.Background()) == nil {
		channel = notifications.NewPubSubChannel(c.Redis)
	}
	notify := notifications.NewService(c.Repos.Notifications, channel, c.Metrics, logger.Named("notifications"))

	jobSvc := jobs.NewService(jobs.Deps{
		Jobs:     c.Repos.Jobs,
		Payments: c.Repos.Payments,
		Gateway:  c.Gateway,
		Cache:    c.Redis,
		Notifier: notify,
		Metrics:  c.Metrics,
		Logger:   logger.Named("jobs"),
	}, jobs.Config{
		ListingPrice: cfg.Payment.ListingPrice,
		Currency:     cfg.Payment.Currency,
		SuccessURL:   cfg.Payment.SuccessURL,
		CancelURL:    cfg.Payment.CancelURL,
		CallTimeout:  cfg.Payment.CallTimeout,
		PublicTTL:    cfg.Redis.PublicJobsTTL,
	})

	paySvc := payments.NewService(payments.Deps{
		Payments:  c.Repos.Payments,
		Jobs:      c.Repos.Jobs,
		Lifecycle: jobSvc,
		Gateway:   c.Gateway,
		Metrics:   c.Metrics,
		Logger:    logger.Named("payments"),
	}, payments.Config{
		WebhookSecret: cfg.Payment.WebhookSecret,
		Tolerance:     cfg.Payment.SignatureSkew,
		CallTimeout:   cfg.Payment.CallTimeout,
	})

	appSvc := applications.NewService(applications.Deps{
		Applications: c.Repos.Applications,
		Jobs:         c.Repos.Jobs,
		Uploader:     c.Uploader,
		Notifier:     notify,
		Metrics:      c.Metrics,
		Logger:       logger.Named("applications"),
	})

	offerSvc := offers.NewService(offers.Deps{
		Offers:   c.Repos.Offers,
		Pipeline: appSvc,
		Notifier: notify,
		Metrics:  c.Metrics,
		Logger:   logger.Named("offers"),
	})

	sweepSvc := sweep.NewService(sweep.Deps{
		Offers:   c.Repos.Offers,
		Pipeline: appSvc,
		Payments: paySvc,
		Locker:   c.Redis,
		Metrics:  c.Metrics,
		Logger:   logger.Named("sweep"),
	}, sweep.Config{
		PaymentGrace:  cfg.Sweep.PaymentGrace,
		BatchSize:     cfg.Sweep.BatchSize,
		Workers:       cfg.Sweep.Workers,
		RatePerSecond: cfg.Sweep.RatePerSecond,
		LockTTL:       cfg.Sweep.LockTTL,
	})

	return Services{
		Jobs:          jobSvc,
		Payments:      paySvc,
		Applications:  appSvc,
		Offers:        offerSvc,
		Notifications: notify,
		Sweep:         sweepSvc,
	}
}

// Migrate applies pending goose migrations. It is a no-op in memory mode.
func (c *Container) Migrate(ctx context.Context) error {
	if c.DB == nil {
		return nil
	}
	return migration.Runner{Dir: c.Config.Database.MigrationsDir, Logger: c.Logger.Named("migration")}.Run(ctx, c.DB.SQLDB())
}

// Pinger reports storage health for either backend.
func (c *Container) Pinger() interface{ Ping(context.Context) error } {
	if c.DB != nil {
		return c.DB
	}
	return c.Store
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.Redis != nil {
		err = multierr.Append(err, c.Redis.Close())
	}
	if c.DB != nil {
		err = multierr.Append(err, c.DB.Close())
	}
	return err
}
