// Package server wires configuration, storage, services and transports into
// the taskflow API process and runs it until it receives a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/server/auth"
	"github.com/dmitrijs2005/taskflow/internal/server/awsx"
	"github.com/dmitrijs2005/taskflow/internal/server/config"
	"github.com/dmitrijs2005/taskflow/internal/server/database"
	"github.com/dmitrijs2005/taskflow/internal/server/queue"
	"github.com/dmitrijs2005/taskflow/internal/server/ratelimit"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskflow/internal/server/rest"
	"github.com/dmitrijs2005/taskflow/internal/server/secrets"
	"github.com/dmitrijs2005/taskflow/internal/server/services"
	"github.com/dmitrijs2005/taskflow/internal/server/storage"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/taskflow/internal/server/grpc"
)

const otpPurgeInterval = 10 * time.Minute

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	otp        *services.OTPService
	httpServer *rest.Server
	grpcServer *gs.HealthServer
}

// Bootstrap loads secrets and AWS settings, opens the database and applies
// migrations. It is shared by the server and the admin command.
func Bootstrap(ctx context.Context, cfg *config.Config, logger logging.Logger) (*sql.DB, repomanager.RepositoryManager, *aws.Config, error) {
	var awsCfg *aws.Config
	if cfg.UseAWS() || cfg.SecretsName != "" {
		c, err := awsx.Load(ctx, awsx.Options{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.AWSEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("aws config: %w", err)
		}
		awsCfg = &c

		if err := secrets.NewLoaderFromConfig(c).Apply(ctx, cfg); err != nil {
			return nil, nil, nil, fmt.Errorf("secrets: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}

	db, err := database.Open(ctx, database.Options{
		DSN:             cfg.DatabaseDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnectTimeout:  cfg.DBConnectTimeout,
	}, logger.With("module", "database"))
	if err != nil {
		return nil, nil, nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	return db, rm, awsCfg, nil
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, rm, awsCfg, err := Bootstrap(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app := &App{config: cfg, logger: logger, db: db}

	var publisher queue.Publisher = queue.NewLogPublisher(logger)
	var store services.ObjectStorage
	if awsCfg != nil && cfg.UseAWS() {
		publisher = queue.NewSQSPublisherFromConfig(*awsCfg, cfg.QueueName)
		if cfg.S3Bucket != "" {
			store = storage.NewS3StorageFromConfig(*awsCfg, cfg.S3Bucket)
		}
	}

	var limiter ratelimit.Limiter = ratelimit.Noop{}
	if cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		limiter = ratelimit.NewRedisLimiter(app.redis, cfg.RateLimitWindow)
	}

	hasher := auth.NewHasher(cfg.BcryptCost)
	app.otp = services.NewOTPService(db, rm, publisher, hasher, cfg, logger)
	users := services.NewUserService(db, rm, hasher, app.otp, cfg, logger)
	health := services.NewHealthService(db)

	handlers := rest.NewHandlers(rest.Options{
		Users:       users,
		OTP:         app.otp,
		OAuth:       services.NewOAuthService(db, rm, cfg, logger),
		Tasks:       services.NewTaskService(db, rm, logger),
		Attachments: services.NewAttachmentService(db, rm, store, logger),
		Health:      health,
		Limiter:     limiter,
		LoginLimit:  cfg.RateLimitLogin,
		OTPLimit:    cfg.RateLimitOTPSend,
		Production:  !cfg.IsDevelopment(),
	}, logger)

	app.httpServer = rest.NewServer(cfg.HTTPAddr, handlers.Router(), logger)
	if cfg.GRPCAddr != "" {
		app.grpcServer = gs.NewHealthServer(cfg.GRPCAddr, health, logger)
	}
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) purgeOTPCodes(ctx context.Context) {
	t := time.NewTicker(otpPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := app.otp.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
				app.logger.Warn(ctx, "otp purge failed", "error", err)
			}
		}
	}
}

// Run serves until a signal arrives or a server fails, then releases the
// database and Redis connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server failed", "error", err)
			cancelFunc()
		}
	}()

	if app.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.grpcServer.Run(ctx); err != nil {
				app.logger.Error(ctx, "grpc server failed", "error", err)
				cancelFunc()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.purgeOTPCodes(ctx)
	}()

	wg.Wait()

	if app.redis != nil {
		_ = app.redis.Close()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close failed", "error", err)
	}
	app.logger.Info(context.Background(), "Stopped")
}
