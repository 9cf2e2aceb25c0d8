package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/cache"
	"github.com/pranjalb21/kaviosPix/internal/config"
	"github.com/pranjalb21/kaviosPix/internal/database"
	"github.com/pranjalb21/kaviosPix/internal/discovery"
	"github.com/pranjalb21/kaviosPix/internal/events"
	"github.com/pranjalb21/kaviosPix/internal/handlers"
	"github.com/pranjalb21/kaviosPix/internal/metrics"
	"github.com/pranjalb21/kaviosPix/internal/middleware"
	"github.com/pranjalb21/kaviosPix/internal/repository"
	"github.com/pranjalb21/kaviosPix/internal/repository/memory"
	"github.com/pranjalb21/kaviosPix/internal/routes"
	"github.com/pranjalb21/kaviosPix/internal/server"
	"github.com/pranjalb21/kaviosPix/internal/services"
	"github.com/pranjalb21/kaviosPix/internal/storage"
	"github.com/pranjalb21/kaviosPix/internal/utils"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Development(), cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	ready := map[string]server.ReadyCheck{}

	// repositories
	var (
		users  repository.UserRepository
		albums repository.AlbumRepository
		images repository.ImageRepository
		mc     *mongo.Client
	)
	if cfg.Mongo.URI != "" {
		db, client, err := database.ConnectMongo(rootCtx, cfg.Mongo, cfg.App.Name, logger)
		if err != nil {
			logger.Fatal("mongo connect", zap.Error(err))
		}
		mc = client
		cols := repository.Collections{Users: cfg.Mongo.Users, Albums: cfg.Mongo.Albums, Images: cfg.Mongo.Images}
		ictx, cancel := context.WithTimeout(rootCtx, 30*time.Second)
		if err := repository.EnsureIndexes(ictx, db, cols); err != nil {
			logger.Fatal("ensure indexes", zap.Error(err))
		}
		cancel()
		users = repository.NewMongoUserRepo(db, cols.Users)
		albums = repository.NewMongoAlbumRepo(db, cols.Albums)
		images = repository.NewMongoImageRepo(db, cols.Images)
		ready["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	} else {
		logger.Warn("mongodb.uri not set, using in-memory repositories")
		users, albums, images = memory.NewUserRepo(), memory.NewAlbumRepo(), memory.NewImageRepo()
	}

	// cache, revocations and rate limiting
	var (
		store     cache.Store
		rdb       *redis.Client
		authLimit middleware.Limiter
	)
	if cfg.Redis.Addr != "" {
		rdb, err = database.ConnectRedis(rootCtx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}
		store = cache.NewRedisStore(rdb, cfg.App.Name)
		authLimit = middleware.NewRedisRateLimiter(rdb, cfg.App.Name+":ratelimit:auth", cfg.RateLimit.AuthPerMinute, time.Minute, logger)
		ready["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		logger.Warn("redis.addr not set, using in-process cache and rate limiter")
		store = cache.NewMemoryStore()
		authLimit = middleware.NewIPRateLimiter(rootCtx, cfg.RateLimit.AuthPerMinute, 5, logger)
	}

	// media store
	media, err := storage.NewFromConfig(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("media store init", zap.Error(err))
	}
	ready["media"] = media.Ping

	// events
	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.Named("events"))
		logger.Info("publishing image events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	sessions, err := auth.NewSessionManager(cfg.JWT.Secret, cfg.SessionTTL, auth.NewCacheRevocations(store), auth.WithIssuer(cfg.JWT.Issuer))
	if err != nil {
		logger.Fatal("session manager init", zap.Error(err))
	}

	m := metrics.New()
	catalog := repository.NewCatalog(users, albums)
	userSvc := services.NewUserService(users, auth.NewBcryptHasher(cfg.JWT.BcryptCost), sessions, logger)
	albumSvc := services.NewAlbumService(albums, images, users, catalog, logger)
	imageSvc := services.NewImageService(services.ImageDeps{
		Images:  images,
		Albums:  albums,
		Users:   users,
		Catalog: catalog,
		Media:   media,
		Events:  publisher,
		Cache:   store,
		Metrics: m,
		Logger:  logger,
	}, services.ImageOptions{
		Folder:              cfg.Media.Folder,
		MaxUploadBytes:      cfg.MaxUploadBytes,
		CompensationTimeout: cfg.CompensationTimeout,
		DeleteRetries:       cfg.Orchestrator.DeleteRetries,
		RetryInterval:       cfg.RetryInterval,
		PresignTTL:          cfg.PresignTTL,
	})

	cookie := handlers.CookieOptions{Name: cfg.JWT.CookieName, Secure: cfg.JWT.CookieSecure, MaxAge: cfg.SessionTTL}
	app := server.New(server.Options{
		Config: cfg,
		Handlers: routes.Handlers{
			Users:  handlers.NewUserHandler(userSvc, cookie),
			Albums: handlers.NewAlbumHandler(albumSvc),
			Images: handlers.NewImageHandler(imageSvc),
		},
		Auth:      middleware.NewAuthenticator(sessions, userSvc, cfg.JWT.CookieName),
		AuthLimit: authLimit,
		Metrics:   m,
		Ready:     ready,
		Logger:    logger,
	})

	var registrar *discovery.Registrar
	if cfg.Consul.Addr != "" {
		registrar, err = discovery.Register(discovery.Registration{
			ConsulAddr:  cfg.Consul.Addr,
			ServiceName: cfg.Consul.ServiceName,
			Address:     cfg.Consul.ServiceAddress,
			Port:        cfg.App.Port,
		}, logger)
		if err != nil {
			logger.Warn("consul registration failed", zap.Error(err))
		}
	}

	// start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Info("starting kaviospix", zap.String("addr", addr), zap.String("env", cfg.App.Env))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown requested")
	stop()

	if registrar != nil {
		if err := registrar.Deregister(); err != nil {
			logger.Warn("consul deregister failed", zap.Error(err))
		}
	}
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := publisher.Close(); err != nil {
		logger.Warn("event publisher close", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if mc != nil {
		_ = mc.Disconnect(ctx)
	}
	logger.Info("shutdown completed")
}
