package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"MamaCare/authorization"
	"MamaCare/cache"
	"MamaCare/config"
	"MamaCare/controllers"
	"MamaCare/db"
	"MamaCare/jobs"
	"MamaCare/logger"
	"MamaCare/metrics"
	"MamaCare/migrations"
	"MamaCare/notification"
	"MamaCare/predictor"
	"MamaCare/routes"
	"MamaCare/server"
	"MamaCare/services"
	"MamaCare/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	startServer = server.Start
	isTest      = false
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mamacare",
		Short:        "MamaCare care coordination API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run migrations, start the jobs and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the data migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			return migrations.Run(cmd.Context(), a.store, a.log)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Recompute nurse load counters once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			corrections := jobs.RunReconcile(cmd.Context(), a.svc.Reconcile, a.log)
			for _, c := range corrections {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d -> %d\n", c.NurseID, c.Recorded, c.Actual)
			}
			return nil
		},
	})
	return root
}

type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   db.Store
	cache   *cache.Cache
	mqtt    *notification.MQTTPublisher
	metrics *metrics.Metrics
	hub     *session.Hub
	issuer  *authorization.Issuer
	svc     *services.Services

	scheduler   *cron.Cron
	stopWarmer  func()
	cancelWarms context.CancelFunc
}

/*
* Load and validate the configuration
* Open the store, the optional cache and the notification transports
* Build the services on top of them
 */
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if isTest {
		cfg.Env = "test"
		cfg.StoreDriver = db.DriverMemory
		cfg.RedisAddr = ""
		cfg.MQTTBroker = ""
		cfg.PushEnabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "mamacare-api")
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, metrics: metrics.New("mamacare"), hub: session.NewHub(0)}

	a.store, err = db.Open(ctx, db.Options{
		Driver:          cfg.StoreDriver,
		MongoURI:        cfg.MongoURI,
		MongoDatabase:   cfg.MongoDatabase,
		ProjectID:       cfg.FirebaseProject,
		CredentialsFile: cfg.FirebaseCredFile,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Info("store ready", zap.String("driver", cfg.StoreDriver))

	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, profile cache disabled", zap.Error(err))
		} else {
			a.cache = cache.New(client, cfg.CacheTTL())
		}
	}

	var sender notification.Sender = notification.NewLogSender(log.Named("push"))
	if cfg.PushEnabled {
		fcm, err := notification.NewFCMSender(ctx, cfg.FirebaseProject, cfg.FirebaseCredFile)
		if err != nil {
			return nil, fmt.Errorf("init push: %w", err)
		}
		sender = fcm
	}

	var events notification.Publisher = notification.NopPublisher{}
	if cfg.MQTTBroker != "" {
		a.mqtt, err = notification.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
		if err != nil {
			log.Warn("mqtt unavailable, realtime events disabled", zap.Error(err))
		} else {
			events = a.mqtt
		}
	}

	secret := cfg.JWTSecret
	if secret == "" && cfg.IsDev() {
		secret = "mamacare-development-secret-key!"
		log.Warn("JWT_SECRET not set, using the development secret")
	}
	a.issuer = authorization.NewIssuer(secret, cfg.JWTIssuer, cfg.TokenTTL())

	a.svc = services.New(services.Deps{
		Store:         a.store,
		Cache:         a.cache,
		Events:        events,
		Sender:        sender,
		Predictor:     predictor.NewClient(cfg.PredictorURL, log.Named("predictor")),
		Hub:           a.hub,
		Issuer:        a.issuer,
		Metrics:       a.metrics,
		Logger:        log,
		NurseCapacity: cfg.NurseCapacity,
	})
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.stopWarmer != nil {
		a.stopWarmer()
	}
	if a.cancelWarms != nil {
		a.cancelWarms()
	}
	jobs.Stop(ctx, a.scheduler)
	a.hub.Close()
	if a.mqtt != nil {
		a.mqtt.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if err := a.store.Close(ctx); err != nil {
		a.log.Warn("store close failed", zap.Error(err))
	}
	_ = a.log.Sync()
}

func run() error {
	a, err := bootstrap(context.Background())
	if err != nil {
		return err
	}
	defaultopts := server.GetDefaultOptions()

	options := server.Options{
		Port:            a.cfg.Port,
		Logger:          a.log,
		Metrics:         a.metrics,
		ShutdownTimeout: defaultopts.ShutdownTimeout,

		MigrationEnabled: defaultopts.MigrationEnabled,
		MigrationHandler: func() {
			if err := migrations.Run(context.Background(), a.store, a.log.Named("migrations")); err != nil {
				a.log.Fatal("migrations failed", zap.Error(err))
			}
		},

		JobsEnabled: !isTest,
		JobsHandler: func() {
			if isTest {
				return
			}
			ctx, cancel := context.WithCancel(context.Background())
			a.cancelWarms = cancel
			a.stopWarmer = a.svc.StartCacheWarmer(ctx, a.hub, a.log.Named("warmer"))
			scheduler, err := jobs.StartDailyScheduler(a.cfg.ReconcileCron, a.svc.Reconcile, a.log.Named("jobs"))
			if err != nil {
				a.log.Error("reconcile job not scheduled", zap.Error(err))
				return
			}
			a.scheduler = scheduler
		},

		WebServerEnabled: defaultopts.WebServerEnabled,
		WebServerPreHandler: func(r *gin.Engine) {
			r.Use(cors.New(cors.Config{
				AllowOrigins:     a.cfg.AllowedOrigins(),
				AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
				AllowCredentials: true,
				MaxAge:           12 * time.Hour,
			}))
			routes.Routes(r, routes.Deps{
				Controller: controllers.New(a.svc, a.log.Named("http")),
				Issuer:     a.issuer,
				Revoker:    a.svc.Auth,
				Metrics:    a.metrics,
			})
		},

		OnShutdown: a.close,
	}
	if err := startServer(options); err != nil {
		a.log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
