package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/orris-inc/gamepanel/internal/application/node/usecases"
	"github.com/orris-inc/gamepanel/internal/infrastructure/config"
	"github.com/orris-inc/gamepanel/internal/infrastructure/database"
	"github.com/orris-inc/gamepanel/internal/infrastructure/migration"
	"github.com/orris-inc/gamepanel/internal/infrastructure/pubsub"
	"github.com/orris-inc/gamepanel/internal/infrastructure/ratelimit"
	"github.com/orris-inc/gamepanel/internal/infrastructure/repository"
	"github.com/orris-inc/gamepanel/internal/infrastructure/scheduler"
	"github.com/orris-inc/gamepanel/internal/infrastructure/services"
	"github.com/orris-inc/gamepanel/internal/interfaces/cli/bootstrap"
	httpRouter "github.com/orris-inc/gamepanel/internal/interfaces/http"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

const shutdownTimeout = 30 * time.Second

var (
	env                string
	configPath         string
	autoMigrate        bool
	skipMigrationCheck bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the panel server",
		Long:  `Start the gamepanel HTTP server and the agent hub that node agents connect to.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup")
	cmd.Flags().BoolVar(&skipMigrationCheck, "skip-migration-check", false, "Skip migration status check on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" && env == "" {
		env = envVar
	}

	cfg, log, err := bootstrap.Init(env, configPath)
	if err != nil {
		return err
	}

	log.Infow("starting server",
		"mode", cfg.Server.Mode,
		"auto_migrate", autoMigrate,
	)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	db, err := bootstrap.OpenDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := handleMigrations(cfg, db, log); err != nil {
		return fmt.Errorf("migration handling failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	nodeRepo := repository.NewNodeRepository(db, log.Named("node-repository"))
	validateToken := usecases.NewValidateNodeTokenUseCase(
		nodeRepo,
		cfg.Auth.TokenCacheSize,
		cfg.Auth.TokenCacheTTL,
		log.Named("node-token"),
	)
	recordSeen := usecases.NewRecordNodeSeenUseCase(nodeRepo, log.Named("node-seen"))

	hub := services.NewAgentHub(cfg.AgentHub, log.Named("agent-hub"))

	bus, redisClient, err := newHubEventBus(cfg, log)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	status := pubsub.NewStatusPublisher(bus, log.Named("hub-status"))
	hub.SetOnAgentOnline(func(nodeID string) {
		status.NodeOnline(nodeID)
		markSeen(recordSeen, nodeID, log)
	})
	hub.SetOnAgentOffline(func(nodeID string, reason error) {
		status.NodeOffline(nodeID, reason)
		markSeen(recordSeen, nodeID, log)
	})
	relay := pubsub.NewAgentEventRelay(bus, pubsub.DefaultRelayQueueSize, log.Named("agent-events"))
	hub.RegisterMessageHandler(relay)

	sched, err := scheduler.NewSchedulerManager(log.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := sched.RegisterHeartbeatSweepJob(hub, cfg.AgentHub.SweepInterval); err != nil {
		return fmt.Errorf("failed to register heartbeat sweep job: %w", err)
	}
	sched.Start()

	deps := httpRouter.RouterDeps{
		Hub:            hub,
		ValidateToken:  validateToken,
		DB:             sqlDB,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	}
	if redisClient != nil {
		deps.ConnectLimiter = ratelimit.NewRedisRateLimiter(redisClient, "gamepanel", ratelimit.Limits{
			PerMinute: cfg.Auth.ConnectRatePerMinute,
			PerHour:   cfg.Auth.ConnectRatePerHour,
		})
	}
	router := httpRouter.NewRouter(deps)

	srv := &http.Server{
		Addr:              cfg.Server.GetAddr(),
		Handler:           router.GetEngine(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infow("server starting",
			"address", cfg.Server.GetAddr(),
			"mode", cfg.Server.Mode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := bus.SubscribeStatusEvents(gctx, func(event pubsub.HubStatusEvent) {
			log.Infow("remote agent status changed",
				"type", event.Type,
				"node_id", event.NodeID,
				"reason", event.Reason,
				"instance_id", event.InstanceID,
			)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("hub status subscription stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		relay.Run(gctx)
		return nil
	})

	g.Go(func() error {
		err := bus.SubscribeAgentEvents(gctx, func(event pubsub.AgentEvent) {
			if event.Event == nil {
				return
			}
			log.Infow("remote agent event",
				"node_id", event.NodeID,
				"event_type", event.Event.EventType,
				"server_id", event.Event.ServerID,
				"message", event.Event.Message,
				"instance_id", event.InstanceID,
			)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("agent event subscription stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return gracefulShutdown(shutdownCtx, srv, hub, sched, log)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

type (
	httpServer interface {
		Shutdown(ctx context.Context) error
	}
	agentHub interface {
		Shutdown()
	}
	jobScheduler interface {
		Stop() error
	}
)

// gracefulShutdown stops accepting connections before disconnecting agents.
// Upgraded agent sockets are not tracked by the HTTP server, so the hub
// closes them afterwards, including any that registered during the drain.
func gracefulShutdown(ctx context.Context, srv httpServer, hub agentHub, sched jobScheduler, log logger.Interface) error {
	shutdownErr := srv.Shutdown(ctx)
	hub.Shutdown()

	if err := sched.Stop(); err != nil {
		log.Warnw("failed to stop scheduler", "error", err)
	}

	if shutdownErr != nil {
		log.Errorw("server forced to shutdown", "error", shutdownErr)
		return shutdownErr
	}
	return nil
}

func newHubEventBus(cfg *config.Config, log logger.Interface) (pubsub.HubEventBus, *redis.Client, error) {
	if !cfg.Redis.Enabled {
		log.Infow("redis disabled, hub events stay local")
		return pubsub.NoopHubEventBus{}, nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetAddr(), err)
	}

	log.Infow("hub events published through redis", "addr", cfg.Redis.GetAddr())
	return pubsub.NewRedisHubEventBus(client, log.Named("hub-events")), client, nil
}

func markSeen(uc *usecases.RecordNodeSeenUseCase, nodeID string, log logger.Interface) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.Execute(ctx, nodeID, time.Now()); err != nil {
		log.Warnw("failed to record node last seen", "node_id", nodeID, "error", err)
	}
}

func handleMigrations(cfg *config.Config, db *gorm.DB, log logger.Interface) error {
	if skipMigrationCheck {
		log.Infow("skipping migration check")
		return nil
	}

	if autoMigrate {
		if cfg.Server.Mode == gin.ReleaseMode {
			log.Warnw("auto-migration is enabled in release mode")
		}

		log.Infow("running auto-migration")
		manager := migration.NewManager(cfg.Server.Mode, cfg.Database.Driver, log)
		if err := manager.Migrate(db); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
		log.Infow("auto-migration completed successfully", "strategy", manager.GetStrategy().GetName())
		return nil
	}

	strategy := migration.NewGooseStrategy(cfg.Database.Driver, log).(*migration.GooseStrategy)
	version, err := strategy.GetVersion(db)
	if err != nil {
		log.Warnw("failed to check migration status", "error", err)
		return nil
	}
	log.Infow("current migration version", "version", version)
	return nil
}
