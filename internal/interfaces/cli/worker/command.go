package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"seatpool/internal/application/allocation/usecases"
	"seatpool/internal/domain/allocation"
	"seatpool/internal/domain/shared/events"
	"seatpool/internal/infrastructure/adapters"
	"seatpool/internal/infrastructure/cache"
	"seatpool/internal/infrastructure/config"
	"seatpool/internal/infrastructure/database"
	"seatpool/internal/infrastructure/email"
	"seatpool/internal/infrastructure/migration"
	"seatpool/internal/infrastructure/pubsub"
	"seatpool/internal/infrastructure/repository"
	"seatpool/internal/infrastructure/scheduler"
	"seatpool/internal/shared/biztime"
	"seatpool/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the seat allocation worker",
		Long:  `Start the reconciliation worker that corrects seat drift, auto-enrolls members, expires pools and sends expiry warnings.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	log.Infow("starting allocation worker", "environment", env)

	if err := biztime.Init(cfg.Resync.Timezone); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}
	defer database.Close()

	if autoMigrate {
		if env == "production" {
			log.Warnw("auto-migration is enabled in production environment")
		}
		migrationManager := migration.NewManager(env)
		if err := migrationManager.Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
			log.Fatalw("auto-migration failed", "error", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	poolRepo := repository.NewSeatPoolRepository(database.Get(), log)
	eventRepo := repository.NewSeatEventRepository(database.Get(), log)

	resolver := adapters.NewCatalogScopeResolver(database.Get(), log)
	enrollment := adapters.NewEnrollmentAdapter(database.Get(), log)
	membership := adapters.NewMembershipAdapter(database.Get(), log)
	dedup := cache.NewWarnDeduplicator(redisClient)
	notifier := email.NewSMTPNotifier(email.SMTPConfig{
		Host:        cfg.Email.SMTPHost,
		Port:        cfg.Email.SMTPPort,
		Username:    cfg.Email.SMTPUser,
		Password:    cfg.Email.SMTPPassword,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
	})
	eventBus := pubsub.NewRedisSeatEventBus(redisClient, log)

	// Use cases publish through the in-process dispatcher; a forwarding
	// handler relays each event to Redis for other instances.
	dispatcher := events.NewDispatcher(100)
	forward := func(ctx context.Context, event events.DomainEvent) {
		if err := eventBus.Publish(ctx, event); err != nil {
			log.Errorw("failed to forward seat event", "event_type", event.GetEventType(), "error", err)
		}
	}
	for _, eventType := range []string{
		allocation.EventSeatConsumed,
		allocation.EventSeatReleased,
		allocation.EventCapacityAdjusted,
		allocation.EventPoolExpired,
	} {
		if err := dispatcher.Subscribe(eventType, forward); err != nil {
			log.Fatalw("failed to subscribe event forwarder", "event_type", eventType, "error", err)
		}
	}
	if err := dispatcher.Start(); err != nil {
		log.Fatalw("failed to start event dispatcher", "error", err)
	}
	defer func() {
		if err := dispatcher.Stop(); err != nil {
			log.Errorw("failed to stop event dispatcher", "error", err)
		}
	}()

	resync := usecases.NewResyncOrganizationsUseCase(
		poolRepo, eventRepo,
		resolver, enrollment, membership,
		dispatcher, cfg.Resync.PortTimeout(), log,
	)
	expire := usecases.NewExpirePoolsUseCase(
		poolRepo, eventRepo, membership, notifier, dispatcher, log,
	)
	warn := usecases.NewWarnExpiringPoolsUseCase(
		poolRepo, membership, notifier, dedup, warningLeads(cfg.Resync.WarningLeadsDays), log,
	)

	manager, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		log.Fatalw("failed to create scheduler", "error", err)
	}
	if err := manager.RegisterResyncJob(resync, cfg.Resync.Interval()); err != nil {
		log.Fatalw("failed to register resync job", "error", err)
	}
	if err := manager.RegisterExpiryJobs(expire, warn, cfg.Resync.ExpiryScanInterval()); err != nil {
		log.Fatalw("failed to register expiry jobs", "error", err)
	}

	manager.Start()
	log.Infow("allocation worker started",
		"resync_interval", cfg.Resync.Interval(),
		"expiry_scan_interval", cfg.Resync.ExpiryScanInterval(),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Infow("received signal, shutting down", "signal", sig)

	if err := manager.Stop(); err != nil {
		log.Errorw("scheduler shutdown failed", "error", err)
		return err
	}

	log.Infow("allocation worker stopped")
	return nil
}

// warningLeads converts the configured day thresholds into domain leads.
func warningLeads(days []int) []allocation.WarningLead {
	leads := make([]allocation.WarningLead, 0, len(days))
	for _, d := range days {
		if d > 0 {
			leads = append(leads, allocation.WarningLead(time.Duration(d)*24*time.Hour))
		}
	}
	return leads
}
