package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/telemedbooking/internal/adapters/cache"
	"github.com/zatekoja/telemedbooking/internal/adapters/database"
	"github.com/zatekoja/telemedbooking/internal/adapters/events"
	"github.com/zatekoja/telemedbooking/internal/adapters/memory"
	"github.com/zatekoja/telemedbooking/internal/api/handlers"
	"github.com/zatekoja/telemedbooking/internal/api/middleware"
	"github.com/zatekoja/telemedbooking/internal/api/routes"
	"github.com/zatekoja/telemedbooking/internal/application/services"
	"github.com/zatekoja/telemedbooking/internal/domain/providers"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/auth"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/clients/redis"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/notifications"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
	"github.com/zatekoja/telemedbooking/pkg/config"
	"github.com/zatekoja/telemedbooking/pkg/secrets"
)

// storage bundles the repositories of the selected driver
type storage struct {
	transactor    repositories.Transactor
	users         repositories.UserRepository
	doctors       repositories.DoctorRepository
	appointments  repositories.AppointmentRepository
	wallets       repositories.WalletRepository
	schedules     repositories.DoctorScheduleRepository
	overrides     repositories.ScheduleOverrideRepository
	notifications repositories.NotificationLogRepository
	health        handlers.HealthChecker
	close         func() error
}

func newPostgresStorage(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*storage, error) {
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := pgClient.Migrate(ctx); err != nil {
			pgClient.Close()
			return nil, err
		}
	}
	return &storage{
		transactor:    database.NewTransactor(pgClient, metrics),
		users:         database.NewUserAdapter(pgClient),
		doctors:       database.NewDoctorAdapter(pgClient),
		appointments:  database.NewAppointmentAdapter(pgClient),
		wallets:       database.NewWalletAdapter(pgClient),
		schedules:     database.NewDoctorScheduleAdapter(pgClient),
		overrides:     database.NewScheduleOverrideAdapter(pgClient),
		notifications: database.NewNotificationLogAdapter(pgClient),
		health:        pgClient,
		close:         pgClient.Close,
	}, nil
}

func newMemoryStorage() *storage {
	store := memory.NewStore()
	return &storage{
		transactor:    store,
		users:         store.Users(),
		doctors:       store.Doctors(),
		appointments:  store.Appointments(),
		wallets:       store.Wallets(),
		schedules:     store.Schedules(),
		overrides:     store.Overrides(),
		notifications: store.Notifications(),
		close:         func() error { return nil },
	}
}

func newNotificationSender(cfg *config.NotificationConfig) providers.NotificationSender {
	if cfg.WhatsAppAccessToken == "" || cfg.WhatsAppPhoneNumberID == "" {
		log.Info().Msg("WhatsApp not configured; notifications are written to the log")
		return notifications.LogSender{}
	}
	sender, err := notifications.NewWhatsAppCloudSender(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize WhatsApp sender; falling back to log sender")
		return notifications.LogSender{}
	}
	return sender
}

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	vaultResult, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load secrets from Vault: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Environment, cfg.Log.Level)
	if vaultResult.Enabled {
		log.Info().Str("path", vaultResult.Path).Strs("loaded", vaultResult.Loaded).Msg("Secrets loaded from Vault")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	var store *storage
	switch cfg.Database.Driver {
	case "memory":
		store = newMemoryStorage()
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
	default:
		store, err = newPostgresStorage(ctx, cfg, metrics)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize storage")
		}
		log.Info().Msg("PostgreSQL storage initialized")
	}
	defer store.close()

	healthChecks := map[string]handlers.HealthChecker{}
	if store.health != nil {
		healthChecks["database"] = store.health
	}

	// Redis backs the schedule cache and the event bus when available
	var cacheProvider providers.CacheProvider = cache.NewMemoryAdapter()
	var eventBus providers.EventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Redis client; using in-process cache and event bus")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient, "telemedbooking:")
			eventBus = events.NewRedisEventBus(redisClient)
			healthChecks["redis"] = redisClient
			log.Info().Msg("Redis client initialized")
		}
	}
	if eventBus == nil {
		eventBus = events.NewLocalEventBus()
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	schedules := database.NewCachedDoctorScheduleAdapter(store.schedules, cacheProvider, cfg.Booking.ScheduleCacheTTL, metrics)
	loc := cfg.Booking.Location()

	bookingService := services.NewBookingService(store.transactor, store.appointments, store.doctors, eventBus, metrics, &cfg.Booking)
	availabilityService := services.NewAvailabilityService(schedules, store.overrides, store.appointments, loc)
	scheduleService := services.NewScheduleService(store.transactor, schedules, store.overrides, store.doctors, eventBus, loc)
	walletService := services.NewWalletService(store.transactor, store.wallets, metrics)

	var reminders *services.ReminderScheduler
	if cfg.Notifications.Enabled {
		notificationService := services.NewNotificationService(
			store.users,
			store.doctors,
			store.appointments,
			store.notifications,
			newNotificationSender(&cfg.Notifications),
			loc,
		)
		go func() {
			if err := notificationService.Run(ctx, eventBus); err != nil {
				log.Error().Err(err).Msg("Notification consumer stopped")
			}
		}()

		reminders, err = services.NewReminderScheduler(notificationService, cfg.Notifications.ReminderCron, cfg.Notifications.ReminderWindow)
		if err != nil {
			log.Fatal().Err(err).Str("spec", cfg.Notifications.ReminderCron).Msg("Invalid reminder schedule")
		}
		reminders.Start()
		log.Info().Str("spec", cfg.Notifications.ReminderCron).Msg("Reminder scheduler started")
	}

	verifier, err := auth.NewTokenVerifier(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token verifier")
	}

	router := routes.NewRouter(
		handlers.NewAppointmentHandler(bookingService),
		handlers.NewAvailabilityHandler(availabilityService),
		handlers.NewScheduleHandler(scheduleService),
		handlers.NewWalletHandler(walletService),
		handlers.NewHealthHandler(healthChecks),
		handlers.NewSSEHandler(eventBus),
		verifier,
		middleware.NewRateLimiter(cfg.Booking.RateLimitRPS, cfg.Booking.RateLimitBurst),
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	if reminders != nil {
		<-reminders.Stop().Done()
	}
	cancel()

	log.Info().Msg("Server stopped")
}
