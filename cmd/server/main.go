package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"salonvox/internal/api"
	"salonvox/internal/config"
	"salonvox/internal/database"
	"salonvox/internal/dialog"
	"salonvox/internal/domain"
	"salonvox/internal/events"
	"salonvox/internal/handoff"
	"salonvox/internal/intent"
	"salonvox/internal/logging"
	"salonvox/internal/metrics"
	"salonvox/internal/models"
	"salonvox/internal/notify"
	"salonvox/internal/repository"
	"salonvox/internal/scheduling"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return err
	}
	defer db.Close()

	redisClient, sessionRepo, pendingRepo := initStores(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	scheduler, err := initScheduler(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации планировщика")
		return err
	}

	smsNotifier := notify.NewSMSNotifier(cfg.Notify.SMS, &logger)

	classifier, closeClassifier, err := initClassifier(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer closeClassifier()

	staffNotifier, err := notify.NewTelegramStaffNotifier(cfg.Notify.Telegram, &logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Staff notifier disabled")
	}

	eventBus := events.NewEventBus()
	subscribeBookingEvents(ctx, eventBus, staffNotifier, &logger)

	engine := dialog.NewEngine(sessionRepo, pendingRepo, scheduler, smsNotifier, classifier, eventBus, cfg, &logger)
	handoffCtl := handoff.NewController(pendingRepo, scheduler, smsNotifier, db, eventBus, cfg.Salon.Name, &logger)

	apiServer := api.NewHTTPServer(cfg, engine, handoffCtl, db, &logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
			stop()
		}
	}()

	logger.Info().Msg("Сервер запущен...")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown error")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	// services.yaml переопределяет список услуг из config.yaml
	servicesPath := os.Getenv("SERVICES_PATH")
	if servicesPath == "" {
		servicesPath = "configs/services.yaml"
	}
	if servicesData, err := os.ReadFile(servicesPath); err == nil {
		var servicesConfig struct {
			Services []models.Service `yaml:"services"`
		}
		if err := yaml.Unmarshal(servicesData, &servicesConfig); err != nil {
			logger.Error().Err(err).Msgf("Ошибка парсинга %s", servicesPath)
			return nil, zerolog.Logger{}, closer, err
		}
		if err := config.ValidateServices(servicesConfig.Services); err != nil {
			logger.Error().Err(err).Msg("Services validation failed")
			return nil, zerolog.Logger{}, closer, err
		}
		cfg.Services = servicesConfig.Services
	}

	if len(cfg.Services) == 0 {
		logger.Error().Msg("Не заданы услуги салона")
		return nil, zerolog.Logger{}, closer, os.ErrInvalid
	}

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

// initStores picks the session and pending stores. Sessions fail over from
// redis to memory; the pending store is chosen once because single-use tokens
// must live in exactly one place.
func initStores(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.SessionRepository, domain.PendingRepository) {
	if cfg.Redis.Address == "" {
		logger.Warn().Msg("Redis not configured, using in-memory stores")
		return nil, repository.NewMemorySessionRepository(models.SessionTTL), repository.NewMemoryPendingRepository()
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}

	primary := repository.NewRedisSessionRepository(redisClient, models.SessionTTL)
	fallback := repository.NewMemorySessionRepository(models.SessionTTL)
	sessionRepo := repository.NewFailoverSessionRepository(primary, fallback, logger)

	return redisClient, sessionRepo, repository.NewRedisPendingRepository(redisClient)
}

func initScheduler(ctx context.Context, cfg *config.Config) (domain.Scheduler, error) {
	switch cfg.Scheduling.Provider {
	case "calendly":
		return scheduling.NewCalendlyClient(cfg.Scheduling.Calendly), nil
	case "google":
		return scheduling.NewGoogleCalendarClient(ctx, cfg.Scheduling.Google)
	default:
		return nil, fmt.Errorf("unknown scheduling provider: %s", cfg.Scheduling.Provider)
	}
}

func initClassifier(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.IntentClassifier, func(), error) {
	if cfg.Intent.APIKey == "" {
		logger.Warn().Msg("Intent classification disabled, keyword matching only")
		return intent.NoopClassifier{}, func() {}, nil
	}

	classifier, err := intent.NewGeminiClassifier(ctx, cfg.Intent, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации классификатора")
		return nil, nil, err
	}
	return classifier, classifier.Close, nil
}

func subscribeBookingEvents(ctx context.Context, bus *events.EventBus, staff *notify.TelegramStaffNotifier, logger *zerolog.Logger) {
	if bus == nil || staff == nil {
		return
	}

	decode := func(ev *events.Event) (events.BookingEventPayload, error) {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return payload, err
		}
		return payload, nil
	}

	bus.Subscribe(events.EventBookingFinalized, func(ev *events.Event) error {
		payload, err := decode(ev)
		if err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		text := fmt.Sprintf("Nouveau rendez-vous : %s (%s) — %s le %s",
			payload.Name, payload.Phone, payload.Service, payload.StartTime.Format("02/01/2006 15:04"))
		if err := staff.NotifyStaff(ctx, text); err != nil {
			logger.Error().Err(err).Msg("event bus: notify staff")
		}
		return nil
	})

	bus.Subscribe(events.EventBookingFailed, func(ev *events.Event) error {
		payload, err := decode(ev)
		if err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		text := fmt.Sprintf("Échec de réservation pour %s (%s) le %s : %s",
			payload.Name, payload.Phone, payload.StartTime.Format("02/01/2006 15:04"), payload.Error)
		if err := staff.NotifyStaff(ctx, text); err != nil {
			logger.Error().Err(err).Msg("event bus: notify staff")
		}
		return nil
	})
}
