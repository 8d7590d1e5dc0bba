package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/jhoicas/parts-ledger/internal/application/analytics"
	"github.com/jhoicas/parts-ledger/internal/application/inventory"
	"github.com/jhoicas/parts-ledger/internal/application/usecase"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/parts-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/parts-ledger/internal/interfaces/http"
	"github.com/jhoicas/parts-ledger/internal/observability"
	"github.com/jhoicas/parts-ledger/pkg/config"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

// storage agrupa los adaptadores del driver elegido.
type storage struct {
	tx       inventory.TxRunner
	entries  repository.LedgerEntryRepository
	balances repository.BalanceRepository
	parts    repository.PartRepository
	holds    repository.HoldsRepository
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:        cfg.App.Env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Ledger.StorageDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer store.close()

	metrics := observability.NewMetrics()
	opts := []inventory.Option{
		inventory.WithHolds(store.holds),
		inventory.WithObserver(metrics),
	}
	if cfg.Redis.Enabled() {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		opts = append(opts, inventory.WithIdempotency(infraredis.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL, cfg.Ledger.LockTimeout)))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Idempotency-Key habilitado")
	}

	limits := inventory.PageLimits{Default: cfg.Ledger.DefaultPageLimit, Max: cfg.Ledger.MaxPageLimit}
	recordUC := inventory.NewRecordMovementUseCase(store.tx, store.parts, log, opts...)
	queryUC := inventory.NewQueryUseCase(store.entries, store.balances, store.parts, store.holds, limits)
	reconcileUC := inventory.NewReconcileUseCase(store.entries, store.balances, store.parts)
	partUC := usecase.NewPartUseCase(store.parts, limits.Default, limits.Max)
	simulatedUC := analytics.NewSimulatedUseCase(store.parts, cfg.Analytics.Seed)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.Middleware())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Parts Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Ledger.StorageDriver})
	})
	app.Get("/metrics", metrics.Handler())

	httpRouter.Router(app, httpRouter.RouterDeps{
		RecordMovement: recordUC,
		Query:          queryUC,
		Reconcile:      reconcileUC,
		PartUC:         partUC,
		SimulatedUC:    simulatedUC,
		JWTSecret:      cfg.JWT.Secret,
		Logger:         log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Ledger.StorageDriver == config.StorageDriverMemory {
		s := memory.NewStore(cfg.Ledger.LockTimeout)
		if err := s.SeedParts(cfg.Ledger.SeedParts); err != nil {
			return nil, err
		}
		log.Warn().Int("seed_parts", len(cfg.Ledger.SeedParts)).Msg("driver memory: los datos se pierden al reiniciar")
		return &storage{
			tx:       s,
			entries:  s.Entries(),
			balances: s.Balances(),
			parts:    s.Parts(),
			holds:    inventory.NoHolds{},
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.Ledger.RunMigrations {
		applied, err := postgres.RunMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Strs("applied", applied).Msg("migraciones aplicadas")
	}
	return &storage{
		tx:       postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		entries:  postgres.NewLedgerEntryRepository(pool),
		balances: postgres.NewBalanceRepository(pool),
		parts:    postgres.NewPartRepository(pool),
		holds:    postgres.NewHoldsRepository(pool),
		close:    pool.Close,
	}, nil
}
