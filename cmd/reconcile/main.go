// Command reconcile recorre todos los saldos materializados, pliega el historial de cada par
// (tenant, parte) y reporta diferencias. Sale con código 1 si encuentra inconsistencias.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/application/inventory"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/parts-ledger/pkg/config"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

func main() {
	workers := flag.Int("workers", 8, "reconciliaciones en paralelo")
	pageSize := flag.Int("page-size", 500, "saldos leídos por página")
	tenant := flag.String("tenant", "", "limitar a un tenant")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	if cfg.Ledger.StorageDriver != config.StorageDriverPostgres {
		log.Fatal().Str("storage", cfg.Ledger.StorageDriver).Msg("reconcile requiere STORAGE_DRIVER=postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	balances := postgres.NewBalanceRepository(pool)
	uc := inventory.NewReconcileUseCase(postgres.NewLedgerEntryRepository(pool), balances, postgres.NewPartRepository(pool))

	var (
		mu           sync.Mutex
		checked      int
		inconsistent []*dto.ReconcileReportDTO
		listErr      error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)

	for offset := 0; ; offset += *pageSize {
		page, err := balances.ListAll(gctx, *pageSize, offset)
		if err != nil {
			listErr = err
			break
		}
		for _, b := range page {
			if *tenant != "" && b.TenantID != *tenant {
				continue
			}
			tenantID, partID := b.TenantID, b.PartID
			g.Go(func() error {
				report, err := uc.Reconcile(gctx, tenantID, partID)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				checked++
				if !report.Consistent {
					inconsistent = append(inconsistent, report)
				}
				return nil
			})
		}
		if len(page) < *pageSize {
			break
		}
	}

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Int("checked", checked).Msg("reconciliación interrumpida")
	}
	if listErr != nil {
		log.Fatal().Err(listErr).Int("checked", checked).Msg("listar saldos")
	}

	for _, r := range inconsistent {
		log.Warn().
			Str("tenant_id", r.TenantID).
			Str("part_id", r.PartID).
			Int64("ledger_balance", r.LedgerBalance).
			Int64("recorded_balance", r.RecordedBalance).
			Int("entry_drifts", len(r.EntryDrifts)).
			Msg("saldo inconsistente")
	}
	log.Info().Int("checked", checked).Int("inconsistent", len(inconsistent)).Msg("reconciliación terminada")
	if len(inconsistent) > 0 {
		os.Exit(1)
	}
}
