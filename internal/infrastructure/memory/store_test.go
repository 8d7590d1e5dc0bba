package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/memory"
)

func TestRun_ErrorDescartaEscrituras(t *testing.T) {
	s := memory.NewStore(time.Second)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Run(ctx, func(entries repository.LedgerEntryRepository, balances repository.BalanceRepository) error {
		b, err := balances.GetForUpdate(ctx, "t1", "p1")
		require.NoError(t, err)
		b.OnHandQuantity = 10
		require.NoError(t, balances.Upsert(ctx, b))
		require.NoError(t, entries.Append(ctx, &entity.LedgerEntry{TenantID: "t1", PartID: "p1", ActionType: entity.ActionAdd, Quantity: 10, BalanceAfter: 10}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	b, err := s.Balances().Get(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Nil(t, b, "rollback: no debe existir saldo")
	n, err := s.Entries().Count(ctx, repository.LedgerFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Zero(t, n, "rollback: no debe existir entrada")
}

func TestRun_CommitVisible(t *testing.T) {
	s := memory.NewStore(time.Second)
	ctx := context.Background()

	err := s.Run(ctx, func(entries repository.LedgerEntryRepository, balances repository.BalanceRepository) error {
		b, err := balances.GetForUpdate(ctx, "t1", "p1")
		if err != nil {
			return err
		}
		b.OnHandQuantity = 4
		if err := entries.Append(ctx, &entity.LedgerEntry{TenantID: "t1", PartID: "p1", ActionType: entity.ActionAdd, Quantity: 4, BalanceAfter: 4}); err != nil {
			return err
		}
		return balances.Upsert(ctx, b)
	})
	require.NoError(t, err)

	b, err := s.Balances().Get(ctx, "t1", "p1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, int64(4), b.OnHandQuantity)
}

func TestRun_CandadoPorClaveExpiraConConflicto(t *testing.T) {
	s := memory.NewStore(30 * time.Millisecond)
	ctx := context.Background()

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx, func(_ repository.LedgerEntryRepository, balances repository.BalanceRepository) error {
			_, err := balances.GetForUpdate(ctx, "t1", "p1")
			close(holding)
			time.Sleep(150 * time.Millisecond)
			return err
		})
	}()
	<-holding

	err := s.Run(ctx, func(_ repository.LedgerEntryRepository, balances repository.BalanceRepository) error {
		_, err := balances.GetForUpdate(ctx, "t1", "p1")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	// Otra clave no espera.
	err = s.Run(ctx, func(_ repository.LedgerEntryRepository, balances repository.BalanceRepository) error {
		_, err := balances.GetForUpdate(ctx, "t1", "p2")
		return err
	})
	assert.NoError(t, err)
	<-done
}

func TestPartRepo_SKUDuplicadoPorTenant(t *testing.T) {
	s := memory.NewStore(0)
	ctx := context.Background()
	require.NoError(t, s.Parts().Create(ctx, &entity.Part{TenantID: "t1", SKU: "A-1", Name: "Filtro"}))
	assert.ErrorIs(t, s.Parts().Create(ctx, &entity.Part{TenantID: "t1", SKU: "A-1", Name: "Otro"}), domain.ErrDuplicate)
	assert.NoError(t, s.Parts().Create(ctx, &entity.Part{TenantID: "t2", SKU: "A-1", Name: "Filtro"}))
}

func TestSeedParts_IdsDeterministas(t *testing.T) {
	a := memory.NewStore(0)
	b := memory.NewStore(0)
	require.NoError(t, a.SeedParts([]string{"brand-1:SKU-1:Pantalla"}))
	require.NoError(t, b.SeedParts([]string{"brand-1:SKU-1:Pantalla"}))

	pa, err := a.Parts().GetByTenantAndSKU(context.Background(), "brand-1", "SKU-1")
	require.NoError(t, err)
	pb, err := b.Parts().GetByTenantAndSKU(context.Background(), "brand-1", "SKU-1")
	require.NoError(t, err)
	require.NotNil(t, pa)
	assert.Equal(t, pa.ID, pb.ID)

	assert.Error(t, a.SeedParts([]string{"sin-formato"}))
}
