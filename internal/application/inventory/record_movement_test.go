package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/application/inventory"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/ledger"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testTenant = "brand-1"
	testActor  = "user-1"
	testPart   = "part-1"
)

type fixture struct {
	store *memory.Store
	uc    *inventory.RecordMovementUseCase
}

func newFixture(t *testing.T, opts ...inventory.Option) *fixture {
	t.Helper()
	s := memory.NewStore(5 * time.Second)
	ctx := context.Background()
	require.NoError(t, s.Parts().Create(ctx, &entity.Part{ID: testPart, TenantID: testTenant, SKU: "SKU-1", Name: "Pantalla"}))
	require.NoError(t, s.Parts().Create(ctx, &entity.Part{ID: "part-2", TenantID: testTenant, SKU: "SKU-2", Name: "Batería"}))
	require.NoError(t, s.Parts().Create(ctx, &entity.Part{ID: "foreign", TenantID: "brand-2", SKU: "SKU-1", Name: "Ajena"}))
	return &fixture{store: s, uc: inventory.NewRecordMovementUseCase(s, s.Parts(), nil, opts...)}
}

func movement(action string, qty int64) inventory.MovementInput {
	return inventory.MovementInput{
		TenantID:    testTenant,
		ActorID:     testActor,
		PartID:      testPart,
		ActionType:  action,
		Quantity:    decimal.NewFromInt(qty),
		Source:      "warehouse-main",
		Destination: "service-center-7",
	}
}

func (f *fixture) onHand(t *testing.T, partID string) int64 {
	t.Helper()
	b, err := f.store.Balances().Get(context.Background(), testTenant, partID)
	require.NoError(t, err)
	if b == nil {
		return 0
	}
	return b.OnHandQuantity
}

func (f *fixture) entryCount(t *testing.T) int {
	t.Helper()
	n, err := f.store.Entries().Count(context.Background(), repository.LedgerFilter{TenantID: testTenant})
	require.NoError(t, err)
	return n
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordMovement_EscenarioAltaSalidaConsumoRechazado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, balance, err := f.uc.RecordMovement(ctx, movement("ADD", 50))
	require.NoError(t, err)
	assert.Equal(t, int64(50), entry.BalanceAfter)
	assert.Equal(t, int64(50), balance.OnHandQuantity)

	entry, balance, err = f.uc.RecordMovement(ctx, movement("TRANSFER_OUT", 20))
	require.NoError(t, err)
	assert.Equal(t, int64(30), entry.BalanceAfter)
	assert.Equal(t, int64(30), balance.OnHandQuantity)

	_, _, err = f.uc.RecordMovement(ctx, movement("CONSUMED", 35))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(30), ise.Available)

	assert.Equal(t, int64(30), f.onHand(t, testPart), "el saldo no cambia tras el rechazo")
	assert.Equal(t, 2, f.entryCount(t))
}

func TestRecordMovement_CantidadCeroRechazadaSinEscritura(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.uc.RecordMovement(context.Background(), movement("ADD", 0))
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Zero(t, f.entryCount(t))
}

func TestRecordMovement_CantidadNegativaOFraccionaria(t *testing.T) {
	f := newFixture(t)
	in := movement("ADD", -5)
	_, _, err := f.uc.RecordMovement(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "nunca se convierte a positivo")

	in.Quantity = decimal.RequireFromString("2.5")
	_, _, err = f.uc.RecordMovement(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Zero(t, f.entryCount(t))
}

func TestRecordMovement_TipoDesconocido(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.uc.RecordMovement(context.Background(), movement("SCRAP", 1))
	assert.ErrorIs(t, err, domain.ErrInvalidActionType)
}

func TestRecordMovement_UbicacionFaltante(t *testing.T) {
	f := newFixture(t)
	in := movement("ADD", 1)
	in.Source = ""
	_, _, err := f.uc.RecordMovement(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrMissingLocation)

	in = movement("ADD", 1)
	in.Destination = ""
	_, _, err = f.uc.RecordMovement(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrMissingLocation)
}

func TestRecordMovement_OrdenDeValidacion(t *testing.T) {
	f := newFixture(t)
	in := movement("SCRAP", 0)
	in.Source = ""
	_, _, err := f.uc.RecordMovement(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "la cantidad se valida primero")

	in.Quantity = decimal.NewFromInt(1)
	_, _, err = f.uc.RecordMovement(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidActionType)
}

func TestRecordMovement_Autorizacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := movement("ADD", 1)
	in.ActorID = ""
	_, _, err := f.uc.RecordMovement(ctx, in)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized, "sin claim de actor")

	in = movement("ADD", 1)
	in.PartID = "foreign"
	_, _, err = f.uc.RecordMovement(ctx, in)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized, "parte de otro tenant")

	in = movement("ADD", 1)
	in.PartID = "no-existe"
	_, _, err = f.uc.RecordMovement(ctx, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in = movement("ADD", 1)
	in.PartID = ""
	_, _, err = f.uc.RecordMovement(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecordMovement_RechazoIdempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.uc.RecordMovement(ctx, movement("ADD", 3))
	require.NoError(t, err)

	invalid := []inventory.MovementInput{movement("ADD", 0), movement("SCRAP", 1), movement("CONSUMED", 4)}
	for _, in := range invalid {
		_, _, first := f.uc.RecordMovement(ctx, in)
		_, _, second := f.uc.RecordMovement(ctx, in)
		require.Error(t, first)
		assert.Equal(t, first.Error(), second.Error())
	}
	assert.Equal(t, int64(3), f.onHand(t, testPart))
	assert.Equal(t, 1, f.entryCount(t))
}

func TestRecordMovement_CostoYValorTotal(t *testing.T) {
	f := newFixture(t)
	in := movement("ADD", 4)
	cost := decimal.RequireFromString("2.25")
	in.UnitCost = &cost
	in.ReferenceID = "SHIP-991"

	entry, balance, err := f.uc.RecordMovement(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, entry.TotalValue)
	assert.True(t, decimal.RequireFromString("9").Equal(*entry.TotalValue))
	assert.Equal(t, "SHIP-991", entry.ReferenceID)
	assert.Equal(t, testActor, entry.CreatedBy)
	require.NotNil(t, balance.LastCost)
	assert.True(t, cost.Equal(*balance.LastCost))
	require.NotNil(t, balance.LastRestockedAt)

	for _, raw := range []string{"-1", "1.23456", "10000000000"} {
		bad := decimal.RequireFromString(raw)
		in.UnitCost = &bad
		_, _, err = f.uc.RecordMovement(context.Background(), in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, raw)
	}
	assert.Equal(t, 1, f.entryCount(t), "un costo fuera de rango no escribe")
	assert.Equal(t, int64(4), f.onHand(t, testPart))
}

func TestRecordMovement_DisponibleDescuentaRetenciones(t *testing.T) {
	f := newFixture(t, inventory.WithHolds(fixedHolds{Reserved: 5, Quarantine: 1}))
	_, balance, err := f.uc.RecordMovement(context.Background(), movement("ADD", 20))
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.OnHandQuantity)
	assert.Equal(t, int64(14), balance.AvailableQuantity)
}

type fixedHolds entity.StockHolds

func (h fixedHolds) Holds(context.Context, string, string) (entity.StockHolds, error) {
	return entity.StockHolds(h), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia e invariantes
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordMovement_SalidasConcurrentesSoloUnaGana(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.uc.RecordMovement(ctx, movement("ADD", 10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	start := make(chan struct{})
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, _, errs[i] = f.uc.RecordMovement(ctx, movement("CONSUMED", 7))
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrConcurrentModification):
			rejected++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, int64(3), f.onHand(t, testPart))
}

func TestRecordMovement_FoldCoincideConSaldoBajoCarga(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actions := []string{"ADD", "TRANSFER_IN", "REVERSE_IN", "TRANSFER_OUT", "REVERSE_OUT", "CONSUMED"}

	var wg sync.WaitGroup
	for _, partID := range []string{testPart, "part-2"} {
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(partID string, w int) {
				defer wg.Done()
				for i := 0; i < 25; i++ {
					in := movement(actions[(i+w)%len(actions)], int64(1+(i*7+w)%9))
					in.PartID = partID
					_, _, _ = f.uc.RecordMovement(ctx, in) // los rechazos por stock son esperables
				}
			}(partID, w)
		}
	}
	wg.Wait()

	for _, partID := range []string{testPart, "part-2"} {
		history, err := f.store.Entries().ListByPart(ctx, testTenant, partID)
		require.NoError(t, err)
		res, err := ledger.Fold(history)
		require.NoError(t, err)
		assert.Empty(t, res.Drifts, "cada balance_after coincide con el acumulado")
		assert.False(t, res.Negative, "el saldo nunca es negativo")
		assert.Equal(t, f.onHand(t, partID), res.Balance)
	}
}

func TestRecordMovement_ContextoCanceladoNoPersiste(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := f.uc.RecordMovement(ctx, movement("ADD", 5))
	require.Error(t, err)
	assert.Zero(t, f.entryCount(t))
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotency-Key y métricas
// ──────────────────────────────────────────────────────────────────────────────

type memIdem struct {
	mu      sync.Mutex
	pending map[string]string
	done    map[string]idemRecord
}

type idemRecord struct {
	fingerprint string
	resp        *dto.MovementResponse
}

func newMemIdem() *memIdem {
	return &memIdem{pending: map[string]string{}, done: map[string]idemRecord{}}
}

func (m *memIdem) Reserve(_ context.Context, tenantID, key, fingerprint string) (*dto.MovementResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tenantID + "/" + key
	if r, ok := m.done[k]; ok {
		if r.fingerprint != fingerprint {
			return nil, domain.ErrIdempotencyKeyReused
		}
		return r.resp, nil
	}
	if fp, ok := m.pending[k]; ok {
		if fp != fingerprint {
			return nil, domain.ErrIdempotencyKeyReused
		}
		return nil, domain.ErrConcurrentModification
	}
	m.pending[k] = fingerprint
	return nil, nil
}

func (m *memIdem) Complete(_ context.Context, tenantID, key, fingerprint string, resp *dto.MovementResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tenantID + "/" + key
	delete(m.pending, k)
	m.done[k] = idemRecord{fingerprint: fingerprint, resp: resp}
	return nil
}

func (m *memIdem) Release(_ context.Context, tenantID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, tenantID+"/"+key)
	return nil
}

func TestRecordMovementIdempotent_ReenvioNoDuplica(t *testing.T) {
	f := newFixture(t, inventory.WithIdempotency(newMemIdem()))
	ctx := context.Background()

	first, replayed, err := f.uc.RecordMovementIdempotent(ctx, "key-1", movement("ADD", 8))
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := f.uc.RecordMovementIdempotent(ctx, "key-1", movement("ADD", 8))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Equal(t, int64(8), f.onHand(t, testPart))
	assert.Equal(t, 1, f.entryCount(t))
}

func TestRecordMovementIdempotent_FalloLiberaClave(t *testing.T) {
	f := newFixture(t, inventory.WithIdempotency(newMemIdem()))
	ctx := context.Background()

	_, _, err := f.uc.RecordMovementIdempotent(ctx, "key-2", movement("CONSUMED", 1))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, _, err = f.uc.RecordMovement(ctx, movement("ADD", 1))
	require.NoError(t, err)
	_, replayed, err := f.uc.RecordMovementIdempotent(ctx, "key-2", movement("CONSUMED", 1))
	require.NoError(t, err, "la clave quedó libre tras el fallo")
	assert.False(t, replayed)
}

func TestRecordMovementIdempotent_MismaClaveOtroCuerpo(t *testing.T) {
	f := newFixture(t, inventory.WithIdempotency(newMemIdem()))
	ctx := context.Background()

	_, _, err := f.uc.RecordMovementIdempotent(ctx, "key-3", movement("ADD", 8))
	require.NoError(t, err)

	_, _, err = f.uc.RecordMovementIdempotent(ctx, "key-3", movement("ADD", 9))
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)
	assert.Equal(t, int64(8), f.onHand(t, testPart))
	assert.Equal(t, 1, f.entryCount(t))
}

func TestMovementInput_Fingerprint(t *testing.T) {
	a := movement("ADD", 5)
	b := movement("ADD", 5)
	b.Quantity = decimal.RequireFromString("5.0")
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "5 y 5.0 son el mismo movimiento")

	b.Source = "otra-bodega"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	c := movement("ADD", 5)
	cost := decimal.RequireFromString("1.5")
	c.UnitCost = &cost
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveMovement(actionType, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[fmt.Sprintf("%s/%s", actionType, outcome)]++
}

func TestRecordMovement_ObserverRecibeResultado(t *testing.T) {
	obs := &countingObserver{counts: map[string]int{}}
	f := newFixture(t, inventory.WithObserver(obs))
	ctx := context.Background()

	_, _, _ = f.uc.RecordMovement(ctx, movement("ADD", 2))
	_, _, _ = f.uc.RecordMovement(ctx, movement("CONSUMED", 5))
	_, _, _ = f.uc.RecordMovement(ctx, movement("SCRAP", 1))

	assert.Equal(t, 1, obs.counts["ADD/"+inventory.OutcomeAccepted])
	assert.Equal(t, 1, obs.counts["CONSUMED/"+inventory.OutcomeRejected])
	assert.Equal(t, 1, obs.counts["unknown/"+inventory.OutcomeRejected])
}
