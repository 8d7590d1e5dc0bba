// Package memory implementa los puertos de persistencia en proceso (driver "memory").
// Sirve para desarrollo local y como doble transaccional en tests: cada (tenant, parte)
// tiene su propio candado que se toma en GetForUpdate y se libera al terminar la transacción.
// No coordina varias instancias del servicio; para eso está el driver postgres.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/parts-ledger/internal/application/inventory"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var (
	_ inventory.TxRunner               = (*Store)(nil)
	_ repository.LedgerEntryRepository = (*EntryRepo)(nil)
	_ repository.BalanceRepository     = (*BalanceRepo)(nil)
	_ repository.PartRepository        = (*PartRepo)(nil)
)

// partNamespace genera ids estables para las partes sembradas.
var partNamespace = uuid.MustParse("6f1c1c5e-8f0a-4c43-9d4e-3c7b1f2a9e10")

type balanceKey struct {
	tenantID string
	partID   string
}

// Store guarda libro, saldos y catálogo en memoria.
type Store struct {
	mu       sync.RWMutex
	entries  []*entity.LedgerEntry // orden de commit
	balances map[balanceKey]*entity.BalanceRecord
	parts    map[string]*entity.Part

	locksMu     sync.Mutex
	locks       map[balanceKey]chan struct{}
	lockTimeout time.Duration
}

// NewStore construye el store. lockTimeout <= 0 espera indefinidamente (o hasta cancelar ctx).
func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		balances:    make(map[balanceKey]*entity.BalanceRecord),
		parts:       make(map[string]*entity.Part),
		locks:       make(map[balanceKey]chan struct{}),
		lockTimeout: lockTimeout,
	}
}

// Entries repositorio del libro fuera de transacción.
func (s *Store) Entries() *EntryRepo { return &EntryRepo{s: s} }

// Balances repositorio de saldos fuera de transacción (GetForUpdate no bloquea aquí).
func (s *Store) Balances() *BalanceRepo { return &BalanceRepo{s: s} }

// Parts repositorio del catálogo.
func (s *Store) Parts() *PartRepo { return &PartRepo{s: s} }

// SeedParts siembra partes con formato "tenant:sku:nombre". Los ids son deterministas por tenant+sku.
func (s *Store) SeedParts(specs []string) error {
	for _, raw := range specs {
		fields := strings.SplitN(raw, ":", 3)
		if len(fields) != 3 || fields[0] == "" || fields[1] == "" {
			return fmt.Errorf("seed part %q: formato esperado tenant:sku:nombre", raw)
		}
		now := time.Now().UTC()
		p := &entity.Part{
			ID:        uuid.NewSHA1(partNamespace, []byte(fields[0]+"/"+fields[1])).String(),
			TenantID:  fields[0],
			SKU:       fields[1],
			Name:      fields[2],
			UnitCost:  decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.Parts().Create(context.Background(), p); err != nil && !errors.Is(err, domain.ErrDuplicate) {
			return err
		}
	}
	return nil
}

// Run ejecuta fn con repositorios atados a una transacción en memoria.
// Las escrituras se aplican solo si fn termina sin error y el contexto sigue vivo.
func (s *Store) Run(ctx context.Context, fn func(
	entries repository.LedgerEntryRepository,
	balances repository.BalanceRepository,
) error) error {
	tx := &memTx{s: s, held: make(map[balanceKey]chan struct{}), staged: make(map[balanceKey]*entity.BalanceRecord)}
	defer tx.release()

	if err := fn(&txEntries{tx: tx}, &txBalances{tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) lockFor(k balanceKey) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[k]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[k] = l
	}
	return l
}

// ──────────────────────────────────────────────────────────────────────────────
// Transacción
// ──────────────────────────────────────────────────────────────────────────────

type memTx struct {
	s       *Store
	held    map[balanceKey]chan struct{}
	entries []*entity.LedgerEntry
	staged  map[balanceKey]*entity.BalanceRecord
}

func (tx *memTx) acquire(ctx context.Context, k balanceKey) error {
	if _, ok := tx.held[k]; ok {
		return nil
	}
	l := tx.s.lockFor(k)
	var timeout <-chan time.Time
	if tx.s.lockTimeout > 0 {
		t := time.NewTimer(tx.s.lockTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case l <- struct{}{}:
		tx.held[k] = l
		return nil
	case <-timeout:
		return domain.ErrConcurrentModification
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (tx *memTx) release() {
	for k, l := range tx.held {
		<-l
		delete(tx.held, k)
	}
}

func (tx *memTx) commit() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	tx.s.entries = append(tx.s.entries, tx.entries...)
	for k, b := range tx.staged {
		tx.s.balances[k] = b
	}
}

type txEntries struct{ tx *memTx }

func (r *txEntries) Append(_ context.Context, e *entity.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	r.tx.entries = append(r.tx.entries, cloneEntry(e))
	return nil
}

func (r *txEntries) List(ctx context.Context, f repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	return r.tx.s.Entries().List(ctx, f)
}

func (r *txEntries) Count(ctx context.Context, f repository.LedgerFilter) (int, error) {
	return r.tx.s.Entries().Count(ctx, f)
}

func (r *txEntries) ListByPart(ctx context.Context, tenantID, partID string) ([]*entity.LedgerEntry, error) {
	return r.tx.s.Entries().ListByPart(ctx, tenantID, partID)
}

type txBalances struct{ tx *memTx }

func (r *txBalances) Get(ctx context.Context, tenantID, partID string) (*entity.BalanceRecord, error) {
	if b, ok := r.tx.staged[balanceKey{tenantID, partID}]; ok {
		return cloneBalance(b), nil
	}
	return r.tx.s.Balances().Get(ctx, tenantID, partID)
}

func (r *txBalances) GetForUpdate(ctx context.Context, tenantID, partID string) (*entity.BalanceRecord, error) {
	if err := r.tx.acquire(ctx, balanceKey{tenantID, partID}); err != nil {
		return nil, err
	}
	b, err := r.Get(ctx, tenantID, partID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = entity.NewBalanceRecord(tenantID, partID)
	}
	return b, nil
}

func (r *txBalances) Upsert(_ context.Context, b *entity.BalanceRecord) error {
	k := balanceKey{b.TenantID, b.PartID}
	if _, ok := r.tx.held[k]; !ok {
		return fmt.Errorf("upsert balance %s/%s sin GetForUpdate previo", b.TenantID, b.PartID)
	}
	c := cloneBalance(b)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	r.tx.staged[k] = c
	return nil
}

func (r *txBalances) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.BalanceRecord, int, error) {
	return r.tx.s.Balances().ListByTenant(ctx, tenantID, limit, offset)
}

func (r *txBalances) ListAll(ctx context.Context, limit, offset int) ([]*entity.BalanceRecord, error) {
	return r.tx.s.Balances().ListAll(ctx, limit, offset)
}

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios fuera de transacción
// ──────────────────────────────────────────────────────────────────────────────

// EntryRepo lecturas del libro confirmado.
type EntryRepo struct{ s *Store }

// Append fuera de transacción no actualiza saldos; se permite solo para cargar históricos en tests.
func (r *EntryRepo) Append(_ context.Context, e *entity.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.entries = append(r.s.entries, cloneEntry(e))
	return nil
}

func (r *EntryRepo) filtered(f repository.LedgerFilter) []*entity.LedgerEntry {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.LedgerEntry
	for _, e := range r.s.entries {
		if e.TenantID != f.TenantID {
			continue
		}
		if f.PartID != "" && e.PartID != f.PartID {
			continue
		}
		if f.ActionType != "" && e.ActionType != f.ActionType {
			continue
		}
		if f.From != nil && e.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && e.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	return out
}

// List aplica filtros, orden y paginación.
func (r *EntryRepo) List(_ context.Context, f repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	rows := r.filtered(f)
	if f.Descending {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	return paginate(rows, f.Limit, f.Offset), nil
}

// Count total de entradas que cumplen los filtros (sin paginar).
func (r *EntryRepo) Count(_ context.Context, f repository.LedgerFilter) (int, error) {
	return len(r.filtered(f)), nil
}

// ListByPart historial completo en orden de commit.
func (r *EntryRepo) ListByPart(_ context.Context, tenantID, partID string) ([]*entity.LedgerEntry, error) {
	return r.filtered(repository.LedgerFilter{TenantID: tenantID, PartID: partID}), nil
}

// BalanceRepo lecturas de saldos confirmados.
type BalanceRepo struct{ s *Store }

// Get devuelve nil, nil si el par no tiene saldo.
func (r *BalanceRepo) Get(_ context.Context, tenantID, partID string) (*entity.BalanceRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if b, ok := r.s.balances[balanceKey{tenantID, partID}]; ok {
		return cloneBalance(b), nil
	}
	return nil, nil
}

// GetForUpdate fuera de transacción equivale a Get con inicialización en cero.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tenantID, partID string) (*entity.BalanceRecord, error) {
	b, err := r.Get(ctx, tenantID, partID)
	if err != nil || b != nil {
		return b, err
	}
	return entity.NewBalanceRecord(tenantID, partID), nil
}

// Upsert escribe el saldo directamente (tests de reconciliación).
func (r *BalanceRepo) Upsert(_ context.Context, b *entity.BalanceRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.balances[balanceKey{b.TenantID, b.PartID}] = cloneBalance(b)
	return nil
}

// ListByTenant saldos del tenant ordenados por parte.
func (r *BalanceRepo) ListByTenant(_ context.Context, tenantID string, limit, offset int) ([]*entity.BalanceRecord, int, error) {
	all := r.sorted(func(b *entity.BalanceRecord) bool { return b.TenantID == tenantID })
	return paginate(all, limit, offset), len(all), nil
}

// ListAll todos los saldos ordenados por tenant y parte.
func (r *BalanceRepo) ListAll(_ context.Context, limit, offset int) ([]*entity.BalanceRecord, error) {
	return paginate(r.sorted(func(*entity.BalanceRecord) bool { return true }), limit, offset), nil
}

func (r *BalanceRepo) sorted(keep func(*entity.BalanceRecord) bool) []*entity.BalanceRecord {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.BalanceRecord, 0, len(r.s.balances))
	for _, b := range r.s.balances {
		if keep(b) {
			out = append(out, cloneBalance(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TenantID != out[j].TenantID {
			return out[i].TenantID < out[j].TenantID
		}
		return out[i].PartID < out[j].PartID
	})
	return out
}

// PartRepo catálogo de repuestos en memoria.
type PartRepo struct{ s *Store }

// Create inserta la parte; SKU repetido en el tenant devuelve domain.ErrDuplicate.
func (r *PartRepo) Create(_ context.Context, p *entity.Part) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.parts {
		if existing.TenantID == p.TenantID && existing.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	c := *p
	r.s.parts[p.ID] = &c
	return nil
}

// GetByID devuelve nil, nil si no existe.
func (r *PartRepo) GetByID(_ context.Context, id string) (*entity.Part, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p, ok := r.s.parts[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

// GetByTenantAndSKU busca por SKU dentro del tenant.
func (r *PartRepo) GetByTenantAndSKU(_ context.Context, tenantID, sku string) (*entity.Part, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.parts {
		if p.TenantID == tenantID && p.SKU == sku {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

// ListByTenant partes del tenant, más recientes primero.
func (r *PartRepo) ListByTenant(_ context.Context, tenantID string, limit, offset int) ([]*entity.Part, int, error) {
	r.s.mu.RLock()
	var all []*entity.Part
	for _, p := range r.s.parts {
		if p.TenantID == tenantID {
			c := *p
			all = append(all, &c)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })
	return paginate(all, limit, offset), len(all), nil
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func cloneEntry(e *entity.LedgerEntry) *entity.LedgerEntry {
	c := *e
	if e.UnitCost != nil {
		v := *e.UnitCost
		c.UnitCost = &v
	}
	if e.TotalValue != nil {
		v := *e.TotalValue
		c.TotalValue = &v
	}
	return &c
}

func cloneBalance(b *entity.BalanceRecord) *entity.BalanceRecord {
	c := *b
	if b.LastRestockedAt != nil {
		t := *b.LastRestockedAt
		c.LastRestockedAt = &t
	}
	if b.LastIssuedAt != nil {
		t := *b.LastIssuedAt
		c.LastIssuedAt = &t
	}
	if b.LastCost != nil {
		v := *b.LastCost
		c.LastCost = &v
	}
	return &c
}
