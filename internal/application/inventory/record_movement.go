package inventory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/ledger"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

// Resultados reportados al MovementObserver.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

var maxQuantity = decimal.NewFromInt(1 << 53)

// RecordMovementUseCase registra movimientos del libro de forma transaccional:
// bloqueo de fila del saldo (SELECT FOR UPDATE), proyección, entrada append-only y Upsert del saldo.
type RecordMovementUseCase struct {
	txRunner TxRunner
	partRepo repository.PartRepository
	holds    repository.HoldsRepository
	idem     IdempotencyStore
	observer MovementObserver
	validate *validator.Validate
	log      *logger.Logger
	now      func() time.Time
}

// Option configura dependencias opcionales del caso de uso.
type Option func(*RecordMovementUseCase)

// WithHolds reemplaza el proveedor de retenciones (por defecto NoHolds).
func WithHolds(h repository.HoldsRepository) Option {
	return func(uc *RecordMovementUseCase) { uc.holds = h }
}

// WithIdempotency habilita el replay por Idempotency-Key.
func WithIdempotency(s IdempotencyStore) Option {
	return func(uc *RecordMovementUseCase) { uc.idem = s }
}

// WithObserver registra métricas por movimiento.
func WithObserver(o MovementObserver) Option {
	return func(uc *RecordMovementUseCase) { uc.observer = o }
}

// WithClock fija el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(uc *RecordMovementUseCase) { uc.now = now }
}

// NewRecordMovementUseCase construye el caso de uso.
func NewRecordMovementUseCase(txRunner TxRunner, partRepo repository.PartRepository, log *logger.Logger, opts ...Option) *RecordMovementUseCase {
	uc := &RecordMovementUseCase{
		txRunner: txRunner,
		partRepo: partRepo,
		holds:    NoHolds{},
		validate: validator.New(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	return uc
}

// MovementInput entrada para registrar un movimiento.
// TenantID y ActorID provienen del token; Quantity debe ser un entero positivo.
type MovementInput struct {
	TenantID    string
	ActorID     string
	PartID      string `validate:"required,max=64"`
	ActionType  string
	Quantity    decimal.Decimal
	Source      string `validate:"max=128"`
	Destination string `validate:"max=128"`
	UnitCost    *decimal.Decimal
	ReferenceID string `validate:"omitempty,max=128"`
}

// Fingerprint resume los campos del movimiento que fija el cliente (sha256 hex).
// Dos cuerpos equivalentes, por ejemplo quantity 5 y 5.0, producen la misma huella.
func (in MovementInput) Fingerprint() string {
	cost := ""
	if in.UnitCost != nil {
		cost = in.UnitCost.String()
	}
	h := sha256.New()
	for _, f := range []string{in.PartID, in.ActionType, in.Quantity.String(), in.Source, in.Destination, cost, in.ReferenceID} {
		h.Write([]byte(f))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FromRequest adapta el body HTTP al input del caso de uso.
func FromRequest(tenantID, actorID string, in dto.RecordMovementRequest) MovementInput {
	return MovementInput{
		TenantID:    tenantID,
		ActorID:     actorID,
		PartID:      strings.TrimSpace(in.PartID),
		ActionType:  strings.TrimSpace(in.ActionType),
		Quantity:    in.Quantity,
		Source:      strings.TrimSpace(in.Source),
		Destination: strings.TrimSpace(in.Destination),
		UnitCost:    in.UnitCost,
		ReferenceID: strings.TrimSpace(in.ReferenceID),
	}
}

// RecordMovement valida la entrada sin escribir nada y luego, en una sola transacción:
// (a) lee el saldo con bloqueo (o lo inicializa en cero), (b) calcula el nuevo saldo,
// (c) rechaza salidas que lo dejarían negativo, (d) agrega la entrada con balance_after
// y (e) persiste el saldo. Un conflicto de concurrencia se devuelve como ErrConcurrentModification, sin reintentos.
func (uc *RecordMovementUseCase) RecordMovement(ctx context.Context, input MovementInput) (*entity.LedgerEntry, *entity.BalanceRecord, error) {
	action, quantity, err := uc.validateInput(ctx, input)
	if err != nil {
		uc.report(input.ActionType, err)
		uc.log.Debug().Err(err).
			Str("tenant_id", input.TenantID).
			Str("part_id", input.PartID).
			Str("action_type", input.ActionType).
			Msg("movimiento rechazado en validación")
		return nil, nil, err
	}

	holds, err := uc.holds.Holds(ctx, input.TenantID, input.PartID)
	if err != nil {
		uc.report(input.ActionType, err)
		return nil, nil, fmt.Errorf("%w: leer retenciones: %v", domain.ErrStorageUnavailable, err)
	}

	var unitCost, totalValue *decimal.Decimal
	if input.UnitCost != nil {
		c := *input.UnitCost
		t, err := ledger.TotalValue(c, quantity)
		if err != nil {
			return nil, nil, err
		}
		unitCost, totalValue = &c, &t
	}

	var (
		entry   *entity.LedgerEntry
		balance *entity.BalanceRecord
	)
	err = uc.txRunner.Run(ctx, func(entries repository.LedgerEntryRepository, balances repository.BalanceRepository) error {
		current, err := balances.GetForUpdate(ctx, input.TenantID, input.PartID)
		if err != nil {
			return err
		}
		now := uc.now()
		newBalance, err := ledger.Apply(current, action, quantity, unitCost, now)
		if err != nil {
			return err
		}
		current.AvailableQuantity = ledger.Available(newBalance, holds)

		e := &entity.LedgerEntry{
			ID:           uuid.New().String(),
			TenantID:     input.TenantID,
			PartID:       input.PartID,
			ActionType:   action,
			Quantity:     quantity,
			Source:       input.Source,
			Destination:  input.Destination,
			UnitCost:     unitCost,
			TotalValue:   totalValue,
			BalanceAfter: newBalance,
			ReferenceID:  input.ReferenceID,
			CreatedBy:    input.ActorID,
			CreatedAt:    now,
		}
		if err := entries.Append(ctx, e); err != nil {
			return err
		}
		if err := balances.Upsert(ctx, current); err != nil {
			return err
		}
		entry, balance = e, current
		return nil
	})
	uc.report(string(action), err)
	if err != nil {
		ev := uc.log.Warn()
		if errors.Is(err, domain.ErrStorageUnavailable) {
			ev = uc.log.Error()
		}
		ev.Err(err).
			Str("tenant_id", input.TenantID).
			Str("part_id", input.PartID).
			Str("action_type", string(action)).
			Int64("quantity", quantity).
			Msg("movimiento no registrado")
		return nil, nil, err
	}

	uc.log.Info().
		Str("tenant_id", entry.TenantID).
		Str("part_id", entry.PartID).
		Str("entry_id", entry.ID).
		Str("action_type", string(entry.ActionType)).
		Int64("quantity", entry.Quantity).
		Int64("balance_after", entry.BalanceAfter).
		Msg("movimiento registrado")
	return entry, balance, nil
}

// RecordMovementIdempotent envuelve RecordMovement con la Idempotency-Key del cliente.
// Sin clave o sin store se comporta igual que RecordMovement. replayed=true indica respuesta almacenada.
func (uc *RecordMovementUseCase) RecordMovementIdempotent(ctx context.Context, key string, input MovementInput) (resp *dto.MovementResponse, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" || uc.idem == nil {
		entry, balance, err := uc.RecordMovement(ctx, input)
		if err != nil {
			return nil, false, err
		}
		out := ToMovementResponse(entry, balance)
		return &out, false, nil
	}
	if input.TenantID == "" {
		return nil, false, domain.ErrNotAuthorized
	}

	fp := input.Fingerprint()
	stored, err := uc.idem.Reserve(ctx, input.TenantID, key, fp)
	if err != nil {
		return nil, false, err
	}
	if stored != nil {
		return stored, true, nil
	}

	entry, balance, err := uc.RecordMovement(ctx, input)
	if err != nil {
		if relErr := uc.idem.Release(ctx, input.TenantID, key); relErr != nil {
			uc.log.Warn().Err(relErr).Str("idempotency_key", key).Msg("liberar idempotency key")
		}
		return nil, false, err
	}
	out := ToMovementResponse(entry, balance)
	if err := uc.idem.Complete(ctx, input.TenantID, key, fp, &out); err != nil {
		// El movimiento ya está confirmado; solo se pierde el replay.
		uc.log.Warn().Err(err).Str("idempotency_key", key).Msg("guardar respuesta idempotente")
	}
	return &out, false, nil
}

// validateInput aplica las validaciones en orden: cantidad, tipo, ubicaciones, autorización y parte.
func (uc *RecordMovementUseCase) validateInput(ctx context.Context, input MovementInput) (entity.ActionType, int64, error) {
	q := input.Quantity
	if !q.IsInteger() || q.Sign() <= 0 || q.GreaterThan(maxQuantity) {
		return "", 0, domain.ErrInvalidQuantity
	}
	action, ok := entity.ParseActionType(input.ActionType)
	if !ok {
		return "", 0, domain.ErrInvalidActionType
	}
	if input.Source == "" || input.Destination == "" {
		return "", 0, domain.ErrMissingLocation
	}
	if input.TenantID == "" || input.ActorID == "" {
		return "", 0, domain.ErrNotAuthorized
	}
	if err := uc.validate.Struct(input); err != nil {
		return "", 0, fmt.Errorf("%w: %s", domain.ErrInvalidInput, dto.ValidationMessage(err))
	}
	if input.UnitCost != nil {
		if _, err := ledger.TotalValue(*input.UnitCost, q.IntPart()); err != nil {
			return "", 0, err
		}
	}

	part, err := uc.partRepo.GetByID(ctx, input.PartID)
	if err != nil {
		return "", 0, err
	}
	if part == nil {
		return "", 0, domain.ErrNotFound
	}
	if part.TenantID != input.TenantID {
		return "", 0, domain.ErrNotAuthorized
	}
	return action, q.IntPart(), nil
}

func (uc *RecordMovementUseCase) report(actionType string, err error) {
	if uc.observer == nil {
		return
	}
	if _, ok := entity.ParseActionType(actionType); !ok {
		actionType = "unknown"
	}
	outcome := OutcomeAccepted
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrConcurrentModification):
		outcome = OutcomeConflict
	case errors.Is(err, domain.ErrStorageUnavailable):
		outcome = OutcomeError
	default:
		outcome = OutcomeRejected
	}
	uc.observer.ObserveMovement(actionType, outcome)
}
