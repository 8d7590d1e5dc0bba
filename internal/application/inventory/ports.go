package inventory

import (
	"context"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error no queda nada persistido (ni libro ni saldo).
type TxRunner interface {
	Run(ctx context.Context, fn func(
		entries repository.LedgerEntryRepository,
		balances repository.BalanceRepository,
	) error) error
}

// MovementObserver recibe el resultado de cada movimiento (métricas). Puede ser nil.
type MovementObserver interface {
	ObserveMovement(actionType, outcome string)
}

// IdempotencyStore guarda la respuesta del primer intento aceptado por (tenant, key).
// fingerprint identifica el cuerpo del movimiento: la misma clave con otro cuerpo es un error.
type IdempotencyStore interface {
	// Reserve marca la clave como en curso. Si ya existe una respuesta la devuelve;
	// si otro intento está en curso devuelve domain.ErrConcurrentModification y si la clave
	// se usó con otro cuerpo domain.ErrIdempotencyKeyReused.
	Reserve(ctx context.Context, tenantID, key, fingerprint string) (*dto.MovementResponse, error)
	Complete(ctx context.Context, tenantID, key, fingerprint string, resp *dto.MovementResponse) error
	Release(ctx context.Context, tenantID, key string) error
}
