package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/application/inventory"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/pkg/config"
)

var _ inventory.IdempotencyStore = (*IdempotencyStore)(nil)

const (
	keyPrefix     = "ledger:idem"
	pendingPrefix = "pending:"
	// minPendingTTL libera la clave si el proceso muere a mitad del movimiento.
	minPendingTTL = 30 * time.Second
)

// record respuesta almacenada junto con la huella del cuerpo que la produjo.
type record struct {
	Fingerprint string               `json:"fingerprint"`
	Response    dto.MovementResponse `json:"response"`
}

// NewClient crea el cliente Redis y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// IdempotencyStore guarda por (tenant, Idempotency-Key) la respuesta del primer movimiento aceptado.
type IdempotencyStore struct {
	client     *goredis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotencyStore construye el store. ttl es el tiempo que se conserva una respuesta para replay;
// lockTimeout es la espera máxima por el bloqueo del saldo y acota cuánto dura la marca en curso.
func NewIdempotencyStore(client *goredis.Client, ttl, lockTimeout time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl, pendingTTL: pendingTTLFor(ttl, lockTimeout)}
}

// pendingTTLFor: la marca debe sobrevivir a la espera del bloqueo más la transacción.
// Sin lock_timeout (0) la espera no tiene cota y la marca dura lo mismo que una respuesta.
func pendingTTLFor(ttl, lockTimeout time.Duration) time.Duration {
	if lockTimeout <= 0 {
		return ttl
	}
	return max(minPendingTTL, 2*lockTimeout+10*time.Second)
}

func redisKey(tenantID, key string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, tenantID, key)
}

// Reserve marca la clave como en curso (SETNX). Si ya hay respuesta para el mismo cuerpo la devuelve;
// si está en curso devuelve domain.ErrConcurrentModification y si el cuerpo difiere
// domain.ErrIdempotencyKeyReused.
func (s *IdempotencyStore) Reserve(ctx context.Context, tenantID, key, fingerprint string) (*dto.MovementResponse, error) {
	k := redisKey(tenantID, key)
	ok, err := s.client.SetNX(ctx, k, pendingPrefix+fingerprint, s.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis setnx: %v", domain.ErrStorageUnavailable, err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, goredis.Nil) {
		// Liberada entre SETNX y GET: el otro intento falló, el cliente puede reintentar.
		return nil, domain.ErrConcurrentModification
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", domain.ErrStorageUnavailable, err)
	}
	if pendingFP, inFlight := strings.CutPrefix(raw, pendingPrefix); inFlight {
		if pendingFP != fingerprint {
			return nil, domain.ErrIdempotencyKeyReused
		}
		return nil, domain.ErrConcurrentModification
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode idempotent response: %w", err)
	}
	if rec.Fingerprint != fingerprint {
		return nil, domain.ErrIdempotencyKeyReused
	}
	return &rec.Response, nil
}

// Complete reemplaza la marca en curso por la respuesta final con el TTL configurado.
func (s *IdempotencyStore) Complete(ctx context.Context, tenantID, key, fingerprint string, resp *dto.MovementResponse) error {
	raw, err := json.Marshal(record{Fingerprint: fingerprint, Response: *resp})
	if err != nil {
		return fmt.Errorf("encode idempotent response: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(tenantID, key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Release borra la clave tras un intento fallido para que pueda reenviarse.
func (s *IdempotencyStore) Release(ctx context.Context, tenantID, key string) error {
	if err := s.client.Del(ctx, redisKey(tenantID, key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
