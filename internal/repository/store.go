package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_swap/internal/repository/base"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store реализация store.Transactor поверх PostgreSQL
type Store struct {
	pool     *pgxpool.Pool
	isoLevel pgx.TxIsoLevel
}

// NewStore создаёт хранилище. Пустой isoLevel означает serializable.
func NewStore(pool *pgxpool.Pool, isoLevel pgx.TxIsoLevel) *Store {
	if isoLevel == "" {
		isoLevel = pgx.Serializable
	}
	return &Store{pool: pool, isoLevel: isoLevel}
}

// InTx выполняет fn в одной транзакции. Ошибки сериализации и взаимоблокировки
// возвращаются как store.ErrConflict.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	err := base.RunInTx(ctx, s.pool, s.isoLevel, func(tx pgx.Tx) error {
		return fn(ctx, &txRepositories{
			users:        NewUserRepository(tx),
			slots:        NewSlotRepository(tx),
			swapRequests: NewSwapRequestRepository(tx),
		})
	})

	if err != nil && base.IsConflict(err) {
		return fmt.Errorf("%w: %w", store.ErrConflict, err)
	}

	return err
}

type txRepositories struct {
	users        *UserRepository
	slots        *SlotRepository
	swapRequests *SwapRequestRepository
}

func (t *txRepositories) Users() store.UserStore {
	return t.users
}

func (t *txRepositories) Slots() store.SlotStore {
	return t.slots
}

func (t *txRepositories) SwapRequests() store.SwapRequestStore {
	return t.swapRequests
}
