// Package store описывает транзакционный контракт хранилища слотов и заявок на обмен.
//
// Все изменения выполняются внутри Transactor.InTx: функция получает Tx, и если она
// возвращает ошибку (или паникует), ни одна запись не становится видимой снаружи.
// Методы Get* возвращают (nil, nil), если строки нет.
package store

import (
	"context"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/google/uuid"
)

// Transactor открывает атомарные транзакции
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx набор хранилищ, привязанных к одной транзакции
type Tx interface {
	Users() UserStore
	Slots() SlotStore
	SwapRequests() SwapRequestStore
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error

	// GetByID перечитывает слот внутри транзакции. Реализации блокируют строку
	// (или запоминают её версию) до конца транзакции.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)

	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Slot, error)
	GetByState(ctx context.Context, state model.SlotState) ([]*model.Slot, error)

	// UpdateDetails меняет название и время слота, но не владельца и состояние
	UpdateDetails(ctx context.Context, slot *model.Slot) error

	// CompareAndSetState переводит слот из from в to. Возвращает false, если текущее
	// состояние не from или слота нет.
	CompareAndSetState(ctx context.Context, id uuid.UUID, from, to model.SlotState, at time.Time) (bool, error)

	// SetOwnerAndState безусловно записывает владельца и состояние
	SetOwnerAndState(ctx context.Context, id, ownerID uuid.UUID, state model.SlotState, at time.Time) error

	Delete(ctx context.Context, id uuid.UUID) error
}

type SwapRequestStore interface {
	Create(ctx context.Context, req *model.SwapRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error)
	GetByInitiator(ctx context.Context, initiatorID uuid.UUID) ([]*model.SwapRequest, error)
	GetByCounterparty(ctx context.Context, counterpartyID uuid.UUID) ([]*model.SwapRequest, error)
	GetPending(ctx context.Context) ([]*model.SwapRequest, error)

	// Resolve переводит pending заявку в терминальное состояние. Возвращает false,
	// если заявка уже не pending.
	Resolve(ctx context.Context, id uuid.UUID, state model.SwapState, resolvedAt time.Time) (bool, error)
}
