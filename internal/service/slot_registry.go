package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/google/uuid"
)

// SlotRegistry единственный, кто меняет владельца и состояние слота.
// Все методы работают внутри транзакции вызывающего и сами ничего не коммитят.
type SlotRegistry struct {
	now func() time.Time
}

func NewSlotRegistry() *SlotRegistry {
	return &SlotRegistry{now: now}
}

// Reserve атомарно переводит слот из expected в reserved
func (r *SlotRegistry) Reserve(ctx context.Context, tx store.Tx, slotID uuid.UUID, expected model.SlotState) error {
	if expected != model.SlotStateOffered {
		return fmt.Errorf("reserve slot %s from %q: %w", slotID, expected, ErrInvalidState)
	}

	ok, err := tx.Slots().CompareAndSetState(ctx, slotID, expected, model.SlotStateReserved, r.now())
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}

	if !ok {
		return r.casFailure(ctx, tx, slotID, "reserve")
	}

	return nil
}

// Release возвращает зарезервированный слот в offered
func (r *SlotRegistry) Release(ctx context.Context, tx store.Tx, slotID uuid.UUID) error {
	ok, err := tx.Slots().CompareAndSetState(ctx, slotID, model.SlotStateReserved, model.SlotStateOffered, r.now())
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	if !ok {
		return r.casFailure(ctx, tx, slotID, "release")
	}

	return nil
}

// ExchangeOwners меняет владельцев двух зарезервированных слотов и переводит оба в occupied
func (r *SlotRegistry) ExchangeOwners(ctx context.Context, tx store.Tx, slotIDA, slotIDB uuid.UUID) error {
	a, err := r.reservedSlot(ctx, tx, slotIDA)
	if err != nil {
		return err
	}

	b, err := r.reservedSlot(ctx, tx, slotIDB)
	if err != nil {
		return err
	}

	at := r.now()

	if err := tx.Slots().SetOwnerAndState(ctx, a.ID, b.OwnerID, model.SlotStateOccupied, at); err != nil {
		return fmt.Errorf("exchange owners: %w", err)
	}

	if err := tx.Slots().SetOwnerAndState(ctx, b.ID, a.OwnerID, model.SlotStateOccupied, at); err != nil {
		return fmt.Errorf("exchange owners: %w", err)
	}

	return nil
}

// SetAvailability переключает слот между occupied и offered по желанию владельца.
// Зарезервированный слот трогать нельзя.
func (r *SlotRegistry) SetAvailability(ctx context.Context, tx store.Tx, slotID uuid.UUID, state model.SlotState) error {
	var from model.SlotState
	switch state {
	case model.SlotStateOffered:
		from = model.SlotStateOccupied
	case model.SlotStateOccupied:
		from = model.SlotStateOffered
	default:
		return fmt.Errorf("set availability to %q: %w", state, ErrInvalidState)
	}

	slot, err := tx.Slots().GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}

	if slot == nil {
		return fmt.Errorf("slot %s: %w", slotID, ErrNotFound)
	}

	switch slot.State {
	case state:
		return nil
	case model.SlotStateReserved:
		return fmt.Errorf("slot %s: %w", slotID, ErrSlotReserved)
	}

	ok, err := tx.Slots().CompareAndSetState(ctx, slotID, from, state, r.now())
	if err != nil {
		return fmt.Errorf("set availability: %w", err)
	}

	if !ok {
		return fmt.Errorf("slot %s: %w", slotID, ErrStateConflict)
	}

	return nil
}

func (r *SlotRegistry) reservedSlot(ctx context.Context, tx store.Tx, slotID uuid.UUID) (*model.Slot, error) {
	slot, err := tx.Slots().GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}

	if slot == nil || slot.State != model.SlotStateReserved {
		return nil, fmt.Errorf("exchange owners: slot %s is not reserved: %w", slotID, ErrStateConflict)
	}

	return slot, nil
}

// casFailure отличает отсутствие слота от несовпадения состояния
func (r *SlotRegistry) casFailure(ctx context.Context, tx store.Tx, slotID uuid.UUID, op string) error {
	slot, err := tx.Slots().GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("%s slot: %w", op, err)
	}

	if slot == nil {
		return fmt.Errorf("%s slot %s: %w", op, slotID, ErrNotFound)
	}

	return fmt.Errorf("%s slot %s in state %q: %w", op, slotID, slot.State, ErrStateConflict)
}
