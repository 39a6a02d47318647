package service

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/slot_swap/internal/store"
)

// Ошибки переговоров об обмене. Все возвращаются синхронно и ничего не меняют в хранилище.
var (
	ErrNotFound         = errors.New("not found")
	ErrSlotNotOfferable = errors.New("slot is not offered for swap")
	ErrNotOwner         = errors.New("slot is not owned by participant")
	ErrSelfSwap         = errors.New("cannot swap with yourself")
	ErrUnauthorized     = errors.New("only the counterparty may respond")
	ErrAlreadyResolved  = errors.New("swap request already resolved")
	ErrStateConflict    = errors.New("slot state changed concurrently")
)

// Ошибки управления слотами владельцем
var (
	ErrSlotReserved = errors.New("slot is reserved by a pending swap")
	ErrSlotOverlap  = errors.New("slot overlaps with an existing slot")
	ErrInvalidSlot  = errors.New("invalid slot")
	ErrInvalidState = errors.New("invalid slot state")
	ErrEmailTaken   = errors.New("email already registered")
)

// storeError приводит ошибки хранилища к ошибкам сервиса
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrStateConflict, err)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
