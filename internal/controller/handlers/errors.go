package handlers

import (
	"errors"

	"github.com/Freeeeeet/slot_swap/internal/service"
)

var errorCodes = []struct {
	target error
	code   string
}{
	{service.ErrNotFound, "not_found"},
	{service.ErrSlotNotOfferable, "slot_not_offerable"},
	{service.ErrNotOwner, "not_owner"},
	{service.ErrSelfSwap, "self_swap"},
	{service.ErrUnauthorized, "unauthorized"},
	{service.ErrAlreadyResolved, "already_resolved"},
	{service.ErrStateConflict, "state_conflict"},
	{service.ErrSlotReserved, "slot_reserved"},
	{service.ErrSlotOverlap, "slot_overlap"},
	{service.ErrInvalidSlot, "invalid_slot"},
	{service.ErrInvalidState, "invalid_state"},
	{service.ErrEmailTaken, "email_taken"},
}

// ErrorCode возвращает код доменной ошибки или пустую строку для прочих ошибок
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return ""
}
