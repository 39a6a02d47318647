package model

import (
	"time"

	"github.com/google/uuid"
)

type SwapState string

const (
	SwapStatePending  SwapState = "pending"  // Ожидает ответа второй стороны
	SwapStateAccepted SwapState = "accepted" // Принята, владельцы обменяны
	SwapStateRejected SwapState = "rejected" // Отклонена, слоты снова открыты
)

// Terminal возвращает true для состояний, из которых нет переходов
func (s SwapState) Terminal() bool {
	return s == SwapStateAccepted || s == SwapStateRejected
}

type SwapRequest struct {
	ID                 uuid.UUID  `json:"id"`
	InitiatorID        uuid.UUID  `json:"initiator_id"`
	CounterpartyID     uuid.UUID  `json:"counterparty_id"`
	InitiatorSlotID    uuid.UUID  `json:"initiator_slot_id"`
	CounterpartySlotID uuid.UUID  `json:"counterparty_slot_id"`
	State              SwapState  `json:"state"`
	CreatedAt          time.Time  `json:"created_at"`
	ResolvedAt         *time.Time `json:"resolved_at"` // nil пока заявка не закрыта

	// Дополнительные поля для удобства (не из БД)
	InitiatorSlot    *Slot `json:"initiator_slot,omitempty"`
	CounterpartySlot *Slot `json:"counterparty_slot,omitempty"`
}
