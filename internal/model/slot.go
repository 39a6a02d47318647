package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotState string

const (
	SlotStateOccupied SlotState = "occupied" // Не выставлен на обмен
	SlotStateOffered  SlotState = "offered"  // Открыт для обмена
	SlotStateReserved SlotState = "reserved" // Участвует в активной заявке на обмен
)

// Valid проверяет что состояние входит в допустимый набор
func (s SlotState) Valid() bool {
	switch s {
	case SlotStateOccupied, SlotStateOffered, SlotStateReserved:
		return true
	}
	return false
}

type Slot struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	State     SlotState `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overlaps проверяет пересечение интервала слота с [start, end)
func (s *Slot) Overlaps(start, end time.Time) bool {
	return start.Before(s.EndTime) && end.After(s.StartTime)
}
