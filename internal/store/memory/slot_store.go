package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/google/uuid"
)

type slotStore struct {
	rows *tableTx[model.Slot]
}

func (s *slotStore) Create(_ context.Context, slot *model.Slot) error {
	if _, ok := s.rows.get(slot.ID); ok {
		return fmt.Errorf("create slot: %w", store.ErrDuplicateKey)
	}
	s.rows.put(slot.ID, *slot)
	return nil
}

func (s *slotStore) GetByID(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	slot, ok := s.rows.get(id)
	if !ok {
		return nil, nil
	}
	return &slot, nil
}

func (s *slotStore) GetByOwner(_ context.Context, ownerID uuid.UUID) ([]*model.Slot, error) {
	return s.filter(func(slot *model.Slot) bool { return slot.OwnerID == ownerID }), nil
}

func (s *slotStore) GetByState(_ context.Context, state model.SlotState) ([]*model.Slot, error) {
	return s.filter(func(slot *model.Slot) bool { return slot.State == state }), nil
}

func (s *slotStore) UpdateDetails(_ context.Context, slot *model.Slot) error {
	current, ok := s.rows.get(slot.ID)
	if !ok {
		return fmt.Errorf("update slot: %w", store.ErrNotFound)
	}
	current.Title = slot.Title
	current.StartTime = slot.StartTime
	current.EndTime = slot.EndTime
	current.UpdatedAt = slot.UpdatedAt
	s.rows.put(slot.ID, current)
	return nil
}

func (s *slotStore) CompareAndSetState(_ context.Context, id uuid.UUID, from, to model.SlotState, at time.Time) (bool, error) {
	current, ok := s.rows.get(id)
	if !ok || current.State != from {
		return false, nil
	}
	current.State = to
	current.UpdatedAt = at
	s.rows.put(id, current)
	return true, nil
}

func (s *slotStore) SetOwnerAndState(_ context.Context, id, ownerID uuid.UUID, state model.SlotState, at time.Time) error {
	current, ok := s.rows.get(id)
	if !ok {
		return fmt.Errorf("set slot owner: %w", store.ErrNotFound)
	}
	current.OwnerID = ownerID
	current.State = state
	current.UpdatedAt = at
	s.rows.put(id, current)
	return nil
}

func (s *slotStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.rows.get(id); !ok {
		return fmt.Errorf("delete slot: %w", store.ErrNotFound)
	}
	s.rows.del(id)
	return nil
}

func (s *slotStore) filter(keep func(*model.Slot) bool) []*model.Slot {
	var slots []*model.Slot
	for _, slot := range s.rows.all() {
		slot := slot
		if keep(&slot) {
			slots = append(slots, &slot)
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})

	return slots
}
