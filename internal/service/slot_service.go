package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlotService управление слотами их владельцем
type SlotService struct {
	store    store.Transactor
	registry *SlotRegistry
	logger   *zap.Logger
	now      func() time.Time
}

func NewSlotService(st store.Transactor, registry *SlotRegistry, logger *zap.Logger) *SlotService {
	return &SlotService{
		store:    st,
		registry: registry,
		logger:   logger,
		now:      now,
	}
}

// CreateSlot создаёт слот. Пустое состояние означает occupied.
// Пересечение по времени проверяется только с текущими слотами владельца.
func (s *SlotService) CreateSlot(ctx context.Context, ownerID uuid.UUID, title string, start, end time.Time, state model.SlotState) (*model.Slot, error) {
	if state == "" {
		state = model.SlotStateOccupied
	}

	if state == model.SlotStateReserved || !state.Valid() {
		return nil, fmt.Errorf("create slot in state %q: %w", state, ErrInvalidState)
	}

	title = strings.TrimSpace(title)
	if err := validateSlot(title, start, end); err != nil {
		return nil, err
	}

	at := s.now()
	slot := &model.Slot{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		State:     state,
		CreatedAt: at,
		UpdatedAt: at,
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		owner, err := tx.Users().GetByID(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("get owner: %w", err)
		}

		if owner == nil {
			return fmt.Errorf("owner %s: %w", ownerID, ErrNotFound)
		}

		if err := s.checkOverlap(ctx, tx, slot); err != nil {
			return err
		}

		if err := tx.Slots().Create(ctx, slot); err != nil {
			return fmt.Errorf("create slot: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("Slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.String("state", string(state)),
	)

	return slot, nil
}

// UpdateDetails меняет название и время слота. Зарезервированный слот менять нельзя.
func (s *SlotService) UpdateDetails(ctx context.Context, ownerID, slotID uuid.UUID, title string, start, end time.Time) (*model.Slot, error) {
	title = strings.TrimSpace(title)
	if err := validateSlot(title, start, end); err != nil {
		return nil, err
	}

	var slot *model.Slot

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		slot, err = s.ownedSlot(ctx, tx, ownerID, slotID)
		if err != nil {
			return err
		}

		if slot.State == model.SlotStateReserved {
			return fmt.Errorf("update slot %s: %w", slotID, ErrSlotReserved)
		}

		slot.Title = title
		slot.StartTime = start.UTC()
		slot.EndTime = end.UTC()
		slot.UpdatedAt = s.now()

		if err := s.checkOverlap(ctx, tx, slot); err != nil {
			return err
		}

		if err := tx.Slots().UpdateDetails(ctx, slot); err != nil {
			return fmt.Errorf("update slot: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, storeError(err)
	}

	return slot, nil
}

// SetAvailability выставляет слот на обмен (offered) или снимает с обмена (occupied)
func (s *SlotService) SetAvailability(ctx context.Context, ownerID, slotID uuid.UUID, state model.SlotState) (*model.Slot, error) {
	var slot *model.Slot

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := s.ownedSlot(ctx, tx, ownerID, slotID); err != nil {
			return err
		}

		if err := s.registry.SetAvailability(ctx, tx, slotID, state); err != nil {
			return err
		}

		var err error
		slot, err = tx.Slots().GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("Slot availability changed",
		zap.String("slot_id", slotID.String()),
		zap.String("state", string(state)),
	)

	return slot, nil
}

// DeleteSlot удаляет слот владельца, если он не зарезервирован
func (s *SlotService) DeleteSlot(ctx context.Context, ownerID, slotID uuid.UUID) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		slot, err := s.ownedSlot(ctx, tx, ownerID, slotID)
		if err != nil {
			return err
		}

		if slot.State == model.SlotStateReserved {
			return fmt.Errorf("delete slot %s: %w", slotID, ErrSlotReserved)
		}

		if err := tx.Slots().Delete(ctx, slotID); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}

		return nil
	})

	if err != nil {
		return storeError(err)
	}

	s.logger.Info("Slot deleted",
		zap.String("slot_id", slotID.String()),
		zap.String("owner_id", ownerID.String()),
	)

	return nil
}

// GetByOwner получает все слоты участника по времени начала
func (s *SlotService) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Slot, error) {
	var slots []*model.Slot

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		slots, err = tx.Slots().GetByOwner(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("get slots: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, storeError(err)
	}

	return slots, nil
}

// GetByID получает слот по ID
func (s *SlotService) GetByID(ctx context.Context, slotID uuid.UUID) (*model.Slot, error) {
	var slot *model.Slot

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		slot, err = tx.Slots().GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}

		if slot == nil {
			return fmt.Errorf("slot %s: %w", slotID, ErrNotFound)
		}

		return nil
	})

	if err != nil {
		return nil, storeError(err)
	}

	return slot, nil
}

func (s *SlotService) ownedSlot(ctx context.Context, tx store.Tx, ownerID, slotID uuid.UUID) (*model.Slot, error) {
	slot, err := tx.Slots().GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}

	if slot == nil {
		return nil, fmt.Errorf("slot %s: %w", slotID, ErrNotFound)
	}

	if slot.OwnerID != ownerID {
		return nil, fmt.Errorf("slot %s: %w", slotID, ErrNotOwner)
	}

	return slot, nil
}

func (s *SlotService) checkOverlap(ctx context.Context, tx store.Tx, slot *model.Slot) error {
	existing, err := tx.Slots().GetByOwner(ctx, slot.OwnerID)
	if err != nil {
		return fmt.Errorf("get owner slots: %w", err)
	}

	for _, other := range existing {
		if other.ID != slot.ID && other.Overlaps(slot.StartTime, slot.EndTime) {
			return fmt.Errorf("slot overlaps %q: %w", other.Title, ErrSlotOverlap)
		}
	}

	return nil
}

func validateSlot(title string, start, end time.Time) error {
	if title == "" {
		return fmt.Errorf("empty title: %w", ErrInvalidSlot)
	}

	if !end.After(start) {
		return fmt.Errorf("end time must be after start time: %w", ErrInvalidSlot)
	}

	return nil
}
