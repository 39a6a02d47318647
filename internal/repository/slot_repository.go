package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/repository/base"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, owner_id, title, start_time, end_time, state, created_at, updated_at`

type SlotRepository struct {
	db base.DB
}

func NewSlotRepository(db base.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (id, owner_id, title, start_time, end_time, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(
		ctx, query,
		slot.ID,
		slot.OwnerID,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.State,
		slot.CreatedAt,
		slot.UpdatedAt,
	)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create slot: %w", store.ErrDuplicateKey)
		}
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID и блокирует строку до конца транзакции
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1 FOR UPDATE`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByOwner получает все слоты участника
func (r *SlotRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE owner_id = $1 ORDER BY start_time`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get slots by owner: %w", err)
	}

	return collectSlots(rows)
}

// GetByState получает все слоты в заданном состоянии
func (r *SlotRepository) GetByState(ctx context.Context, state model.SlotState) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE state = $1 ORDER BY start_time`

	rows, err := r.db.Query(ctx, query, state)
	if err != nil {
		return nil, fmt.Errorf("get slots by state: %w", err)
	}

	return collectSlots(rows)
}

// UpdateDetails обновляет название и время слота
func (r *SlotRepository) UpdateDetails(ctx context.Context, slot *model.Slot) error {
	query := `
		UPDATE slots
		SET title = $1, start_time = $2, end_time = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(ctx, query, slot.Title, slot.StartTime, slot.EndTime, slot.UpdatedAt, slot.ID)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update slot: %w", store.ErrNotFound)
	}

	return nil
}

// CompareAndSetState переводит слот из from в to одним условным UPDATE
func (r *SlotRepository) CompareAndSetState(ctx context.Context, id uuid.UUID, from, to model.SlotState, at time.Time) (bool, error) {
	query := `
		UPDATE slots
		SET state = $1, updated_at = $2
		WHERE id = $3 AND state = $4
	`

	result, err := r.db.Exec(ctx, query, to, at, id, from)
	if err != nil {
		return false, fmt.Errorf("compare and set slot state: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// SetOwnerAndState записывает владельца и состояние слота
func (r *SlotRepository) SetOwnerAndState(ctx context.Context, id, ownerID uuid.UUID, state model.SlotState, at time.Time) error {
	query := `
		UPDATE slots
		SET owner_id = $1, state = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.Exec(ctx, query, ownerID, state, at, id)
	if err != nil {
		return fmt.Errorf("set slot owner: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("set slot owner: %w", store.ErrNotFound)
	}

	return nil
}

// Delete удаляет слот
func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete slot: %w", store.ErrNotFound)
	}

	return nil
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.OwnerID,
		&slot.Title,
		&slot.StartTime,
		&slot.EndTime,
		&slot.State,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}
