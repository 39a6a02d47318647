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

const swapRequestColumns = `id, initiator_id, counterparty_id, initiator_slot_id, counterparty_slot_id, state, created_at, resolved_at`

type SwapRequestRepository struct {
	db base.DB
}

func NewSwapRequestRepository(db base.DB) *SwapRequestRepository {
	return &SwapRequestRepository{db: db}
}

// Create создаёт новую заявку на обмен
func (r *SwapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	query := `
		INSERT INTO swap_requests (id, initiator_id, counterparty_id, initiator_slot_id, counterparty_slot_id, state, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(
		ctx, query,
		req.ID,
		req.InitiatorID,
		req.CounterpartyID,
		req.InitiatorSlotID,
		req.CounterpartySlotID,
		req.State,
		req.CreatedAt,
		req.ResolvedAt,
	)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create swap request: %w", store.ErrDuplicateKey)
		}
		return fmt.Errorf("create swap request: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID и блокирует строку до конца транзакции
func (r *SwapRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	query := `SELECT ` + swapRequestColumns + ` FROM swap_requests WHERE id = $1 FOR UPDATE`

	req, err := scanSwapRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get swap request by id: %w", err)
	}

	return req, nil
}

// GetByInitiator получает исходящие заявки участника
func (r *SwapRequestRepository) GetByInitiator(ctx context.Context, initiatorID uuid.UUID) ([]*model.SwapRequest, error) {
	query := `SELECT ` + swapRequestColumns + ` FROM swap_requests WHERE initiator_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, initiatorID)
	if err != nil {
		return nil, fmt.Errorf("get swap requests by initiator: %w", err)
	}

	return collectSwapRequests(rows)
}

// GetByCounterparty получает входящие заявки участника
func (r *SwapRequestRepository) GetByCounterparty(ctx context.Context, counterpartyID uuid.UUID) ([]*model.SwapRequest, error) {
	query := `SELECT ` + swapRequestColumns + ` FROM swap_requests WHERE counterparty_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, counterpartyID)
	if err != nil {
		return nil, fmt.Errorf("get swap requests by counterparty: %w", err)
	}

	return collectSwapRequests(rows)
}

// GetPending получает все незакрытые заявки
func (r *SwapRequestRepository) GetPending(ctx context.Context) ([]*model.SwapRequest, error) {
	query := `SELECT ` + swapRequestColumns + ` FROM swap_requests WHERE state = 'pending' ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get pending swap requests: %w", err)
	}

	return collectSwapRequests(rows)
}

// Resolve закрывает заявку, если она всё ещё pending
func (r *SwapRequestRepository) Resolve(ctx context.Context, id uuid.UUID, state model.SwapState, resolvedAt time.Time) (bool, error) {
	query := `
		UPDATE swap_requests
		SET state = $1, resolved_at = $2
		WHERE id = $3 AND state = 'pending'
	`

	result, err := r.db.Exec(ctx, query, state, resolvedAt, id)
	if err != nil {
		return false, fmt.Errorf("resolve swap request: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

func scanSwapRequest(row pgx.Row) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := row.Scan(
		&req.ID,
		&req.InitiatorID,
		&req.CounterpartyID,
		&req.InitiatorSlotID,
		&req.CounterpartySlotID,
		&req.State,
		&req.CreatedAt,
		&req.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func collectSwapRequests(rows pgx.Rows) ([]*model.SwapRequest, error) {
	defer rows.Close()

	var reqs []*model.SwapRequest
	for rows.Next() {
		req, err := scanSwapRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap request: %w", err)
		}
		reqs = append(reqs, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap requests: %w", err)
	}

	return reqs, nil
}
