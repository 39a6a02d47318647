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

type swapRequestStore struct {
	rows *tableTx[model.SwapRequest]
}

func (s *swapRequestStore) Create(_ context.Context, req *model.SwapRequest) error {
	if _, ok := s.rows.get(req.ID); ok {
		return fmt.Errorf("create swap request: %w", store.ErrDuplicateKey)
	}

	stored := *req
	stored.InitiatorSlot = nil
	stored.CounterpartySlot = nil
	s.rows.put(req.ID, stored)
	return nil
}

func (s *swapRequestStore) GetByID(_ context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	req, ok := s.rows.get(id)
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (s *swapRequestStore) GetByInitiator(_ context.Context, initiatorID uuid.UUID) ([]*model.SwapRequest, error) {
	return s.filter(func(req *model.SwapRequest) bool { return req.InitiatorID == initiatorID }), nil
}

func (s *swapRequestStore) GetByCounterparty(_ context.Context, counterpartyID uuid.UUID) ([]*model.SwapRequest, error) {
	return s.filter(func(req *model.SwapRequest) bool { return req.CounterpartyID == counterpartyID }), nil
}

func (s *swapRequestStore) GetPending(_ context.Context) ([]*model.SwapRequest, error) {
	return s.filter(func(req *model.SwapRequest) bool { return req.State == model.SwapStatePending }), nil
}

func (s *swapRequestStore) Resolve(_ context.Context, id uuid.UUID, state model.SwapState, resolvedAt time.Time) (bool, error) {
	req, ok := s.rows.get(id)
	if !ok || req.State != model.SwapStatePending {
		return false, nil
	}
	req.State = state
	req.ResolvedAt = &resolvedAt
	s.rows.put(id, req)
	return true, nil
}

// filter возвращает заявки от новых к старым
func (s *swapRequestStore) filter(keep func(*model.SwapRequest) bool) []*model.SwapRequest {
	var reqs []*model.SwapRequest
	for _, req := range s.rows.all() {
		req := req
		if keep(&req) {
			reqs = append(reqs, &req)
		}
	}

	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})

	return reqs
}
