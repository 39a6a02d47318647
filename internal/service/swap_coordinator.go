package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SwapCoordinator ведёт переговоры об обмене слотами: Open резервирует оба слота и
// создаёт pending заявку, Resolve либо меняет владельцев, либо снимает резерв.
// Каждый вызов выполняется в одной транзакции хранилища.
type SwapCoordinator struct {
	store    store.Transactor
	registry *SlotRegistry
	logger   *zap.Logger
	now      func() time.Time
}

func NewSwapCoordinator(st store.Transactor, registry *SlotRegistry, logger *zap.Logger) *SwapCoordinator {
	return &SwapCoordinator{
		store:    st,
		registry: registry,
		logger:   logger,
		now:      now,
	}
}

// RequestList входящие и исходящие заявки участника
type RequestList struct {
	Incoming []*model.SwapRequest `json:"incoming"`
	Outgoing []*model.SwapRequest `json:"outgoing"`
}

// Open открывает переговоры об обмене слота инициатора на чужой слот
func (c *SwapCoordinator) Open(ctx context.Context, initiatorID, initiatorSlotID, counterpartySlotID uuid.UUID) (*model.SwapRequest, error) {
	if initiatorSlotID == counterpartySlotID {
		return nil, fmt.Errorf("open swap: %w", ErrSelfSwap)
	}

	var req *model.SwapRequest

	err := c.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		// Перечитываем оба слота внутри транзакции
		mySlot, theirSlot, err := c.loadPair(ctx, tx, initiatorSlotID, counterpartySlotID)
		if err != nil {
			return err
		}

		if mySlot == nil || theirSlot == nil {
			return fmt.Errorf("open swap: slot: %w", ErrNotFound)
		}

		if mySlot.State != model.SlotStateOffered || theirSlot.State != model.SlotStateOffered {
			return fmt.Errorf("open swap: %w", ErrSlotNotOfferable)
		}

		if mySlot.OwnerID != initiatorID {
			return fmt.Errorf("open swap: %w", ErrNotOwner)
		}

		if theirSlot.OwnerID == initiatorID {
			return fmt.Errorf("open swap: %w", ErrSelfSwap)
		}

		// Резервируем оба слота, любая неудача откатывает всю транзакцию
		if err := c.registry.Reserve(ctx, tx, mySlot.ID, model.SlotStateOffered); err != nil {
			return err
		}

		if err := c.registry.Reserve(ctx, tx, theirSlot.ID, model.SlotStateOffered); err != nil {
			return err
		}

		req = &model.SwapRequest{
			ID:                 uuid.New(),
			InitiatorID:        initiatorID,
			CounterpartyID:     theirSlot.OwnerID,
			InitiatorSlotID:    mySlot.ID,
			CounterpartySlotID: theirSlot.ID,
			State:              model.SwapStatePending,
			CreatedAt:          c.now(),
		}

		if err := tx.SwapRequests().Create(ctx, req); err != nil {
			return fmt.Errorf("create swap request: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, c.fail("open", err)
	}

	c.logger.Info("Swap request opened",
		zap.String("request_id", req.ID.String()),
		zap.String("initiator_id", req.InitiatorID.String()),
		zap.String("counterparty_id", req.CounterpartyID.String()),
		zap.String("initiator_slot_id", req.InitiatorSlotID.String()),
		zap.String("counterparty_slot_id", req.CounterpartySlotID.String()),
	)

	return req, nil
}

// Resolve закрывает переговоры. Отвечать может только вторая сторона.
func (c *SwapCoordinator) Resolve(ctx context.Context, requestID, responderID uuid.UUID, accept bool) (*model.SwapRequest, error) {
	var req *model.SwapRequest

	err := c.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		req, err = tx.SwapRequests().GetByID(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get swap request: %w", err)
		}

		if req == nil {
			return fmt.Errorf("resolve swap %s: %w", requestID, ErrNotFound)
		}

		if req.CounterpartyID != responderID {
			return fmt.Errorf("resolve swap %s: %w", requestID, ErrUnauthorized)
		}

		if req.State != model.SwapStatePending {
			return fmt.Errorf("resolve swap %s (%s): %w", requestID, req.State, ErrAlreadyResolved)
		}

		// Оба слота обязаны оставаться reserved, пока заявка pending.
		// Иначе данные повреждены в обход координатора.
		mySlot, theirSlot, err := c.loadPair(ctx, tx, req.InitiatorSlotID, req.CounterpartySlotID)
		if err != nil {
			return err
		}

		if mySlot == nil || theirSlot == nil ||
			mySlot.State != model.SlotStateReserved || theirSlot.State != model.SlotStateReserved {
			c.logger.Error("Pending swap request holds a slot that is not reserved",
				zap.String("request_id", requestID.String()),
				zap.String("initiator_slot_id", req.InitiatorSlotID.String()),
				zap.String("counterparty_slot_id", req.CounterpartySlotID.String()),
			)
			return fmt.Errorf("resolve swap %s: %w", requestID, ErrStateConflict)
		}

		state := model.SwapStateRejected
		if accept {
			state = model.SwapStateAccepted
			err = c.registry.ExchangeOwners(ctx, tx, mySlot.ID, theirSlot.ID)
		} else {
			err = c.release(ctx, tx, mySlot.ID, theirSlot.ID)
		}
		if err != nil {
			return err
		}

		resolvedAt := c.now()
		ok, err := tx.SwapRequests().Resolve(ctx, requestID, state, resolvedAt)
		if err != nil {
			return fmt.Errorf("resolve swap request: %w", err)
		}

		if !ok {
			return fmt.Errorf("resolve swap %s: %w", requestID, ErrAlreadyResolved)
		}

		req.State = state
		req.ResolvedAt = &resolvedAt
		return nil
	})

	if err != nil {
		return nil, c.fail("resolve", err)
	}

	c.logger.Info("Swap request resolved",
		zap.String("request_id", req.ID.String()),
		zap.String("responder_id", responderID.String()),
		zap.String("state", string(req.State)),
	)

	return req, nil
}

// GetRequest получает заявку вместе с обоими слотами
func (c *SwapCoordinator) GetRequest(ctx context.Context, requestID uuid.UUID) (*model.SwapRequest, error) {
	var req *model.SwapRequest

	err := c.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		req, err = tx.SwapRequests().GetByID(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get swap request: %w", err)
		}

		if req == nil {
			return fmt.Errorf("swap request %s: %w", requestID, ErrNotFound)
		}

		return c.attachSlots(ctx, tx, req)
	})

	if err != nil {
		return nil, storeError(err)
	}

	return req, nil
}

// ListRequests получает входящие и исходящие заявки участника, новые первыми
func (c *SwapCoordinator) ListRequests(ctx context.Context, participantID uuid.UUID) (*RequestList, error) {
	list := &RequestList{}

	err := c.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		list.Incoming, err = tx.SwapRequests().GetByCounterparty(ctx, participantID)
		if err != nil {
			return fmt.Errorf("get incoming requests: %w", err)
		}

		list.Outgoing, err = tx.SwapRequests().GetByInitiator(ctx, participantID)
		if err != nil {
			return fmt.Errorf("get outgoing requests: %w", err)
		}

		for _, req := range append(list.Incoming, list.Outgoing...) {
			if err := c.attachSlots(ctx, tx, req); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, storeError(err)
	}

	return list, nil
}

func (c *SwapCoordinator) release(ctx context.Context, tx store.Tx, slotIDs ...uuid.UUID) error {
	for _, id := range slotIDs {
		if err := c.registry.Release(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

// loadPair читает два слота в порядке возрастания ID, чтобы встречные
// транзакции брали блокировки в одном порядке
func (c *SwapCoordinator) loadPair(ctx context.Context, tx store.Tx, idA, idB uuid.UUID) (*model.Slot, *model.Slot, error) {
	first, second := idA, idB
	if bytes.Compare(idA[:], idB[:]) > 0 {
		first, second = idB, idA
	}

	slots := make(map[uuid.UUID]*model.Slot, 2)
	for _, id := range []uuid.UUID{first, second} {
		slot, err := tx.Slots().GetByID(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("get slot: %w", err)
		}
		slots[id] = slot
	}

	return slots[idA], slots[idB], nil
}

func (c *SwapCoordinator) attachSlots(ctx context.Context, tx store.Tx, req *model.SwapRequest) error {
	var err error
	req.InitiatorSlot, err = tx.Slots().GetByID(ctx, req.InitiatorSlotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}

	req.CounterpartySlot, err = tx.Slots().GetByID(ctx, req.CounterpartySlotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}

	return nil
}

func (c *SwapCoordinator) fail(op string, err error) error {
	err = storeError(err)

	if errors.Is(err, ErrStateConflict) {
		c.logger.Warn("Swap transaction aborted on conflict",
			zap.String("op", op),
			zap.Error(err),
		)
	}

	return err
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
