package handlers

import (
	"context"

	"github.com/Freeeeeet/slot_swap/internal/app"
	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleSwapOpen открывает заявку на обмен своего слота на чужой
func (h *Handlers) HandleSwapOpen(ctx context.Context, args []string) error {
	fs := newFlagSet("swap open")
	var initiator, mySlot, theirSlot uuid.UUID
	uuidFlag(fs, &initiator, "initiator", "initiator user id")
	uuidFlag(fs, &mySlot, "slot", "initiator's offered slot id")
	uuidFlag(fs, &theirSlot, "for", "counterparty's offered slot id")
	if err := parseFlags(fs, args, "initiator", "slot", "for"); err != nil {
		return err
	}

	var req *model.SwapRequest
	err := app.RetryOnConflict(ctx, h.retries, func(ctx context.Context) error {
		var err error
		req, err = h.coordinator.Open(ctx, initiator, mySlot, theirSlot)
		return err
	})
	if err != nil {
		return err
	}

	return h.writeJSON(req)
}

// HandleSwapAccept принимает заявку
func (h *Handlers) HandleSwapAccept(ctx context.Context, args []string) error {
	return h.resolve(ctx, "swap accept", args, true)
}

// HandleSwapReject отклоняет заявку
func (h *Handlers) HandleSwapReject(ctx context.Context, args []string) error {
	return h.resolve(ctx, "swap reject", args, false)
}

func (h *Handlers) resolve(ctx context.Context, name string, args []string, accept bool) error {
	fs := newFlagSet(name)
	var requestID, responder uuid.UUID
	uuidFlag(fs, &requestID, "request", "swap request id")
	uuidFlag(fs, &responder, "responder", "responding user id")
	if err := parseFlags(fs, args, "request", "responder"); err != nil {
		return err
	}

	var req *model.SwapRequest
	err := app.RetryOnConflict(ctx, h.retries, func(ctx context.Context) error {
		var err error
		req, err = h.coordinator.Resolve(ctx, requestID, responder, accept)
		return err
	})
	if err != nil {
		h.logger.Debug("Resolve failed",
			zap.String("request_id", requestID.String()),
			zap.Bool("accept", accept),
			zap.Error(err),
		)
		return err
	}

	return h.writeJSON(req)
}

// HandleSwapShow выводит одну заявку со слотами
func (h *Handlers) HandleSwapShow(ctx context.Context, args []string) error {
	fs := newFlagSet("swap show")
	var requestID uuid.UUID
	uuidFlag(fs, &requestID, "request", "swap request id")
	if err := parseFlags(fs, args, "request"); err != nil {
		return err
	}

	req, err := h.coordinator.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	return h.writeJSON(req)
}

// HandleSwapList выводит входящие и исходящие заявки участника
func (h *Handlers) HandleSwapList(ctx context.Context, args []string) error {
	fs := newFlagSet("swap ls")
	var user uuid.UUID
	uuidFlag(fs, &user, "user", "participant user id")
	if err := parseFlags(fs, args, "user"); err != nil {
		return err
	}

	list, err := h.coordinator.ListRequests(ctx, user)
	if err != nil {
		return err
	}

	if list.Incoming == nil {
		list.Incoming = []*model.SwapRequest{}
	}
	if list.Outgoing == nil {
		list.Outgoing = []*model.SwapRequest{}
	}

	return h.writeJSON(list)
}
