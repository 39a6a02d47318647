package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/google/uuid"
)

// HandleSlotAdd создаёт слот владельца
func (h *Handlers) HandleSlotAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("slot add")
	var (
		owner      uuid.UUID
		start, end time.Time
	)
	uuidFlag(fs, &owner, "owner", "owner user id")
	title := fs.String("title", "", "slot title")
	timeFlag(fs, &start, "start", "start time, RFC3339")
	timeFlag(fs, &end, "end", "end time, RFC3339")
	offered := fs.Bool("offered", false, "offer the slot for swap right away")
	if err := parseFlags(fs, args, "owner", "title", "start", "end"); err != nil {
		return err
	}

	state := model.SlotStateOccupied
	if *offered {
		state = model.SlotStateOffered
	}

	slot, err := h.slotService.CreateSlot(ctx, owner, *title, start, end, state)
	if err != nil {
		return err
	}

	return h.writeJSON(slot)
}

// HandleSlotEdit меняет название и время слота
func (h *Handlers) HandleSlotEdit(ctx context.Context, args []string) error {
	fs := newFlagSet("slot edit")
	var (
		owner, id  uuid.UUID
		start, end time.Time
	)
	uuidFlag(fs, &owner, "owner", "owner user id")
	uuidFlag(fs, &id, "slot", "slot id")
	title := fs.String("title", "", "slot title")
	timeFlag(fs, &start, "start", "start time, RFC3339")
	timeFlag(fs, &end, "end", "end time, RFC3339")
	if err := parseFlags(fs, args, "owner", "slot", "title", "start", "end"); err != nil {
		return err
	}

	slot, err := h.slotService.UpdateDetails(ctx, owner, id, *title, start, end)
	if err != nil {
		return err
	}

	return h.writeJSON(slot)
}

// HandleSlotOffer выставляет слот на обмен
func (h *Handlers) HandleSlotOffer(ctx context.Context, args []string) error {
	return h.setAvailability(ctx, "slot offer", args, model.SlotStateOffered)
}

// HandleSlotWithdraw снимает слот с обмена
func (h *Handlers) HandleSlotWithdraw(ctx context.Context, args []string) error {
	return h.setAvailability(ctx, "slot withdraw", args, model.SlotStateOccupied)
}

func (h *Handlers) setAvailability(ctx context.Context, name string, args []string, state model.SlotState) error {
	fs := newFlagSet(name)
	var owner, id uuid.UUID
	uuidFlag(fs, &owner, "owner", "owner user id")
	uuidFlag(fs, &id, "slot", "slot id")
	if err := parseFlags(fs, args, "owner", "slot"); err != nil {
		return err
	}

	slot, err := h.slotService.SetAvailability(ctx, owner, id, state)
	if err != nil {
		return err
	}

	return h.writeJSON(slot)
}

// HandleSlotRemove удаляет слот
func (h *Handlers) HandleSlotRemove(ctx context.Context, args []string) error {
	fs := newFlagSet("slot rm")
	var owner, id uuid.UUID
	uuidFlag(fs, &owner, "owner", "owner user id")
	uuidFlag(fs, &id, "slot", "slot id")
	if err := parseFlags(fs, args, "owner", "slot"); err != nil {
		return err
	}

	if err := h.slotService.DeleteSlot(ctx, owner, id); err != nil {
		return err
	}

	return h.writeJSON(map[string]any{"deleted": id})
}

// HandleSlotList выводит слоты владельца
func (h *Handlers) HandleSlotList(ctx context.Context, args []string) error {
	fs := newFlagSet("slot ls")
	var owner uuid.UUID
	uuidFlag(fs, &owner, "owner", "owner user id")
	if err := parseFlags(fs, args, "owner"); err != nil {
		return err
	}

	slots, err := h.slotService.GetByOwner(ctx, owner)
	if err != nil {
		return err
	}

	if slots == nil {
		slots = []*model.Slot{}
	}

	return h.writeJSON(slots)
}
