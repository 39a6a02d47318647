package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/app"
	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleUserAdd регистрирует участника
func (h *Handlers) HandleUserAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("user add")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "unique email")
	if err := parseFlags(fs, args, "name", "email"); err != nil {
		return err
	}

	user, err := h.userService.RegisterUser(ctx, *name, *email)
	if err != nil {
		return err
	}

	return h.writeJSON(user)
}

// HandleUserShow находит участника по id или email
func (h *Handlers) HandleUserShow(ctx context.Context, args []string) error {
	fs := newFlagSet("user show")
	var id uuid.UUID
	uuidFlag(fs, &id, "id", "user id")
	email := fs.String("email", "", "user email")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var (
		user *model.User
		err  error
	)
	switch {
	case fs.Changed("id"):
		user, err = h.userService.GetByID(ctx, id)
	case fs.Changed("email"):
		user, err = h.userService.GetByEmail(ctx, *email)
	default:
		return errors.New("one of --id or --email is required")
	}
	if err != nil {
		return err
	}

	return h.writeJSON(user)
}

// HandleSeed заполняет базу демонстрационными данными
func (h *Handlers) HandleSeed(ctx context.Context, args []string) error {
	if err := parseFlags(newFlagSet("seed"), args); err != nil {
		return err
	}

	users, err := app.Seed(ctx, h.userService, h.slotService, time.Now(), h.logger)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	if users == nil {
		users = []*model.User{}
	}

	h.logger.Info("Seed finished", zap.Int("created", len(users)))
	return h.writeJSON(users)
}
