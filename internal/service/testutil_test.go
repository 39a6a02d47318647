package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/service"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/Freeeeeet/slot_swap/internal/store/memory"
)

// fixture собирает сервисы поверх хранилища в памяти
type fixture struct {
	store       *memory.Store
	registry    *service.SlotRegistry
	coordinator *service.SwapCoordinator
	slots       *service.SlotService
	users       *service.UserService

	day   time.Time
	hours int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zaptest.NewLogger(t)
	st := memory.NewStore()
	registry := service.NewSlotRegistry()

	return &fixture{
		store:       st,
		registry:    registry,
		coordinator: service.NewSwapCoordinator(st, registry, logger),
		slots:       service.NewSlotService(st, registry, logger),
		users:       service.NewUserService(st, logger),
		day:         time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) user(t *testing.T, name string) *model.User {
	t.Helper()

	u, err := f.users.RegisterUser(context.Background(), name, fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]))
	require.NoError(t, err)
	return u
}

// slot создаёт часовой слот, не пересекающийся с предыдущими
func (f *fixture) slot(t *testing.T, owner *model.User, state model.SlotState) *model.Slot {
	t.Helper()

	start := f.day.Add(time.Duration(f.hours) * time.Hour)
	f.hours++

	s, err := f.slots.CreateSlot(context.Background(), owner.ID, fmt.Sprintf("Slot %d", f.hours), start, start.Add(time.Hour), state)
	require.NoError(t, err)
	return s
}

func (f *fixture) getSlot(t *testing.T, id uuid.UUID) *model.Slot {
	t.Helper()

	s, err := f.slots.GetByID(context.Background(), id)
	require.NoError(t, err)
	return s
}

// tamper меняет состояние слота в обход сервисов
func (f *fixture) tamper(t *testing.T, id uuid.UUID, state model.SlotState) {
	t.Helper()

	err := f.store.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		s, err := tx.Slots().GetByID(ctx, id)
		if err != nil {
			return err
		}
		return tx.Slots().SetOwnerAndState(ctx, id, s.OwnerID, state, time.Now())
	})
	require.NoError(t, err)
}

// pendingBySlot считает pending заявки на каждый слот
func (f *fixture) pendingBySlot(t *testing.T) map[uuid.UUID]int {
	t.Helper()

	counts := make(map[uuid.UUID]int)
	err := f.store.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		pending, err := tx.SwapRequests().GetPending(ctx)
		if err != nil {
			return err
		}
		for _, req := range pending {
			counts[req.InitiatorSlotID]++
			counts[req.CounterpartySlotID]++
		}
		return nil
	})
	require.NoError(t, err)
	return counts
}
