package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/service"
)

func TestSwapCoordinator_OpenReservesBothSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	s1 := f.slot(t, alice, model.SlotStateOffered)
	s2 := f.slot(t, bob, model.SlotStateOffered)

	req, err := f.coordinator.Open(ctx, alice.ID, s1.ID, s2.ID)
	require.NoError(t, err)

	assert.Equal(t, model.SwapStatePending, req.State)
	assert.Equal(t, alice.ID, req.InitiatorID)
	assert.Equal(t, bob.ID, req.CounterpartyID)
	assert.Equal(t, s1.ID, req.InitiatorSlotID)
	assert.Equal(t, s2.ID, req.CounterpartySlotID)
	assert.Nil(t, req.ResolvedAt)
	assert.False(t, req.CreatedAt.IsZero())

	assert.Equal(t, model.SlotStateReserved, f.getSlot(t, s1.ID).State)
	assert.Equal(t, model.SlotStateReserved, f.getSlot(t, s2.ID).State)
}

func TestSwapCoordinator_AcceptSwapsOwners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	s1 := f.slot(t, alice, model.SlotStateOffered)
	s2 := f.slot(t, bob, model.SlotStateOffered)

	req, err := f.coordinator.Open(ctx, alice.ID, s1.ID, s2.ID)
	require.NoError(t, err)

	resolved, err := f.coordinator.Resolve(ctx, req.ID, bob.ID, true)
	require.NoError(t, err)

	assert.Equal(t, model.SwapStateAccepted, resolved.State)
	require.NotNil(t, resolved.ResolvedAt)

	got1 := f.getSlot(t, s1.ID)
	got2 := f.getSlot(t, s2.ID)
	assert.Equal(t, bob.ID, got1.OwnerID)
	assert.Equal(t, alice.ID, got2.OwnerID)
	assert.Equal(t, model.SlotStateOccupied, got1.State)
	assert.Equal(t, model.SlotStateOccupied, got2.State)

	stored, err := f.coordinator.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SwapStateAccepted, stored.State)
	assert.NotNil(t, stored.ResolvedAt)
}

func TestSwapCoordinator_RejectRestoresOffered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	s1 := f.slot(t, alice, model.SlotStateOffered)
	s2 := f.slot(t, bob, model.SlotStateOffered)

	req, err := f.coordinator.Open(ctx, alice.ID, s1.ID, s2.ID)
	require.NoError(t, err)

	resolved, err := f.coordinator.Resolve(ctx, req.ID, bob.ID, false)
	require.NoError(t, err)

	assert.Equal(t, model.SwapStateRejected, resolved.State)
	assert.NotNil(t, resolved.ResolvedAt)

	got1 := f.getSlot(t, s1.ID)
	got2 := f.getSlot(t, s2.ID)
	assert.Equal(t, model.SlotStateOffered, got1.State)
	assert.Equal(t, model.SlotStateOffered, got2.State)
	assert.Equal(t, alice.ID, got1.OwnerID)
	assert.Equal(t, bob.ID, got2.OwnerID)

	// Освобождённые слоты снова можно предложить
	_, err = f.coordinator.Open(ctx, alice.ID, s1.ID, s2.ID)
	require.NoError(t, err)
}

func TestSwapCoordinator_ResolveTwice(t *testing.T) {
	for _, first := range []bool{true, false} {
		f := newFixture(t)
		ctx := context.Background()

		alice := f.user(t, "alice")
		bob := f.user(t, "bob")
		s1 := f.slot(t, alice, model.SlotStateOffered)
		s2 := f.slot(t, bob, model.SlotStateOffered)

		req, err := f.coordinator.Open(ctx, alice.ID, s1.ID, s2.ID)
		require.NoError(t, err)

		resolved, err := f.coordinator.Resolve(ctx, req.ID, bob.ID, first)
		require.NoError(t, err)

		before1, before2 := f.getSlot(t, s1.ID), f.getSlot(t, s2.ID)

		for _, second := range []bool{true, false} {
			_, err = f.coordinator.Resolve(ctx, req.ID, bob.ID, second)
			assert.ErrorIs(t, err, service.ErrAlreadyResolved)
		}

		stored, err := f.coordinator.GetRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, resolved.State, stored.State)

		after1, after2 := f.getSlot(t, s1.ID), f.getSlot(t, s2.ID)
		assert.Equal(t, before1.OwnerID, after1.OwnerID)
		assert.Equal(t, before1.State, after1.State)
		assert.Equal(t, before2.OwnerID, after2.OwnerID)
		assert.Equal(t, before2.State, after2.State)
	}
}

func TestSwapCoordinator_OpenPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	aliceOffered := f.slot(t, alice, model.SlotStateOffered)
	aliceOther := f.slot(t, alice, model.SlotStateOffered)
	aliceBusy := f.slot(t, alice, model.SlotStateOccupied)
	bobOffered := f.slot(t, bob, model.SlotStateOffered)
	bobBusy := f.slot(t, bob, model.SlotStateOccupied)
	carolOffered := f.slot(t, carol, model.SlotStateOffered)

	tests := []struct {
		name         string
		initiator    uuid.UUID
		mine, theirs uuid.UUID
		want         error
	}{
		{"missing initiator slot", alice.ID, uuid.New(), bobOffered.ID, service.ErrNotFound},
		{"missing counterparty slot", alice.ID, aliceOffered.ID, uuid.New(), service.ErrNotFound},
		{"initiator slot not offered", alice.ID, aliceBusy.ID, bobOffered.ID, service.ErrSlotNotOfferable},
		{"counterparty slot not offered", alice.ID, aliceOffered.ID, bobBusy.ID, service.ErrSlotNotOfferable},
		{"initiator does not own slot", alice.ID, carolOffered.ID, bobOffered.ID, service.ErrNotOwner},
		{"counterparty slot is own", alice.ID, aliceOffered.ID, aliceOther.ID, service.ErrSelfSwap},
		{"same slot twice", alice.ID, aliceOffered.ID, aliceOffered.ID, service.ErrSelfSwap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := f.coordinator.Open(ctx, tt.initiator, tt.mine, tt.theirs)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, req)
		})
	}

	// Ни одна неудачная попытка не оставила следов
	assert.Empty(t, f.pendingBySlot(t))
	for _, s := range []*model.Slot{aliceOffered, aliceOther, aliceBusy, bobOffered, bobBusy, carolOffered} {
		got := f.getSlot(t, s.ID)
		assert.Equal(t, s.State, got.State, s.Title)
		assert.Equal(t, s.OwnerID, got.OwnerID, s.Title)
	}

	list, err := f.coordinator.ListRequests(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, list.Outgoing)
}

func TestSwapCoordinator_OpenReservedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")
	s1 := f.slot(t, alice, model.SlotStateOffered)
	s2 := f.slot(t, bob, model.SlotStateOffered)
	s3 := f.slot(t, carol, model.SlotStateOffered)

	_, err := f.coordinator.Open(ctx, alice.ID, s1.ID, s2.ID)
	require.NoError(t, err)

	_, err = f.coordinator.Open(ctx, carol.ID, s3.ID, s2.ID)
	assert.ErrorIs(t, err, service.ErrSlotNotOfferable)

	assert.Equal(t, model.SlotStateOffered, f.getSlot(t, s3.ID).State)
	assert.Equal(t, 1, f.pendingBySlot(t)[s2.ID])
}

func TestSwapCoordinator_ResolvePreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")
	s1 := f.slot(t, alice, model.SlotStateOffered)
	s2 := f.slot(t, bob, model.SlotStateOffered)

	req, err := f.coordinator.Open(ctx, alice.ID, s1.ID, s2.ID)
	require.NoError(t, err)

	_, err = f.coordinator.Resolve(ctx, uuid.New(), bob.ID, true)
	assert.ErrorIs(t, err, service.ErrNotFound)

	// Инициатор не может сам принять свою заявку
	_, err = f.coordinator.Resolve(ctx, req.ID, alice.ID, true)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.coordinator.Resolve(ctx, req.ID, carol.ID, false)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	stored, err := f.coordinator.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatePending, stored.State)
	assert.Equal(t, model.SlotStateReserved, stored.InitiatorSlot.State)
	assert.Equal(t, model.SlotStateReserved, stored.CounterpartySlot.State)
}

func TestSwapCoordinator_ResolveDetectsTamperedSlot(t *testing.T) {
	for _, accept := range []bool{true, false} {
		f := newFixture(t)
		ctx := context.Background()

		alice := f.user(t, "alice")
		bob := f.user(t, "bob")
		s1 := f.slot(t, alice, model.SlotStateOffered)
		s2 := f.slot(t, bob, model.SlotStateOffered)

		req, err := f.coordinator.Open(ctx, alice.ID, s1.ID, s2.ID)
		require.NoError(t, err)

		f.tamper(t, s2.ID, model.SlotStateOccupied)

		_, err = f.coordinator.Resolve(ctx, req.ID, bob.ID, accept)
		assert.ErrorIs(t, err, service.ErrStateConflict)

		// Заявка осталась pending, слот инициатора не тронут
		stored, err := f.coordinator.GetRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SwapStatePending, stored.State)
		assert.Nil(t, stored.ResolvedAt)
		assert.Equal(t, model.SlotStateReserved, f.getSlot(t, s1.ID).State)
		assert.Equal(t, alice.ID, f.getSlot(t, s1.ID).OwnerID)

		// После восстановления данных повтор проходит
		f.tamper(t, s2.ID, model.SlotStateReserved)
		_, err = f.coordinator.Resolve(ctx, req.ID, bob.ID, accept)
		require.NoError(t, err)
	}
}

func TestSwapCoordinator_ConcurrentOpenSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const initiators = 16

	bob := f.user(t, "bob")
	target := f.slot(t, bob, model.SlotStateOffered)

	type attempt struct {
		user *model.User
		slot *model.Slot
	}
	attempts := make([]attempt, initiators)
	for i := range attempts {
		u := f.user(t, "initiator")
		attempts[i] = attempt{user: u, slot: f.slot(t, u, model.SlotStateOffered)}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     []*model.SwapRequest
		lostErr []error
	)

	start := make(chan struct{})
	for _, a := range attempts {
		wg.Add(1)
		go func(a attempt) {
			defer wg.Done()
			<-start

			req, err := f.coordinator.Open(ctx, a.user.ID, a.slot.ID, target.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lostErr = append(lostErr, err)
				return
			}
			won = append(won, req)
		}(a)
	}
	close(start)
	wg.Wait()

	require.Len(t, won, 1)
	require.Len(t, lostErr, initiators-1)
	for _, err := range lostErr {
		assert.True(t,
			errors.Is(err, service.ErrStateConflict) || errors.Is(err, service.ErrSlotNotOfferable),
			"unexpected error: %v", err)
	}

	assert.Equal(t, model.SlotStateReserved, f.getSlot(t, target.ID).State)
	assert.Equal(t, 1, f.pendingBySlot(t)[target.ID])

	for _, a := range attempts {
		want := model.SlotStateOffered
		if a.slot.ID == won[0].InitiatorSlotID {
			want = model.SlotStateReserved
		}
		assert.Equal(t, want, f.getSlot(t, a.slot.ID).State)
	}
}

func TestSwapCoordinator_ConcurrentResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	s1 := f.slot(t, alice, model.SlotStateOffered)
	s2 := f.slot(t, bob, model.SlotStateOffered)

	req, err := f.coordinator.Open(ctx, alice.ID, s1.ID, s2.ID)
	require.NoError(t, err)

	decisions := []bool{true, false, true, false, true, false, true, false}
	results := make([]*model.SwapRequest, len(decisions))
	errs := make([]error, len(decisions))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, accept := range decisions {
		wg.Add(1)
		go func(i int, accept bool) {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.coordinator.Resolve(ctx, req.ID, bob.ID, accept)
		}(i, accept)
	}
	close(start)
	wg.Wait()

	var winner *model.SwapRequest
	for i, err := range errs {
		if err == nil {
			require.Nil(t, winner, "more than one resolve succeeded")
			winner = results[i]
			continue
		}
		assert.True(t,
			errors.Is(err, service.ErrAlreadyResolved) || errors.Is(err, service.ErrStateConflict),
			"unexpected error: %v", err)
	}
	require.NotNil(t, winner)

	got1, got2 := f.getSlot(t, s1.ID), f.getSlot(t, s2.ID)
	switch winner.State {
	case model.SwapStateAccepted:
		assert.Equal(t, bob.ID, got1.OwnerID)
		assert.Equal(t, alice.ID, got2.OwnerID)
		assert.Equal(t, model.SlotStateOccupied, got1.State)
		assert.Equal(t, model.SlotStateOccupied, got2.State)
	case model.SwapStateRejected:
		assert.Equal(t, alice.ID, got1.OwnerID)
		assert.Equal(t, bob.ID, got2.OwnerID)
		assert.Equal(t, model.SlotStateOffered, got1.State)
		assert.Equal(t, model.SlotStateOffered, got2.State)
	default:
		t.Fatalf("unexpected terminal state %q", winner.State)
	}
}

func TestSwapCoordinator_ChainedSwapsKeepInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const participants = 6

	users := make([]*model.User, participants)
	slots := make([]*model.Slot, participants)
	for i := range users {
		users[i] = f.user(t, "p")
		slots[i] = f.slot(t, users[i], model.SlotStateOffered)
	}

	// Каждый пытается обменяться со всеми остальными одновременно
	var wg sync.WaitGroup
	for i := range users {
		for j := range users {
			if i == j {
				continue
			}
			wg.Add(1)
			go func(i, j int) {
				defer wg.Done()
				_, _ = f.coordinator.Open(ctx, users[i].ID, slots[i].ID, slots[j].ID)
			}(i, j)
		}
	}
	wg.Wait()

	pending := f.pendingBySlot(t)
	reserved := 0
	for _, s := range slots {
		got := f.getSlot(t, s.ID)
		require.True(t, got.State.Valid())
		assert.LessOrEqual(t, pending[s.ID], 1)
		if got.State == model.SlotStateReserved {
			reserved++
			assert.Equal(t, 1, pending[s.ID])
		} else {
			assert.Zero(t, pending[s.ID])
		}
	}
	assert.Equal(t, 0, reserved%2)

	// Принимаем всё, что открылось: владельцы меняются строго парами
	for _, u := range users {
		list, err := f.coordinator.ListRequests(ctx, u.ID)
		require.NoError(t, err)
		for _, req := range list.Incoming {
			if req.State == model.SwapStatePending {
				_, err := f.coordinator.Resolve(ctx, req.ID, u.ID, true)
				require.NoError(t, err)
			}
		}
	}

	owners := make(map[uuid.UUID]int)
	for _, s := range slots {
		got := f.getSlot(t, s.ID)
		assert.NotEqual(t, model.SlotStateReserved, got.State)
		owners[got.OwnerID]++
	}
	for _, u := range users {
		assert.Equal(t, 1, owners[u.ID])
	}
	assert.Empty(t, f.pendingBySlot(t))
}

func TestSwapCoordinator_ListRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	a1 := f.slot(t, alice, model.SlotStateOffered)
	b1 := f.slot(t, bob, model.SlotStateOffered)
	c1 := f.slot(t, carol, model.SlotStateOffered)
	a2 := f.slot(t, alice, model.SlotStateOffered)

	out, err := f.coordinator.Open(ctx, alice.ID, a1.ID, b1.ID)
	require.NoError(t, err)
	in, err := f.coordinator.Open(ctx, carol.ID, c1.ID, a2.ID)
	require.NoError(t, err)

	list, err := f.coordinator.ListRequests(ctx, alice.ID)
	require.NoError(t, err)

	require.Len(t, list.Outgoing, 1)
	require.Len(t, list.Incoming, 1)
	assert.Equal(t, out.ID, list.Outgoing[0].ID)
	assert.Equal(t, in.ID, list.Incoming[0].ID)
	require.NotNil(t, list.Incoming[0].CounterpartySlot)
	assert.Equal(t, a2.ID, list.Incoming[0].CounterpartySlot.ID)

	list, err = f.coordinator.ListRequests(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, list.Incoming, 1)
	assert.Empty(t, list.Outgoing)
}
