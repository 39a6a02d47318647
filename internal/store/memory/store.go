// Package memory реализует store.Transactor в памяти процесса.
//
// Транзакции оптимистичные: чтения запоминают версию строки, записи копятся в буфере
// транзакции. При коммите под мьютексом хранилища проверяется, что ни одна прочитанная
// строка (и ни одна просканированная таблица) не изменилась, после чего записи
// применяются разом. Иначе коммит возвращает store.ErrConflict и ничего не пишет.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/google/uuid"
)

// Store хранилище пользователей, слотов и заявок
type Store struct {
	mu       sync.Mutex
	version  uint64
	users    *table[model.User]
	slots    *table[model.Slot]
	requests *table[model.SwapRequest]
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{
		users:    newTable[model.User](),
		slots:    newTable[model.Slot](),
		requests: newTable[model.SwapRequest](),
	}
}

// InTx выполняет fn в транзакции и коммитит её, если fn вернула nil
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	t := &tx{
		users:    newTableTx(s, s.users),
		slots:    newTableTx(s, s.slots),
		requests: newTableTx(s, s.requests),
	}

	if err := fn(ctx, t); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !t.users.valid() || !t.slots.valid() || !t.requests.valid() {
		return fmt.Errorf("commit transaction: %w", store.ErrConflict)
	}

	t.users.apply(s.nextVersion)
	t.slots.apply(s.nextVersion)
	t.requests.apply(s.nextVersion)

	return nil
}

// nextVersion вызывается под s.mu
func (s *Store) nextVersion() uint64 {
	s.version++
	return s.version
}

type tx struct {
	users    *tableTx[model.User]
	slots    *tableTx[model.Slot]
	requests *tableTx[model.SwapRequest]
}

func (t *tx) Users() store.UserStore {
	return &userStore{rows: t.users}
}

func (t *tx) Slots() store.SlotStore {
	return &slotStore{rows: t.slots}
}

func (t *tx) SwapRequests() store.SwapRequestStore {
	return &swapRequestStore{rows: t.requests}
}

type row[T any] struct {
	value   T
	version uint64
}

type table[T any] struct {
	rows    map[uuid.UUID]*row[T]
	version uint64 // версия последней записи в таблицу
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[uuid.UUID]*row[T])}
}

// tableTx представление таблицы внутри одной транзакции
type tableTx[T any] struct {
	s   *Store
	src *table[T]

	reads   map[uuid.UUID]uint64 // 0 = строки не было
	scanned bool
	scanVer uint64
	writes  map[uuid.UUID]*T // nil = удаление
	order   []uuid.UUID
}

func newTableTx[T any](s *Store, src *table[T]) *tableTx[T] {
	return &tableTx[T]{
		s:      s,
		src:    src,
		reads:  make(map[uuid.UUID]uint64),
		writes: make(map[uuid.UUID]*T),
	}
}

// get возвращает копию строки с учётом собственных записей транзакции
func (t *tableTx[T]) get(id uuid.UUID) (T, bool) {
	var zero T

	if w, ok := t.writes[id]; ok {
		if w == nil {
			return zero, false
		}
		return *w, true
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	r, ok := t.src.rows[id]
	if !ok {
		if _, seen := t.reads[id]; !seen {
			t.reads[id] = 0
		}
		return zero, false
	}

	if _, seen := t.reads[id]; !seen {
		t.reads[id] = r.version
	}
	return r.value, true
}

// all возвращает копии всех строк таблицы и помечает таблицу как просканированную
func (t *tableTx[T]) all() []T {
	t.s.mu.Lock()
	if !t.scanned {
		t.scanned = true
		t.scanVer = t.src.version
	}
	merged := make(map[uuid.UUID]T, len(t.src.rows))
	for id, r := range t.src.rows {
		merged[id] = r.value
	}
	t.s.mu.Unlock()

	for id, w := range t.writes {
		if w == nil {
			delete(merged, id)
			continue
		}
		merged[id] = *w
	}

	result := make([]T, 0, len(merged))
	for _, v := range merged {
		result = append(result, v)
	}
	return result
}

func (t *tableTx[T]) put(id uuid.UUID, v T) {
	if _, ok := t.writes[id]; !ok {
		t.order = append(t.order, id)
	}
	t.writes[id] = &v
}

func (t *tableTx[T]) del(id uuid.UUID) {
	if _, ok := t.writes[id]; !ok {
		t.order = append(t.order, id)
	}
	t.writes[id] = nil
}

// valid вызывается под s.mu
func (t *tableTx[T]) valid() bool {
	if t.scanned && t.src.version != t.scanVer {
		return false
	}
	for id, ver := range t.reads {
		r, ok := t.src.rows[id]
		switch {
		case !ok && ver != 0:
			return false
		case ok && r.version != ver:
			return false
		}
	}
	return true
}

// apply вызывается под s.mu
func (t *tableTx[T]) apply(next func() uint64) {
	for _, id := range t.order {
		ver := next()
		w := t.writes[id]
		if w == nil {
			delete(t.src.rows, id)
		} else {
			t.src.rows[id] = &row[T]{value: *w, version: ver}
		}
		t.src.version = ver
	}
}
