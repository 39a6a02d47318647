package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/google/uuid"
)

type userStore struct {
	rows *tableTx[model.User]
}

func (s *userStore) Create(_ context.Context, user *model.User) error {
	for _, u := range s.rows.all() {
		if u.ID == user.ID || strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("create user: %w", store.ErrDuplicateKey)
		}
	}
	s.rows.put(user.ID, *user)
	return nil
}

func (s *userStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := s.rows.get(id)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range s.rows.all() {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}
