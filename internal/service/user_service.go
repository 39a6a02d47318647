package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService struct {
	store  store.Transactor
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(st store.Transactor, logger *zap.Logger) *UserService {
	return &UserService{
		store:  st,
		logger: logger,
		now:    now,
	}
}

// RegisterUser регистрирует участника с уникальным email
func (s *UserService) RegisterUser(ctx context.Context, name, email string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("register user: name and valid email are required")
	}

	user := &model.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		CreatedAt: s.now(),
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("check existing user: %w", err)
		}

		if existing != nil {
			return fmt.Errorf("register %s: %w", email, ErrEmailTaken)
		}

		if err := tx.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		return nil
	})

	if errors.Is(err, store.ErrDuplicateKey) {
		return nil, fmt.Errorf("register %s: %w", email, ErrEmailTaken)
	}

	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("New user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", email),
	)

	return user, nil
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.get(ctx, func(ctx context.Context, users store.UserStore) (*model.User, error) {
		return users.GetByID(ctx, id)
	})
}

// GetByEmail получает пользователя по email
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.get(ctx, func(ctx context.Context, users store.UserStore) (*model.User, error) {
		return users.GetByEmail(ctx, email)
	})
}

func (s *UserService) get(ctx context.Context, find func(context.Context, store.UserStore) (*model.User, error)) (*model.User, error) {
	var user *model.User

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		user, err = find(ctx, tx.Users())
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		if user == nil {
			return fmt.Errorf("user: %w", ErrNotFound)
		}

		return nil
	})

	if err != nil {
		return nil, storeError(err)
	}

	return user, nil
}
