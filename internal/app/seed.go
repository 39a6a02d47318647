package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/service"
	"go.uber.org/zap"
)

type seedSlot struct {
	title  string
	dayOff int
	hour   int
	state  model.SlotState
}

type seedUser struct {
	name  string
	email string
	slots []seedSlot
}

var demoUsers = []seedUser{
	{
		name:  "Alice Johnson",
		email: "alice@example.com",
		slots: []seedSlot{
			{title: "Team Meeting", dayOff: 1, hour: 10, state: model.SlotStateOffered},
			{title: "Lunch with friend", dayOff: 1, hour: 12, state: model.SlotStateOccupied},
		},
	},
	{
		name:  "Bob Smith",
		email: "bob@example.com",
		slots: []seedSlot{
			{title: "Project Review", dayOff: 1, hour: 14, state: model.SlotStateOffered},
		},
	},
	{
		name:  "Carol White",
		email: "carol@example.com",
		slots: []seedSlot{
			{title: "Doctor Appointment", dayOff: 2, hour: 9, state: model.SlotStateOffered},
		},
	},
}

// Seed создаёт демонстрационных участников и их часовые слоты относительно now.
// Уже зарегистрированные участники пропускаются вместе со своими слотами.
func Seed(ctx context.Context, users *service.UserService, slots *service.SlotService, now time.Time, logger *zap.Logger) ([]*model.User, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var created []*model.User
	for _, su := range demoUsers {
		user, err := users.RegisterUser(ctx, su.name, su.email)
		if errors.Is(err, service.ErrEmailTaken) {
			logger.Info("Seed user already exists", zap.String("email", su.email))
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed user %s: %w", su.email, err)
		}

		for _, ss := range su.slots {
			start := today.AddDate(0, 0, ss.dayOff).Add(time.Duration(ss.hour) * time.Hour)
			if _, err := slots.CreateSlot(ctx, user.ID, ss.title, start, start.Add(time.Hour), ss.state); err != nil {
				return created, fmt.Errorf("seed slot %q: %w", ss.title, err)
			}
		}

		created = append(created, user)
	}

	logger.Info("Seeding completed", zap.Int("users", len(created)))
	return created, nil
}
