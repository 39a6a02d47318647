package handlers

import (
	"context"
	"io"

	"github.com/Freeeeeet/slot_swap/internal/app"
	"github.com/Freeeeeet/slot_swap/internal/service"
	"go.uber.org/zap"
)

// HandlerFunc обрабатывает одну команду. args содержит всё после имени команды.
type HandlerFunc func(ctx context.Context, args []string) error

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService *service.UserService
	slotService *service.SlotService
	coordinator *service.SwapCoordinator
	auditor     *app.Auditor
	retries     uint64
	out         io.Writer
	logger      *zap.Logger
}

// NewHandlers создаёт новый обработчик команд. Результаты пишутся в out как JSON.
func NewHandlers(
	userService *service.UserService,
	slotService *service.SlotService,
	coordinator *service.SwapCoordinator,
	auditor *app.Auditor,
	retries uint64,
	out io.Writer,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		userService: userService,
		slotService: slotService,
		coordinator: coordinator,
		auditor:     auditor,
		retries:     retries,
		out:         out,
		logger:      logger,
	}
}
