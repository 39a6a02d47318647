package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Freeeeeet/slot_swap/internal/controller/handlers"
	"go.uber.org/zap"
)

// ErrUnknownCommand возвращается для команды без обработчика
var ErrUnknownCommand = errors.New("unknown command")

// Controller сопоставляет команды swapctl их обработчикам
type Controller struct {
	handlers *handlers.Handlers
	routes   map[string]handlers.HandlerFunc
	logger   *zap.Logger
}

func NewController(h *handlers.Handlers, logger *zap.Logger) *Controller {
	return &Controller{
		handlers: h,
		routes:   make(map[string]handlers.HandlerFunc),
		logger:   logger,
	}
}

// RegisterHandler связывает команду из одного или двух слов с обработчиком
func (c *Controller) RegisterHandler(command string, fn handlers.HandlerFunc) {
	c.routes[command] = fn
}

// RegisterHandlers регистрирует все обработчики команд
func (c *Controller) RegisterHandlers() {
	c.RegisterHandler("seed", c.handlers.HandleSeed)
	c.RegisterHandler("audit", c.handlers.HandleAudit)

	// Участники
	c.RegisterHandler("user add", c.handlers.HandleUserAdd)
	c.RegisterHandler("user show", c.handlers.HandleUserShow)

	// Слоты
	c.RegisterHandler("slot add", c.handlers.HandleSlotAdd)
	c.RegisterHandler("slot edit", c.handlers.HandleSlotEdit)
	c.RegisterHandler("slot offer", c.handlers.HandleSlotOffer)
	c.RegisterHandler("slot withdraw", c.handlers.HandleSlotWithdraw)
	c.RegisterHandler("slot rm", c.handlers.HandleSlotRemove)
	c.RegisterHandler("slot ls", c.handlers.HandleSlotList)

	// Обмены
	c.RegisterHandler("swap open", c.handlers.HandleSwapOpen)
	c.RegisterHandler("swap accept", c.handlers.HandleSwapAccept)
	c.RegisterHandler("swap reject", c.handlers.HandleSwapReject)
	c.RegisterHandler("swap show", c.handlers.HandleSwapShow)
	c.RegisterHandler("swap ls", c.handlers.HandleSwapList)
}

// Dispatch находит обработчик по первым словам args и передаёт ему остаток
func (c *Controller) Dispatch(ctx context.Context, args []string) error {
	if len(args) >= 2 {
		if fn, ok := c.routes[args[0]+" "+args[1]]; ok {
			return c.run(ctx, args[0]+" "+args[1], fn, args[2:])
		}
	}

	if len(args) >= 1 {
		if fn, ok := c.routes[args[0]]; ok {
			return c.run(ctx, args[0], fn, args[1:])
		}
	}

	return fmt.Errorf("%w: %q", ErrUnknownCommand, strings.Join(args, " "))
}

func (c *Controller) run(ctx context.Context, command string, fn handlers.HandlerFunc, args []string) error {
	c.logger.Debug("Running command", zap.String("command", command))

	if err := fn(ctx, args); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}

// Commands возвращает зарегистрированные команды по алфавиту
func (c *Controller) Commands() []string {
	commands := make([]string, 0, len(c.routes))
	for command := range c.routes {
		commands = append(commands, command)
	}
	sort.Strings(commands)
	return commands
}
