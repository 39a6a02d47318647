package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/store"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// AuditReport результат одной проверки согласованности слотов и заявок
type AuditReport struct {
	ReservedSlots   int   `json:"reserved_slots"`
	PendingRequests int   `json:"pending_requests"`
	Violations      error `json:"-"`
}

// Ok возвращает true, если нарушений нет
func (r *AuditReport) Ok() bool {
	return r.Violations == nil
}

// Auditor периодически проверяет, что каждый reserved слот удерживается ровно одной
// pending заявкой, а каждая pending заявка держит оба своих слота в reserved
type Auditor struct {
	store    store.Transactor
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewAuditor создаёт новый аудитор
func NewAuditor(st store.Transactor, interval time.Duration, logger *zap.Logger) *Auditor {
	return &Auditor{
		store:    st,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает периодическую проверку в фоне
func (a *Auditor) Start(ctx context.Context) {
	a.logger.Info("Starting swap auditor", zap.Duration("interval", a.interval))

	a.wg.Add(1)
	go a.run(ctx)
}

// Stop останавливает фоновую проверку и ждёт её завершения
func (a *Auditor) Stop() {
	a.logger.Info("Stopping swap auditor")
	close(a.stopChan)
	a.wg.Wait()
}

func (a *Auditor) run(ctx context.Context) {
	defer a.wg.Done()

	a.check(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.check(ctx)
		case <-a.stopChan:
			a.logger.Info("Swap auditor stopped")
			return
		case <-ctx.Done():
			a.logger.Info("Swap auditor cancelled")
			return
		}
	}
}

func (a *Auditor) check(ctx context.Context) {
	report, err := a.Audit(ctx)
	if err != nil {
		a.logger.Error("Swap audit failed", zap.Error(err))
		return
	}

	for _, v := range multierr.Errors(report.Violations) {
		a.logger.Error("Swap invariant violated", zap.Error(v))
	}

	a.logger.Debug("Swap audit completed",
		zap.Int("reserved_slots", report.ReservedSlots),
		zap.Int("pending_requests", report.PendingRequests),
	)
}

// Audit выполняет одну проверку в отдельной транзакции
func (a *Auditor) Audit(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{}

	err := a.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		reserved, err := tx.Slots().GetByState(ctx, model.SlotStateReserved)
		if err != nil {
			return fmt.Errorf("get reserved slots: %w", err)
		}

		pending, err := tx.SwapRequests().GetPending(ctx)
		if err != nil {
			return fmt.Errorf("get pending requests: %w", err)
		}

		report.ReservedSlots = len(reserved)
		report.PendingRequests = len(pending)
		report.Violations = nil

		holders := make(map[uuid.UUID][]uuid.UUID)
		for _, req := range pending {
			holders[req.InitiatorSlotID] = append(holders[req.InitiatorSlotID], req.ID)
			holders[req.CounterpartySlotID] = append(holders[req.CounterpartySlotID], req.ID)
		}

		reservedSet := make(map[uuid.UUID]bool, len(reserved))
		for _, slot := range reserved {
			reservedSet[slot.ID] = true
			if len(holders[slot.ID]) == 0 {
				report.Violations = multierr.Append(report.Violations,
					fmt.Errorf("slot %s is reserved without a pending request", slot.ID))
			}
		}

		for slotID, reqs := range holders {
			if len(reqs) > 1 {
				report.Violations = multierr.Append(report.Violations,
					fmt.Errorf("slot %s is held by %d pending requests", slotID, len(reqs)))
			}
			if !reservedSet[slotID] {
				report.Violations = multierr.Append(report.Violations,
					fmt.Errorf("slot %s is held by pending request %s but is not reserved", slotID, reqs[0]))
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	return report, nil
}
