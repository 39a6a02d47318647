package handlers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

type auditOutput struct {
	ReservedSlots   int      `json:"reserved_slots"`
	PendingRequests int      `json:"pending_requests"`
	Violations      []string `json:"violations"`
}

// ErrAuditViolations возвращается, если проверка нашла нарушения
var ErrAuditViolations = errors.New("swap invariants violated")

// HandleAudit проверяет согласованность слотов и заявок.
// С --watch проверка повторяется с интервалом аудитора до отмены ctx.
func (h *Handlers) HandleAudit(ctx context.Context, args []string) error {
	fs := newFlagSet("audit")
	watch := fs.Bool("watch", false, "keep auditing periodically until interrupted")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *watch {
		h.auditor.Start(ctx)
		<-ctx.Done()
		h.auditor.Stop()
		return nil
	}

	report, err := h.auditor.Audit(ctx)
	if err != nil {
		return err
	}

	out := auditOutput{
		ReservedSlots:   report.ReservedSlots,
		PendingRequests: report.PendingRequests,
		Violations:      []string{},
	}
	for _, v := range multierr.Errors(report.Violations) {
		out.Violations = append(out.Violations, v.Error())
	}

	if err := h.writeJSON(out); err != nil {
		return err
	}

	if !report.Ok() {
		return fmt.Errorf("%w: %d found", ErrAuditViolations, len(out.Violations))
	}
	return nil
}
