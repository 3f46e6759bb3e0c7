package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensedash/internal/amqp"
	"expensedash/internal/core"
	"expensedash/internal/log"
	"expensedash/internal/report"
	"expensedash/internal/sheets"
)

// ExpenseLister is the read side the worker mirrors from.
type ExpenseLister interface {
	ListExpenses(ctx context.Context, caller core.Caller) ([]core.Expense, error)
}

// MirrorWorker keeps a spreadsheet copy of the expenses table. Every change
// event rewrites the whole sheet from the database, so a lost or repeated
// event is healed by the next one or by the periodic resync.
type MirrorWorker struct {
	source ExpenseLister
	mirror sheets.Mirror
	reader core.Caller
	logger *log.Logger

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

func NewMirrorWorker(source ExpenseLister, mirror sheets.Mirror, adminUsername string, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		source: source,
		mirror: mirror,
		reader: core.Caller{Username: adminUsername, IsAdmin: true},
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single expense event from AMQP.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		log.FieldOperation, ev.Op,
		log.FieldExpenseID, ev.ID,
		log.FieldUsername, ev.Username)

	return w.Resync(ctx)
}

// Resync replaces the sheet contents with every expense in id order.
func (w *MirrorWorker) Resync(ctx context.Context) error {
	rows, err := w.source.ListExpenses(ctx, w.reader)
	if err == nil {
		err = w.mirror.ReplaceAll(ctx, report.Columns(true), report.Rows(rows, true))
		if err != nil {
			err = fmt.Errorf("replace sheet contents: %w", err)
		}
	} else {
		err = fmt.Errorf("list expenses: %w", err)
	}

	w.mu.Lock()
	w.lastRun = time.Now()
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		w.logger.ErrorContext(ctx, "Sheet resync failed", log.FieldOperation, log.OpSync, log.FieldError, err)
		return err
	}

	w.logger.InfoContext(ctx, "Sheet resynced", log.FieldOperation, log.OpSync, log.FieldRows, len(rows))
	return nil
}

// RunPeriodic resyncs every interval until ctx is done. It is the backup for
// events lost while the worker was down.
func (w *MirrorWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Logged by Resync; a failed tick is retried on the next one.
			_ = w.Resync(ctx)
		}
	}
}

// LastResult reports when the last resync ran and how it ended.
func (w *MirrorWorker) LastResult() (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.lastErr
}
