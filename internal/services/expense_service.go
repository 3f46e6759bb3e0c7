package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"expensedash/internal/amqp"
	"expensedash/internal/core"
	"expensedash/internal/log"
	"expensedash/internal/report"
)

// ExpenseStore is the persistence the service needs. Every call is scoped
// to the caller.
type ExpenseStore interface {
	InsertExpense(ctx context.Context, username string, in core.ExpenseInput) (core.Expense, error)
	ListExpenses(ctx context.Context, caller core.Caller) ([]core.Expense, error)
	GetExpense(ctx context.Context, caller core.Caller, id int64) (core.Expense, bool, error)
	UpdateExpense(ctx context.Context, caller core.Caller, id int64, in core.ExpenseInput) (bool, error)
	DeleteExpense(ctx context.Context, caller core.Caller, id int64) (owner string, found bool, err error)
}

// EventPublisher announces expense changes. It may be nil.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// SummaryCache memoises per-scope summaries. It may be nil.
type SummaryCache interface {
	Get(key string) (core.Summary, bool)
	Set(key string, s core.Summary)
	Delete(key string)
	Clear()
}

// Summary cache keys. User keys carry a prefix so no username can collide
// with the admin scope.
const (
	allScope   = "all"
	userPrefix = "user:"
)

// ExpenseService orchestrates expense operations across SQLite, the summary
// cache and AMQP.
type ExpenseService struct {
	store     ExpenseStore
	publisher EventPublisher
	summaries SummaryCache
	logger    *log.Logger
	events    *log.StructuredLogger

	// genMu orders summary stores against invalidations. epoch moves on
	// admin writes, gens per scope on user writes.
	genMu sync.Mutex
	epoch uint64
	gens  map[string]uint64
}

func NewExpenseService(store ExpenseStore, publisher EventPublisher, summaries SummaryCache, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentExpense)
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		summaries: summaries,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		gens:      make(map[string]uint64),
	}
}

// Add stores a new expense owned by the caller.
func (s *ExpenseService) Add(ctx context.Context, caller core.Caller, in core.ExpenseInput) (core.Expense, error) {
	if caller.Username == "" {
		return core.Expense{}, core.ErrEmptyUsername
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	e, err := s.store.InsertExpense(ctx, caller.Username, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.changed(ctx, caller, amqp.OpCreated, e)
	return e, nil
}

// List returns every expense the caller may see, in insertion order.
func (s *ExpenseService) List(ctx context.Context, caller core.Caller) ([]core.Expense, error) {
	rows, err := s.store.ListExpenses(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return rows, nil
}

// Get returns one expense, or core.ErrNotFound when it is missing or owned
// by someone else.
func (s *ExpenseService) Get(ctx context.Context, caller core.Caller, id int64) (core.Expense, error) {
	e, found, err := s.store.GetExpense(ctx, caller, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if !found {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

// Update overwrites date, category, amount and description. The id and
// owner never change.
func (s *ExpenseService) Update(ctx context.Context, caller core.Caller, id int64, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	found, err := s.store.UpdateExpense(ctx, caller, id, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if !found {
		return core.Expense{}, core.ErrNotFound
	}

	e, err := s.Get(ctx, caller, id)
	if err != nil {
		return core.Expense{}, err
	}
	s.changed(ctx, caller, amqp.OpUpdated, e)
	return e, nil
}

// Delete removes an expense the caller may modify.
func (s *ExpenseService) Delete(ctx context.Context, caller core.Caller, id int64) error {
	owner, found, err := s.store.DeleteExpense(ctx, caller, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if !found {
		return core.ErrNotFound
	}

	s.changed(ctx, caller, amqp.OpDeleted, core.Expense{ID: id, Username: owner})
	return nil
}

// Summary aggregates the caller's visible expenses. A summary computed
// while a write to the same scope landed is returned but not cached.
func (s *ExpenseService) Summary(ctx context.Context, caller core.Caller) (core.Summary, error) {
	key := scopeKey(caller)
	if s.summaries != nil {
		if sum, ok := s.summaries.Get(key); ok {
			return sum, nil
		}
	}

	epoch, gen := s.generation(key)
	rows, err := s.List(ctx, caller)
	if err != nil {
		return core.Summary{}, err
	}
	sum := report.Summarize(rows)
	if s.summaries != nil {
		s.genMu.Lock()
		if s.epoch == epoch && s.gens[key] == gen {
			s.summaries.Set(key, sum)
		}
		s.genMu.Unlock()
	}
	return sum, nil
}

func (s *ExpenseService) generation(key string) (epoch, gen uint64) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.epoch, s.gens[key]
}

// invalidate drops the summaries a write by caller affects. The owner of the
// row is the user scope that changed.
func (s *ExpenseService) invalidate(caller core.Caller, owner string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if caller.IsAdmin {
		s.epoch++
		if s.summaries != nil {
			s.summaries.Clear()
		}
		return
	}
	for _, key := range []string{userPrefix + owner, allScope} {
		s.gens[key]++
		if s.summaries != nil {
			s.summaries.Delete(key)
		}
	}
}

// changed runs the side effects of a successful mutation. Neither cache
// invalidation nor publishing can fail the request.
func (s *ExpenseService) changed(ctx context.Context, caller core.Caller, op string, e core.Expense) {
	s.invalidate(caller, e.Username)

	var lop string
	switch op {
	case amqp.OpCreated:
		lop = log.OpCreate
	case amqp.OpUpdated:
		lop = log.OpUpdate
	default:
		lop = log.OpDelete
	}
	s.events.LogExpenseChange(ctx, lop, e.Username, e.ID, e.Date.String(), string(e.Category), e.Amount.String())

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping expense event")
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(op, e.ID, e.Username)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldExpenseID, e.ID, log.FieldError, err)
	}
}

func scopeKey(caller core.Caller) string {
	if caller.IsAdmin {
		return allScope
	}
	return userPrefix + caller.Username
}

// IsNotFound reports whether err means the expense is absent or hidden.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
