package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finances/internal/core"
	"finances/internal/notify"
	"finances/internal/storage"
)

//go:generate mockgen -source=finance_service.go -destination=repository_mock.go -package=services

// Repository is the record store the service writes through.
type Repository interface {
	ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	AddCategory(ctx context.Context, name string, kind core.Kind) (int64, error)
	DeleteCategory(ctx context.Context, id int64) error

	AddTransaction(ctx context.Context, p core.TransactionParams) (int64, error)
	UpdateTransaction(ctx context.Context, id int64, p core.TransactionParams) error
	DeleteTransaction(ctx context.Context, id int64) error
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListTransactionsInWindow(ctx context.Context, w core.Window) ([]core.Transaction, error)
}

// Aggregator computes the derived statistics.
type Aggregator interface {
	CategoryTotals(ctx context.Context, kind core.Kind, w *core.Window) ([]core.CategoryStat, error)
	MonthlyTotals(ctx context.Context, q storage.MonthlyQuery) ([]core.PeriodStat, error)
	WeeklyTotals(ctx context.Context, w core.Window) ([]core.PeriodStat, error)
	AvailableYears(ctx context.Context) ([]int, error)
	StatsSummary(ctx context.Context, w core.Window) (core.StatsSummary, error)
}

// FinanceService validates user input, keeps transaction types consistent
// with their categories and announces every committed write.
type FinanceService struct {
	repo   Repository
	stats  Aggregator
	events notify.Publisher
}

func NewFinanceService(repo Repository, stats Aggregator, events notify.Publisher) *FinanceService {
	return &FinanceService{
		repo:   repo,
		stats:  stats,
		events: events,
	}
}

func (s *FinanceService) ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	cats, err := s.repo.ListCategories(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if cats == nil {
		cats = []core.Category{}
	}
	return cats, nil
}

// AddCategory creates a category. Duplicate names are allowed.
func (s *FinanceService) AddCategory(ctx context.Context, name string, kind core.Kind) (core.Category, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateCategory(name, kind); err != nil {
		return core.Category{}, err
	}

	id, err := s.repo.AddCategory(ctx, name, kind)
	if err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}

	s.publish(ctx, notify.EntityCategory, notify.OpCreated, id)
	return core.Category{ID: id, Name: name, Type: kind}, nil
}

// DeleteCategory removes a category following the repository's delete
// policy.
func (s *FinanceService) DeleteCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return core.ErrInvalidIdentifier
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.publish(ctx, notify.EntityCategory, notify.OpDeleted, id)
	return nil
}

// AddTransaction validates p, checks it against its category and stores it.
func (s *FinanceService) AddTransaction(ctx context.Context, p core.TransactionParams) (core.Transaction, error) {
	p.Description = strings.TrimSpace(p.Description)
	p.Date = core.NormalizeTimestamp(p.Date)
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}
	cat, err := s.checkCategory(ctx, p)
	if err != nil {
		return core.Transaction{}, err
	}

	id, err := s.repo.AddTransaction(ctx, p)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	s.publish(ctx, notify.EntityTransaction, notify.OpCreated, id)
	return p.Apply(core.Transaction{ID: id, CategoryName: cat.Name}), nil
}

// UpdateTransaction overwrites transaction id with p.
func (s *FinanceService) UpdateTransaction(ctx context.Context, id int64, p core.TransactionParams) (core.Transaction, error) {
	if id <= 0 {
		return core.Transaction{}, core.ErrInvalidIdentifier
	}
	p.Description = strings.TrimSpace(p.Description)
	p.Date = core.NormalizeTimestamp(p.Date)
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}
	cat, err := s.checkCategory(ctx, p)
	if err != nil {
		return core.Transaction{}, err
	}

	if err := s.repo.UpdateTransaction(ctx, id, p); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publish(ctx, notify.EntityTransaction, notify.OpUpdated, id)
	return p.Apply(core.Transaction{ID: id, CategoryName: cat.Name}), nil
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, id int64) error {
	if id <= 0 {
		return core.ErrInvalidIdentifier
	}
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publish(ctx, notify.EntityTransaction, notify.OpDeleted, id)
	return nil
}

func (s *FinanceService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	if id <= 0 {
		return core.Transaction{}, core.ErrInvalidIdentifier
	}
	t, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions lists all transactions, or only those inside w when it is
// not nil. Newest first.
func (s *FinanceService) ListTransactions(ctx context.Context, w *core.Window) ([]core.Transaction, error) {
	var (
		txs []core.Transaction
		err error
	)
	if w != nil {
		txs, err = s.repo.ListTransactionsInWindow(ctx, *w)
	} else {
		txs, err = s.repo.ListTransactions(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// checkCategory loads the referenced category and rejects a transaction
// whose type differs from it.
func (s *FinanceService) checkCategory(ctx context.Context, p core.TransactionParams) (core.Category, error) {
	cat, err := s.repo.GetCategory(ctx, p.CategoryID)
	if err != nil {
		if errors.Is(err, core.ErrCategoryNotFound) {
			return core.Category{}, fmt.Errorf("category %d: %w", p.CategoryID, core.ErrCategoryNotFound)
		}
		return core.Category{}, fmt.Errorf("load category: %w", err)
	}
	if cat.Type != p.Type {
		return core.Category{}, fmt.Errorf("%w: category %q is %s, transaction is %s",
			core.ErrTypeMismatch, cat.Name, cat.Type, p.Type)
	}
	return cat, nil
}

func (s *FinanceService) publish(ctx context.Context, entity notify.Entity, op notify.Op, id int64) {
	if s.events == nil {
		slog.DebugContext(ctx, "No change publisher configured, skipping event", "entity", entity, "op", op)
		return
	}
	s.events.Publish(ctx, notify.Event{Entity: entity, Op: op, ID: id})
}
