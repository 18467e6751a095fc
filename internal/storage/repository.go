package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finances/internal/core"
	"finances/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the record repository and statistics aggregator over
// the embedded database.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	policy  core.DeletePolicy
}

// Option customizes a repository at construction time.
type Option func(*SQLiteRepository)

// WithDeletePolicy selects how DeleteCategory treats referencing transactions.
func WithDeletePolicy(p core.DeletePolicy) Option {
	return func(r *SQLiteRepository) {
		r.policy = p
	}
}

// NewSQLiteRepository opens the database at dbPath and ensures its schema.
// Any error here means storage is unusable.
func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; keep one connection so statements queue
	// in the pool instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		policy:  core.PolicyRestrict,
	}
	for _, opt := range opts {
		opt(repo)
	}

	return repo, nil
}

func dsn(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database still answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// DeletePolicy returns the policy DeleteCategory applies.
func (r *SQLiteRepository) DeletePolicy() core.DeletePolicy {
	return r.policy
}

// ListCategories returns every category of the given type.
func (r *SQLiteRepository) ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	rows, err := r.queries.ListCategoriesByType(ctx, kind.String())
	if err != nil {
		return nil, fmt.Errorf("list categories (type=%s): %w", kind, err)
	}

	categories := make([]core.Category, len(rows))
	for i, c := range rows {
		categories[i] = toCoreCategory(c)
	}
	return categories, nil
}

// GetCategory returns a category or core.ErrCategoryNotFound.
func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, core.ErrCategoryNotFound
		}
		return core.Category{}, fmt.Errorf("get category by id: %w", err)
	}
	return toCoreCategory(c), nil
}

// CountCategories returns the number of stored categories.
func (r *SQLiteRepository) CountCategories(ctx context.Context) (int64, error) {
	n, err := r.queries.CountCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// AddCategory inserts a category and returns its id. Names are not unique.
func (r *SQLiteRepository) AddCategory(ctx context.Context, name string, kind core.Kind) (int64, error) {
	id, err := r.queries.CreateCategory(ctx, name, kind.String())
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category saved to SQLite",
		"id", id,
		"name", name,
		"type", kind)

	return id, nil
}

// DeleteCategory removes a category according to the repository's delete
// policy. Deleting an unknown id is not an error.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	var removed int64

	switch r.policy {
	case core.PolicyRestrict:
		n, err := q.CountTransactionsByCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("count category transactions: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: category %d has %d transactions", core.ErrCategoryInUse, id, n)
		}
	case core.PolicyCascade:
		removed, err = q.DeleteTransactionsByCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("delete category transactions: %w", err)
		}
	case core.PolicyOrphan:
	default:
		return fmt.Errorf("%w: %q", core.ErrInvalidPolicy, r.policy)
	}

	if err := q.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted",
		log.FieldOperation, log.OpDelete,
		"id", id,
		"policy", r.policy,
		"transactions_removed", removed)

	return nil
}

// AddTransaction inserts a transaction and returns its id.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, p core.TransactionParams) (int64, error) {
	id, err := r.queries.CreateTransaction(ctx, toParams(p))
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	return id, nil
}

// UpdateTransaction overwrites every field of transaction id. It returns
// core.ErrTransactionNotFound when no row has that id.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, p core.TransactionParams) error {
	n, err := r.queries.UpdateTransaction(ctx, id, toParams(p))
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update transaction %d: %w", id, core.ErrTransactionNotFound)
	}

	return nil
}

// DeleteTransaction removes transaction id; unknown ids are ignored.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	if err := r.queries.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", log.FieldOperation, log.OpDelete, "id", id)
	return nil
}

// GetTransaction returns a transaction or core.ErrTransactionNotFound.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, core.ErrTransactionNotFound
		}
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return toCoreTransaction(row)
}

// ListTransactions returns all transactions, newest first, with their
// category name.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toCoreTransactions(rows)
}

// ListTransactionsInWindow is ListTransactions restricted to window w.
func (r *SQLiteRepository) ListTransactionsInWindow(ctx context.Context, w core.Window) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsInWindow(ctx, w.StartKey(), w.EndKey())
	if err != nil {
		return nil, fmt.Errorf("list transactions (window=%s): %w", w, err)
	}
	return toCoreTransactions(rows)
}

func toParams(p core.TransactionParams) TransactionParams {
	return TransactionParams{
		Amount:      core.AmountToFloat(p.Amount),
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Type:        p.Type.String(),
		Date:        core.FormatTimestamp(p.Date),
	}
}

func toCoreCategory(c Category) core.Category {
	return core.Category{ID: c.ID, Name: c.Name, Type: core.Kind(c.Type)}
}

func toCoreTransaction(t Transaction) (core.Transaction, error) {
	date, err := core.ParseTimestamp(t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	return core.Transaction{
		ID:           t.ID,
		Amount:       core.AmountFromFloat(t.Amount),
		Description:  t.Description,
		CategoryID:   t.CategoryID,
		CategoryName: t.CategoryName.String,
		Type:         core.Kind(t.Type),
		Date:         date,
	}, nil
}

func toCoreTransactions(rows []Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toCoreTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
