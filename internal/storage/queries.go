package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the parameterized statements issued against the database.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Category is a row of the categories table.
type Category struct {
	ID   int64
	Name string
	Type string
}

// Transaction is a row of the transactions table, optionally joined with the
// category name.
type Transaction struct {
	ID           int64
	Amount       float64
	Description  string
	CategoryID   int64
	Type         string
	Date         string
	CategoryName sql.NullString
}

type scanner interface {
	Scan(dest ...any) error
}

const listCategoriesByType = `SELECT id, name, type FROM categories WHERE type = ? ORDER BY id`

func (q *Queries) ListCategoriesByType(ctx context.Context, typ string) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategoriesByType, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getCategory = `SELECT id, name, type FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, getCategory, id).Scan(&c.ID, &c.Name, &c.Type)
	return c, err
}

const countCategories = `SELECT COUNT(*) FROM categories`

func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCategories).Scan(&n)
	return n, err
}

const createCategory = `INSERT INTO categories (name, type) VALUES (?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, name, typ string) (int64, error) {
	res, err := q.db.ExecContext(ctx, createCategory, name, typ)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteCategory, id)
	return err
}

const countTransactionsByCategory = `SELECT COUNT(*) FROM transactions WHERE category_id = ?`

func (q *Queries) CountTransactionsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactionsByCategory, categoryID).Scan(&n)
	return n, err
}

const deleteTransactionsByCategory = `DELETE FROM transactions WHERE category_id = ?`

func (q *Queries) DeleteTransactionsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransactionsByCategory, categoryID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type TransactionParams struct {
	Amount      float64
	Description string
	CategoryID  int64
	Type        string
	Date        string
}

const createTransaction = `INSERT INTO transactions (amount, description, category_id, type, date) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg TransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTransaction,
		arg.Amount, arg.Description, arg.CategoryID, arg.Type, arg.Date)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const updateTransaction = `UPDATE transactions
SET amount = ?, description = ?, category_id = ?, type = ?, date = ?
WHERE id = ?`

// UpdateTransaction overwrites every column of row id and returns the number
// of rows affected.
func (q *Queries) UpdateTransaction(ctx context.Context, id int64, arg TransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Amount, arg.Description, arg.CategoryID, arg.Type, arg.Date, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id)
	return err
}

const getTransaction = `SELECT id, amount, description, category_id, type, date FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	var t Transaction
	err := q.db.QueryRowContext(ctx, getTransaction, id).Scan(
		&t.ID, &t.Amount, &t.Description, &t.CategoryID, &t.Type, &t.Date)
	return t, err
}

// Orphaned transactions keep showing up with a NULL category name.
const listTransactions = `SELECT t.id, t.amount, t.description, t.category_id, t.type, t.date, c.name
FROM transactions t
LEFT JOIN categories c ON t.category_id = c.id
ORDER BY t.date DESC, t.id ASC`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listTransactionsInWindow = `SELECT t.id, t.amount, t.description, t.category_id, t.type, t.date, c.name
FROM transactions t
LEFT JOIN categories c ON t.category_id = c.id
WHERE date(t.date) BETWEEN ? AND ?
ORDER BY t.date DESC, t.id ASC`

func (q *Queries) ListTransactionsInWindow(ctx context.Context, start, end string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsInWindow, start, end)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()

	var items []Transaction
	for rows.Next() {
		t, err := scanJoinedTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func scanJoinedTransaction(s scanner) (Transaction, error) {
	var t Transaction
	err := s.Scan(&t.ID, &t.Amount, &t.Description, &t.CategoryID, &t.Type, &t.Date, &t.CategoryName)
	return t, err
}
