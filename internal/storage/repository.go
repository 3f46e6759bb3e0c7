package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expensedash/internal/core"
)

const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

type SQLiteRepository struct {
	db   *sql.DB
	path string
}

// NewSQLiteRepository opens (creating if needed) the database file at dbPath
// and applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (r *SQLiteRepository) Path() string { return r.path }

// Ping checks the connection is usable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetUser looks up a user by exact username.
func (r *SQLiteRepository) GetUser(ctx context.Context, username string) (core.User, bool, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password FROM users WHERE username = ?`, username,
	).Scan(&u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, false, nil
	}
	if err != nil {
		return core.User{}, false, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, true, nil
}

// CreateUser inserts a new user; a taken username yields core.ErrDuplicateUser.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password) VALUES (?, ?)`, u.Username, u.PasswordHash)
	if isConstraintViolation(err) {
		return core.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("create user %q: %w", u.Username, err)
	}
	slog.InfoContext(ctx, "User created", "component", "storage", "username", u.Username)
	return nil
}

// UpdatePasswordHash replaces the stored hash for username.
func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password = ? WHERE username = ?`, hash, username)
	if err != nil {
		return fmt.Errorf("update password for %q: %w", username, err)
	}
	return nil
}

// CountUsers returns the number of registered accounts.
func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// InsertExpense stores a new expense owned by username and returns it with
// its assigned id.
func (r *SQLiteRepository) InsertExpense(ctx context.Context, username string, in core.ExpenseInput) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (username, expense_date, category, amount, description)
		 VALUES (?, ?, ?, ?, ?)`,
		username, in.Date.String(), string(in.Category), in.Amount.InexactFloat64(), nullString(in.Description))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("read expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"component", "storage",
		"id", id,
		"username", username,
		"category", in.Category,
		"amount", in.Amount.String(),
		"date", in.Date.String())

	return core.Expense{
		ID:          id,
		Username:    username,
		Date:        in.Date,
		Category:    in.Category,
		Amount:      in.Amount,
		Description: in.Description,
	}, nil
}

const selectExpense = `SELECT id, username, expense_date, category, amount, description FROM expenses`

// ListExpenses returns the rows visible to caller in insertion order.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, caller core.Caller) ([]core.Expense, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if caller.IsAdmin {
		rows, err = r.db.QueryContext(ctx, selectExpense+` ORDER BY id`)
	} else {
		rows, err = r.db.QueryContext(ctx, selectExpense+` WHERE username = ? ORDER BY id`, caller.Username)
	}
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// GetExpense returns the expense with id if caller may see it.
func (r *SQLiteRepository) GetExpense(ctx context.Context, caller core.Caller, id int64) (core.Expense, bool, error) {
	row := r.db.QueryRowContext(ctx,
		selectExpense+` WHERE id = ? AND (? OR username = ?)`, id, caller.IsAdmin, caller.Username)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, false, nil
	}
	if err != nil {
		return core.Expense{}, false, err
	}
	return e, true, nil
}

// UpdateExpense overwrites the editable fields of a row caller may modify.
// found is false when no such row exists.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, caller core.Caller, id int64, in core.ExpenseInput) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET expense_date = ?, category = ?, amount = ?, description = ?
		 WHERE id = ? AND (? OR username = ?)`,
		in.Date.String(), string(in.Category), in.Amount.InexactFloat64(), nullString(in.Description),
		id, caller.IsAdmin, caller.Username)
	if err != nil {
		return false, fmt.Errorf("update expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update expense %d: %w", id, err)
	}
	return n > 0, nil
}

// DeleteExpense removes a row caller may modify and reports its owner.
// found is false when no such row exists.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, caller core.Caller, id int64) (owner string, found bool, err error) {
	err = r.db.QueryRowContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND (? OR username = ?) RETURNING username`,
		id, caller.IsAdmin, caller.Username,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("delete expense %d: %w", id, err)
	}
	return owner, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e        core.Expense
		date     sqlDate
		category string
		amount   float64
		desc     sql.NullString
	)
	if err := s.Scan(&e.ID, &e.Username, &date, &category, &amount, &desc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Date = core.Date(date)
	e.Category = core.Category(category)
	e.Amount = decimal.NewFromFloat(amount)
	e.Description = desc.String
	return e, nil
}

// sqlDate accepts the shapes the driver may return for a DATE column.
type sqlDate core.Date

func (d *sqlDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = sqlDate(core.NewDate(v.Year(), int(v.Month()), v.Day()))
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		*d = sqlDate{}
		return nil
	default:
		return fmt.Errorf("unsupported date value %T", src)
	}
}

func (d *sqlDate) parse(s string) error {
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	parsed, err := core.ParseDate(s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	*d = sqlDate(parsed)
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
