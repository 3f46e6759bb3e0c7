package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the on-disk and on-form representation of an expense date.
const DateLayout = "2006-01-02"

// MonthLayout keys monthly aggregates.
const MonthLayout = "2006-01"

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Shopping      Category = "Shopping"
	Bills         Category = "Bills"
	Entertainment Category = "Entertainment"
	Other         Category = "Other"
)

// Categories lists every accepted category in display order.
var Categories = []Category{Food, Transport, Shopping, Bills, Entertainment, Other}

type (
	Category string

	Date struct {
		time.Time
	}

	User struct {
		Username     string
		PasswordHash string
	}

	// Caller identifies who is performing a repository operation.
	Caller struct {
		Username string
		IsAdmin  bool
	}

	Expense struct {
		ID          int64
		Username    string
		Date        Date
		Category    Category
		Amount      decimal.Decimal
		Description string
	}

	// ExpenseInput holds the user-editable fields of an expense.
	ExpenseInput struct {
		Date        Date
		Category    Category
		Amount      decimal.Decimal
		Description string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyUsername   = errors.New("empty username")
)

// ParseCategory matches s against the category list, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local calendar day.
func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket the date falls into.
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Validate checks the fields the store cannot enforce. The amount sign is
// left to the form parser; the store accepts any real value.
func (in ExpenseInput) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if !in.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

// CanAccess reports whether the caller may read or modify e.
func (c Caller) CanAccess(e Expense) bool {
	return c.IsAdmin || e.Username == c.Username
}
