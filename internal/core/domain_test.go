package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Food", Food, true},
		{"transport", Transport, true},
		{"  Bills ", Bills, true},
		{"ENTERTAINMENT", Entertainment, true},
		{"Groceries", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			assert.ErrorIs(t, err, ErrInvalidCategory, tc.in)
		}
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Category("food").Valid())
	assert.False(t, Category("").Valid())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())
	assert.Equal(t, "2024-02", d.MonthKey())

	for _, bad := range []string{"", "2024-13-01", "01/02/2024", "2023-02-29"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestExpenseInputValidate(t *testing.T) {
	good := ExpenseInput{Date: NewDate(2024, 1, 5), Category: Food, Amount: decimal.NewFromInt(10)}
	assert.NoError(t, good.Validate())

	negative := good
	negative.Amount = decimal.NewFromInt(-3)
	assert.NoError(t, negative.Validate(), "store accepts any real amount")

	noDate := good
	noDate.Date = Date{}
	assert.ErrorIs(t, noDate.Validate(), ErrInvalidDate)

	badCat := good
	badCat.Category = "Rent"
	assert.ErrorIs(t, badCat.Validate(), ErrInvalidCategory)
}

func TestCallerCanAccess(t *testing.T) {
	e := Expense{ID: 1, Username: "alice"}
	assert.True(t, Caller{Username: "alice"}.CanAccess(e))
	assert.False(t, Caller{Username: "bob"}.CanAccess(e))
	assert.True(t, Caller{Username: "admin", IsAdmin: true}.CanAccess(e))
}
