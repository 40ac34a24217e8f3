package credit

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestDeriveState(t *testing.T) {
	cases := []struct {
		grand, paid, outstanding string
		status                   enums.SaleStatus
	}{
		{"500", "0", "500", enums.SaleStatusUnpaid},
		{"500", "200", "300", enums.SaleStatusPartiallyPaid},
		{"500", "500", "0", enums.SaleStatusPaid},
		{"0", "0", "0", enums.SaleStatusPaid},
		{"100.25", "100.24", "0.01", enums.SaleStatusPartiallyPaid},
	}
	for _, tc := range cases {
		state := DeriveState(dec(tc.grand), dec(tc.paid))
		assert.True(t, state.OutstandingAmount.Equal(dec(tc.outstanding)), "grand %s paid %s", tc.grand, tc.paid)
		assert.Equal(t, tc.status, state.Status)

		again := DeriveState(dec(tc.grand), state.PaidAmount)
		assert.Equal(t, state.Status, again.Status)
		assert.True(t, again.OutstandingAmount.Equal(state.OutstandingAmount))
	}
}

func TestInitialState(t *testing.T) {
	state, err := InitialState(dec("500"), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusUnpaid, state.Status)

	state, err = InitialState(dec("500"), dec("120"))
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusPartiallyPaid, state.Status)
	assert.True(t, state.OutstandingAmount.Equal(dec("380")))

	_, err = InitialState(dec("500"), dec("500.01"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOverpayment))

	_, err = InitialState(dec("500"), dec("-1"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestClassifyAgingScenarioE(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)
	now := time.Date(2026, 6, 15, 23, 30, 0, 0, loc)
	day := func(offset int) *time.Time {
		d := time.Date(2026, 6, 15+offset, 8, 0, 0, 0, loc)
		return &d
	}

	assert.Equal(t, enums.AgingStatusOverdue, ClassifyAging(day(-1), now, loc, 3))
	assert.Equal(t, enums.AgingStatusDueSoon, ClassifyAging(day(2), now, loc, 3))
	assert.Equal(t, enums.AgingStatusPending, ClassifyAging(day(10), now, loc, 3))

	assert.Equal(t, enums.AgingStatusDueSoon, ClassifyAging(day(0), now, loc, 3))
	assert.Equal(t, enums.AgingStatusDueSoon, ClassifyAging(day(3), now, loc, 3))
	assert.Equal(t, enums.AgingStatusPending, ClassifyAging(day(4), now, loc, 3))
	assert.Equal(t, enums.AgingStatusPending, ClassifyAging(nil, now, loc, 3))

	later := now.Add(48 * time.Hour)
	assert.Equal(t, enums.AgingStatusOverdue, ClassifyAging(day(1), later, loc, 3))
}

func TestDaysUntilUsesBusinessCalendar(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)
	// 18:00 UTC on the 15th is already the 16th in Bangkok.
	now := time.Date(2026, 6, 15, 18, 0, 0, 0, time.UTC)
	due := time.Date(2026, 6, 16, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysUntil(due, now, loc))
	assert.Equal(t, 1, DaysUntil(due, now, time.UTC))
}

func TestDayStartKeepsCalendarDayWestOfUTC(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	parsed, err := time.Parse("2006-01-02", "2026-06-20")
	require.NoError(t, err)
	due := DayStart(parsed, newYork)
	now := time.Date(2026, 6, 20, 10, 0, 0, 0, newYork)

	assert.Equal(t, 0, DaysUntil(due, now, newYork))
	assert.Equal(t, enums.AgingStatusDueSoon, ClassifyAging(&due, now, newYork, 3))
	assert.Equal(t, enums.AgingStatusOverdue, ClassifyAging(&due, now.AddDate(0, 0, 1), newYork, 3))

	// A zone-less date read as UTC midnight would have aged a day early.
	assert.Equal(t, -1, DaysUntil(parsed, now, newYork))
}
