package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeacademy_backend/internal/model"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDeriveStatusActive(t *testing.T) {
	sub := &model.UserSubscription{
		Status:  model.StatusActive,
		EndDate: "2026-03-15T00:00:00Z",
	}

	derived := DeriveStatus(sub, date("2026-03-05"))

	assert.Equal(t, model.StatusActive, derived.Status)
	assert.Equal(t, 10, derived.DaysRemaining)
}

func TestDeriveStatusLapsedIsPending(t *testing.T) {
	sub := &model.UserSubscription{
		Status:  model.StatusActive,
		EndDate: "2026-01-10T00:00:00Z",
	}

	derived := DeriveStatus(sub, date("2026-02-01"))

	assert.Equal(t, model.StatusPending, derived.Status)
	assert.Equal(t, 0, derived.DaysRemaining)
}

func TestDeriveStatusEndDateTodayIsPending(t *testing.T) {
	// The boundary is exclusive: ending today means renewal is already owed.
	sub := &model.UserSubscription{
		Status:  model.StatusActive,
		EndDate: "2026-02-01T18:30:00Z",
	}

	derived := DeriveStatus(sub, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))

	assert.Equal(t, model.StatusPending, derived.Status)
	assert.Equal(t, 0, derived.DaysRemaining)
}

func TestDeriveStatusStalePendingRecomputesToActive(t *testing.T) {
	// A stored pending status loses to a future end date.
	sub := &model.UserSubscription{
		Status:  model.StatusPending,
		EndDate: "2026-03-15T00:00:00Z",
	}

	derived := DeriveStatus(sub, date("2026-03-05"))

	assert.Equal(t, model.StatusActive, derived.Status)
}

func TestDeriveStatusCancelledIsSticky(t *testing.T) {
	sub := &model.UserSubscription{
		Status:  model.StatusCancelled,
		EndDate: "2099-01-01T00:00:00Z",
	}

	derived := DeriveStatus(sub, date("2026-02-01"))

	assert.Equal(t, model.StatusCancelled, derived.Status)
	assert.Equal(t, 0, derived.DaysRemaining)
}

func TestDeriveStatusMalformedDate(t *testing.T) {
	for _, endDate := range []string{"", "not-a-date", "NaN", "2026-13-45"} {
		sub := &model.UserSubscription{
			Status:  model.StatusActive,
			EndDate: endDate,
		}

		derived := DeriveStatus(sub, date("2026-02-01"))

		assert.Equal(t, model.StatusPending, derived.Status, "end date %q", endDate)
		assert.Equal(t, 0, derived.DaysRemaining, "end date %q", endDate)
	}
}

func TestParseDateEncodings(t *testing.T) {
	rfc, err := ParseDate("2026-03-15T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2026, rfc.Year())

	dateOnly, err := ParseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.March, dateOnly.Month())

	unix, err := ParseDate("1773309600") // seconds encoding
	require.NoError(t, err)
	assert.Equal(t, 2026, unix.UTC().Year())
}

func TestPriceForChange(t *testing.T) {
	cheap := &model.Strategy{Price: 100}
	expensive := &model.Strategy{Price: 300}

	// Upgrade charges the difference
	amount, kind := PriceForChange(100, expensive)
	assert.Equal(t, int64(200), amount)
	assert.Equal(t, ChangeUpgrade, kind)

	// Downgrade charges the full new-plan price, not a refund of the difference
	amount, kind = PriceForChange(300, cheap)
	assert.Equal(t, int64(100), amount)
	assert.Equal(t, ChangeDowngrade, kind)

	// Same price switches for free
	amount, kind = PriceForChange(100, cheap)
	assert.Equal(t, int64(0), amount)
	assert.Equal(t, ChangeLateral, kind)
}

func TestCanSubscribe(t *testing.T) {
	now := date("2026-02-01")
	active := &model.UserSubscription{
		StrategyID: 1,
		Status:     model.StatusActive,
		EndDate:    "2026-03-01T00:00:00Z",
	}
	pending := &model.UserSubscription{
		StrategyID: 1,
		Status:     model.StatusPending,
		EndDate:    "2026-01-01T00:00:00Z",
	}

	assert.NoError(t, CanSubscribe(nil, 1, now))

	assert.ErrorIs(t, CanSubscribe(active, 1, now), ErrAlreadySubscribed)
	assert.ErrorIs(t, CanSubscribe(active, 2, now), ErrActiveSubscription)

	// A lapsed subscription is renewed or switched, never subscribed over:
	// a second row would leave two non-cancelled subscriptions and sidestep
	// the switch pricing.
	assert.ErrorIs(t, CanSubscribe(pending, 1, now), ErrPendingSubscription)
	assert.ErrorIs(t, CanSubscribe(pending, 2, now), ErrPendingSubscription)

	// A cancelled subscription does not block starting over
	cancelled := &model.UserSubscription{
		StrategyID: 1,
		Status:     model.StatusCancelled,
		EndDate:    "2026-01-01T00:00:00Z",
	}
	assert.NoError(t, CanSubscribe(cancelled, 2, now))
}

func TestCycleEnd(t *testing.T) {
	start := date("2026-02-01")
	assert.Equal(t, date("2026-03-03"), CycleEnd(start))
}
