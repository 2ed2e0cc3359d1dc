package policy

import (
	"errors"
	"strconv"
	"time"

	"tradeacademy_backend/internal/model"
)

// DefaultRenewalFee is the flat fee charged to renew a lapsed subscription.
// It is a product constant, not derived from the strategy price.
const DefaultRenewalFee int64 = 100

// CycleDays is the length of one billing cycle.
const CycleDays = 30

var (
	ErrAlreadySubscribed   = errors.New("already subscribed to this strategy")
	ErrActiveSubscription  = errors.New("an active subscription must be upgraded, downgraded or cancelled first")
	ErrPendingSubscription = errors.New("renew your lapsed subscription or switch to another strategy instead")
	ErrSameStrategy        = errors.New("target strategy equals the current strategy")
)

// Derived is the recomputed view of a subscription at a point in time.
type Derived struct {
	Status        model.SubscriptionStatus `json:"status"`
	DaysRemaining int                      `json:"days_remaining"`
}

// DeriveStatus recomputes a subscription's status from its end date.
// The recomputed value wins over a stored active/pending/expired status;
// a stored cancelled status is sticky and cannot be undone here.
//
// Days remaining are counted between midnights, so a subscription ending
// today is already owed renewal. Unparseable end dates count as lapsed.
func DeriveStatus(sub *model.UserSubscription, now time.Time) Derived {
	if sub == nil {
		return Derived{Status: model.StatusPending}
	}
	if sub.Status == model.StatusCancelled {
		return Derived{Status: model.StatusCancelled}
	}

	end, err := ParseDate(sub.EndDate)
	if err != nil {
		return Derived{Status: model.StatusPending}
	}

	days := daysBetweenMidnights(now, end)
	if days <= 0 {
		return Derived{Status: model.StatusPending}
	}
	return Derived{Status: model.StatusActive, DaysRemaining: days}
}

// ParseDate accepts the date encodings the backend has emitted over time:
// RFC3339, date-only, and unix seconds.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, errors.New("unrecognized date format: " + s)
}

func daysBetweenMidnights(now, end time.Time) int {
	nowMid := midnight(now)
	endMid := midnight(end)
	if !endMid.After(nowMid) {
		return 0
	}
	return int(endMid.Sub(nowMid) / (24 * time.Hour))
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type ChangeKind string

const (
	ChangeUpgrade   ChangeKind = "upgrade"
	ChangeDowngrade ChangeKind = "downgrade"
	ChangeLateral   ChangeKind = "lateral"
)

// PriceForChange prices a strategy switch. Upgrades charge the difference,
// downgrades charge the full new-plan price, equal prices switch for free.
func PriceForChange(currentPrice int64, target *model.Strategy) (int64, ChangeKind) {
	switch {
	case target.Price > currentPrice:
		return target.Price - currentPrice, ChangeUpgrade
	case target.Price < currentPrice:
		return target.Price, ChangeDowngrade
	default:
		return 0, ChangeLateral
	}
}

// CanSubscribe checks whether the user may start a fresh subscription to the
// given strategy. Any non-cancelled subscription blocks a fresh subscribe: a
// user holds at most one at a time, and a lapsed one is renewed (same
// strategy) or switched (different strategy), never subscribed over.
func CanSubscribe(sub *model.UserSubscription, strategyID uint, now time.Time) error {
	if sub == nil {
		return nil
	}
	derived := DeriveStatus(sub, now)
	switch derived.Status {
	case model.StatusActive:
		if sub.StrategyID == strategyID {
			return ErrAlreadySubscribed
		}
		return ErrActiveSubscription
	case model.StatusCancelled:
		return nil
	default:
		return ErrPendingSubscription
	}
}

// CycleEnd returns the end date of a billing cycle starting at the given time.
func CycleEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, CycleDays)
}
