// Package budget implements the rate-budget gate for poll cycles.
//
// A fixed process-wide daily call budget is divided across a subscription's
// endpoints: polling N endpoints costs N calls per cycle, so the minimum
// interval between cycles is 24h * N / budget. The budget constant is set
// below the provider's true quota to leave headroom for other consumers
// sharing it.
package budget

import (
	"errors"
	"time"

	"github.com/njbennett/changepoll/internal/auth"
	"github.com/njbennett/changepoll/internal/model"
)

// DefaultDailyCallBudget is the conservative per-subscription call budget.
const DefaultDailyCallBudget = 500

// Denial reasons. A denied cycle performs no side effects.
var (
	ErrRateLimited           = errors.New("rate limit exceeded")
	ErrAuthorizationRequired = errors.New("authorization required")
)

// Guard decides whether a new poll cycle is permitted. It is pure: the
// decision depends only on the subscription and the clock.
type Guard struct {
	dailyBudget int
	now         func() time.Time
}

// New creates a Guard. A non-positive budget falls back to the default.
func New(dailyBudget int) *Guard {
	if dailyBudget <= 0 {
		dailyBudget = DefaultDailyCallBudget
	}
	return &Guard{
		dailyBudget: dailyBudget,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// MinimumInterval returns the shortest allowed gap between cycle starts for
// a subscription with the given endpoint count.
func (g *Guard) MinimumInterval(endpointCount int) time.Duration {
	if endpointCount < 1 {
		endpointCount = 1
	}
	return time.Duration(int64(24*time.Hour) * int64(endpointCount) / int64(g.dailyBudget))
}

// CanPoll returns nil if a cycle may start now, ErrRateLimited if the
// subscription polled too recently, or ErrAuthorizationRequired if the
// subscription mandates a credential and none is attached.
func (g *Guard) CanPoll(sub *model.Subscription) error {
	if !sub.LastPolled.IsZero() {
		if g.now().Sub(sub.LastPolled) < g.MinimumInterval(len(sub.Endpoints)) {
			return ErrRateLimited
		}
	}

	if sub.AuthMode != auth.ModeOpen && sub.Credential.IsZero() {
		return ErrAuthorizationRequired
	}

	return nil
}
