package cycle

import "time"

// Report summarizes one completed cycle. A degraded cycle (some endpoints
// or events failed) and a fully successful one are the same resolved
// outcome from the caller's perspective; the counters and the log are the
// only signal of partial failure.
type Report struct {
	TenantKey string
	StartedAt time.Time
	Duration  time.Duration

	Endpoints        int // endpoints configured on the subscription
	Fetched          int // endpoints whose fetch succeeded
	FetchFailures    int // endpoints left untouched this cycle
	Events           int // entities classified and handed to dispatch
	New              int // events dispatched as new
	Modified         int // events dispatched as modified
	DispatchFailures int // events that failed to reach the sink
}

// Degraded reports whether anything failed inside the cycle.
func (r *Report) Degraded() bool {
	return r.FetchFailures > 0 || r.DispatchFailures > 0
}
