// Package risk resolves a bot session's risk tier to its fixed lot size
// and stop-loss distance, and holds the per-session advisory locks that
// harden the one-open-trade-per-session invariant against overlapping
// run_bot_logic invocations.
package risk

import (
	"sync"

	"xauusd-engine/internal/apierr"
)

// Tier is the static lot/stop table from the specification; lot sizing is
// fixed per tier, not dynamic by equity (an explicit non-goal).
type Tier struct {
	MaxLotSize    float64
	StopLossPips  int
}

var tiers = map[string]Tier{
	"conservative": {MaxLotSize: 0.01, StopLossPips: 200},
	"medium":       {MaxLotSize: 0.05, StopLossPips: 300},
	"risky":        {MaxLotSize: 0.10, StopLossPips: 500},
}

// Resolve looks up the tier for riskLevel.
func Resolve(riskLevel string) (Tier, error) {
	t, ok := tiers[riskLevel]
	if !ok {
		return Tier{}, apierr.New(apierr.ValidationFailure, "unknown risk level: "+riskLevel)
	}
	return t, nil
}

// SessionLocks hands out one *sync.Mutex per session id, held for the
// duration of a session's check-then-open sequence in the bot-session
// runner. This is the concurrency-hardening resolution for the
// one-open-trade-per-session invariant: two overlapping run_bot_logic
// invocations serialize on the same session's lock instead of racing
// between the open-trade check and the execution provider's insert.
type SessionLocks struct {
	locks sync.Map // sessionID string -> *sync.Mutex
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{}
}

// Lock returns the mutex for sessionID, creating it on first use.
func (s *SessionLocks) Lock(sessionID string) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
