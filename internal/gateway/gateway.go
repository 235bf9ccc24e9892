// Package gateway defines the strategy core's view of the external feed and
// trade processes. Registrations are announced to a gateway; readiness only
// affects what the caller may expect live, never whether the registration is
// persisted.
package gateway

import (
	"sync"

	"main/internal/schema"
)

// ReadinessState reports whether a gateway-side service is serving.
type ReadinessState uint8

const (
	StateUnknown ReadinessState = iota
	StateReady
	StateNotReady
)

func (s ReadinessState) Ready() bool {
	return s == StateReady
}

// Client announces registrations to the feed and trade gateways. All calls
// are advisory: a not-ready answer is reported to the caller but never
// blocks the strategy from recording the registration.
type Client interface {
	// ActivateFeed announces interest in a market-data source.
	ActivateFeed(sourceID string) ReadinessState

	// ActivateAccount announces a trading account and reports the venue's
	// classification of it.
	ActivateAccount(sourceID, accountID string) (ReadinessState, schema.AccountType)

	// Subscribe announces instrument subscriptions to a feed source.
	Subscribe(sourceID string, instruments []schema.Instrument) ReadinessState
}

// Loopback is an in-process Client used when no real gateway runs: every
// source and account registered through Prepare answers ready, everything
// else answers not ready.
type Loopback struct {
	mu       sync.Mutex
	sources  map[string]bool
	accounts map[string]schema.AccountType
}

var _ Client = (*Loopback)(nil)

func NewLoopback() *Loopback {
	return &Loopback{
		sources:  make(map[string]bool),
		accounts: make(map[string]schema.AccountType),
	}
}

// PrepareSource marks a feed source as serving.
func (l *Loopback) PrepareSource(sourceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources[sourceID] = true
}

// PrepareAccount marks an account as serving with the given classification.
func (l *Loopback) PrepareAccount(sourceID, accountID string, typ schema.AccountType) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources[sourceID] = true
	l.accounts[accountKey(sourceID, accountID)] = typ
}

func (l *Loopback) ActivateFeed(sourceID string) ReadinessState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sources[sourceID] {
		return StateReady
	}
	return StateNotReady
}

func (l *Loopback) ActivateAccount(sourceID, accountID string) (ReadinessState, schema.AccountType) {
	l.mu.Lock()
	defer l.mu.Unlock()
	typ, ok := l.accounts[accountKey(sourceID, accountID)]
	if !ok {
		return StateNotReady, schema.AccountTypeUnknown
	}
	return StateReady, typ
}

func (l *Loopback) Subscribe(sourceID string, _ []schema.Instrument) ReadinessState {
	return l.ActivateFeed(sourceID)
}

func accountKey(sourceID, accountID string) string {
	return sourceID + "/" + accountID
}
