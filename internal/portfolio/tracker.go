package portfolio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"main/internal/schema"
)

var _ Calculator = (*Tracker)(nil)

// Tracker is the reference Calculator: net positions with average cost,
// realized profit from closing trades, unrealized profit marked against the
// last quote.
type Tracker struct {
	mu sync.Mutex

	accounts   map[string]schema.AccountInfo
	positions  map[string]*PositionEntry
	initCash   float64
	realized   float64
	tradingDay string

	// dayStartEquity anchors intraday profit. Reset by AdoptSession.
	dayStartEquity float64
	watermark      int64

	clock func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		accounts:  make(map[string]schema.AccountInfo),
		positions: make(map[string]*PositionEntry),
		clock:     time.Now,
	}
}

func (t *Tracker) OnQuote(quote schema.Quote, recvTime int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pos, ok := t.positions[quote.Symbol()]; ok {
		pos.LastPrice = quote.LastPrice
	}
	t.advance(recvTime)
}

func (t *Tracker) OnOrder(_ schema.Order, recvTime int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Order reports carry no position effect; fills arrive as trades. The
	// report still advances the watermark so replay resumes past it.
	t.advance(recvTime)
}

func (t *Tracker) OnTrade(trade schema.Trade, recvTime int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	symbol := schema.Symbol(trade.InstrumentID.String(), trade.ExchangeID.String())
	pos, ok := t.positions[symbol]
	if !ok {
		pos = &PositionEntry{
			InstrumentID: trade.InstrumentID.String(),
			ExchangeID:   trade.ExchangeID.String(),
		}
		t.positions[symbol] = pos
	}

	delta := trade.Volume
	if trade.Side == schema.SideSell {
		delta = -delta
	}

	switch {
	case pos.Volume == 0 || sameSign(pos.Volume, delta):
		// Extending: blend the average cost.
		total := pos.AvgPrice*abs(pos.Volume) + trade.Price*abs(delta)
		pos.Volume += delta
		if pos.Volume != 0 {
			pos.AvgPrice = total / abs(pos.Volume)
		}
	default:
		// Reducing or flipping: realize profit on the closed part.
		closed := min64(absInt(pos.Volume), absInt(delta))
		direction := 1.0
		if pos.Volume < 0 {
			direction = -1
		}
		t.realized += direction * (trade.Price - pos.AvgPrice) * float64(closed)
		pos.Volume += delta
		if pos.Volume == 0 {
			pos.AvgPrice = 0
		} else if sameSign(pos.Volume, delta) {
			// Flipped through zero: the remainder opened at the trade price.
			pos.AvgPrice = trade.Price
		}
	}
	pos.LastPrice = trade.Price
	t.advance(recvTime)
}

func (t *Tracker) OnAccount(account schema.AccountInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.accounts[account.AccountID]; !ok {
		t.initCash += account.InitCash
	}
	t.accounts[account.AccountID] = account
	if t.dayStartEquity == 0 {
		t.dayStartEquity = t.initCash
	}
}

func (t *Tracker) HasAccount(accountID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.accounts[accountID]
	return ok
}

func (t *Tracker) Watermark() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.watermark
}

// AdoptSession starts a new trading day: intraday profit re-anchors at the
// current dynamic equity.
func (t *Tracker) AdoptSession(tradingDay string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tradingDay == t.tradingDay {
		return
	}
	t.tradingDay = tradingDay
	t.dayStartEquity = t.dynamicEquityLocked()
}

func (t *Tracker) Snapshot() PortfolioSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	dynamic := t.dynamicEquityLocked()
	snap := PortfolioSnapshot{
		UpdateTime:     t.clock().UnixNano(),
		TradingDay:     t.tradingDay,
		InitialEquity:  t.initCash,
		StaticEquity:   t.initCash + t.realized,
		DynamicEquity:  dynamic,
		AccumulatedPnL: dynamic - t.initCash,
		IntradayPnL:    dynamic - t.dayStartEquity,
	}
	if t.initCash != 0 {
		snap.AccumulatedPnLRatio = snap.AccumulatedPnL / t.initCash
	}
	if t.dayStartEquity != 0 {
		snap.IntradayPnLRatio = snap.IntradayPnL / t.dayStartEquity
	}
	return snap
}

func (t *Tracker) Position(instrumentID, exchangeID string) PositionEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pos, ok := t.positions[schema.Symbol(instrumentID, exchangeID)]; ok {
		return *pos
	}
	return PositionEntry{InstrumentID: instrumentID, ExchangeID: exchangeID}
}

func (t *Tracker) Positions() []PositionEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := make([]PositionEntry, 0, len(t.positions))
	for _, pos := range t.positions {
		entries = append(entries, *pos)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ExchangeID != entries[j].ExchangeID {
			return entries[i].ExchangeID < entries[j].ExchangeID
		}
		return entries[i].InstrumentID < entries[j].InstrumentID
	})
	return entries
}

func (t *Tracker) advance(recvTime int64) {
	if recvTime > t.watermark {
		t.watermark = recvTime
	}
}

func (t *Tracker) dynamicEquityLocked() float64 {
	equity := t.initCash + t.realized
	for _, pos := range t.positions {
		if pos.Volume == 0 {
			continue
		}
		mark := pos.LastPrice
		if mark == 0 {
			mark = pos.AvgPrice
		}
		equity += (mark - pos.AvgPrice) * float64(pos.Volume)
	}
	return equity
}

// trackerState is the serialized form persisted between runs.
type trackerState struct {
	SavedAt        int64                `json:"savedAt"`
	TradingDay     string               `json:"tradingDay"`
	Watermark      int64                `json:"watermark"`
	InitCash       float64              `json:"initCash"`
	Realized       float64              `json:"realized"`
	DayStartEquity float64              `json:"dayStartEquity"`
	Accounts       []schema.AccountInfo `json:"accounts"`
	Positions      []PositionEntry      `json:"positions"`
}

// Save writes the tracker state to disk as JSON.
func (t *Tracker) Save(path string) error {
	t.mu.Lock()
	state := trackerState{
		SavedAt:        t.clock().UnixNano(),
		TradingDay:     t.tradingDay,
		Watermark:      t.watermark,
		InitCash:       t.initCash,
		Realized:       t.realized,
		DayStartEquity: t.dayStartEquity,
	}
	for _, account := range t.accounts {
		state.Accounts = append(state.Accounts, account)
	}
	t.mu.Unlock()
	state.Positions = t.Positions()
	sort.Slice(state.Accounts, func(i, j int) bool {
		return state.Accounts[i].AccountID < state.Accounts[j].AccountID
	})

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Load restores tracker state saved by a previous run. A missing file is not
// an error: the tracker simply starts empty with a zero watermark.
func (t *Tracker) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var state trackerState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tradingDay = state.TradingDay
	t.watermark = state.Watermark
	t.initCash = state.InitCash
	t.realized = state.Realized
	t.dayStartEquity = state.DayStartEquity
	t.accounts = make(map[string]schema.AccountInfo, len(state.Accounts))
	for _, account := range state.Accounts {
		t.accounts[account.AccountID] = account
	}
	t.positions = make(map[string]*PositionEntry, len(state.Positions))
	for _, pos := range state.Positions {
		p := pos
		t.positions[schema.Symbol(p.InstrumentID, p.ExchangeID)] = &p
	}
	return nil
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(v int64) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
