// Package strategy is the execution core handed to strategy callbacks:
// order submission, registration, the live quote cache, and portfolio
// queries. Every command becomes a durable journal frame before the call
// returns; the execution gateway consumes the journal, never a socket.
package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/calendar"
	"main/internal/codec"
	"main/internal/gateway"
	"main/internal/journal"
	"main/internal/obs"
	"main/internal/portfolio"
	"main/internal/registry"
	"main/internal/schema"
	"main/internal/uid"
)

var (
	ErrUnknownAccount = errors.New("account not registered")
	ErrNoQuote        = errors.New("no quote cached for instrument")
)

// Broadcaster publishes strategy state to the outside. Nil is allowed
// everywhere a Core holds one.
type Broadcaster interface {
	PortfolioLive(portfolio.PortfolioSnapshot)
	PortfolioMinute(portfolio.PortfolioSnapshot)
	PortfolioDay(portfolio.PortfolioSnapshot)
	Positions([]portfolio.PositionEntry)
	Account(info schema.AccountInfo)
}

// Archiver mirrors snapshots into long-term storage. Nil is allowed.
type Archiver interface {
	SaveMinute(snap portfolio.PortfolioSnapshot)
	SaveDay(snap portfolio.PortfolioSnapshot)
}

// Config wires a Core together.
type Config struct {
	Name    string
	BaseDir string

	Registry   *registry.DB
	Gateway    gateway.Client
	Calendar   *calendar.SessionCalendar
	Calculator portfolio.Calculator

	Broadcast Broadcaster
	Archive   Archiver
	Metrics   *obs.Metrics

	Journal journal.Config
}

type cachedQuote struct {
	quote    schema.Quote
	recvTime int64
}

type accountState struct {
	record registry.AccountRecord
	ready  bool
}

// Core is the strategy execution core. One Core per strategy process; all
// methods are safe for concurrent use.
type Core struct {
	cfg      Config
	workerID int
	ids      *uid.Generator
	writer   *journal.Writer

	// submitMu spans id assignment and the journal append of every command,
	// so ids land in the journal in issue order.
	submitMu sync.Mutex

	mu         sync.Mutex
	quotes     map[string]cachedQuote
	subscribed map[string]map[string]schema.Instrument // source -> symbol -> instrument
	accounts   map[string]accountState
	sources    map[string]bool
}

// New acquires the strategy's durable identity and opens its command
// journal. The id generator's worker slot is bound to the name, so a
// restart under the same name resumes the same id space.
func New(ctx context.Context, cfg Config) (*Core, error) {
	if cfg.Name == "" {
		return nil, errors.New("strategy name is empty")
	}
	if cfg.Registry == nil || cfg.Gateway == nil || cfg.Calendar == nil || cfg.Calculator == nil {
		return nil, errors.New("strategy core missing a required component")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = obs.NewMetrics()
	}

	workerID, err := cfg.Registry.AcquireWorkerID(ctx, cfg.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "acquire worker id for %s", cfg.Name)
	}
	ids, err := uid.NewGenerator(workerID)
	if err != nil {
		return nil, err
	}
	writer, err := journal.NewWriter(journal.CommandStream(cfg.BaseDir, cfg.Name), cfg.Journal)
	if err != nil {
		return nil, errors.Wrapf(err, "open command journal for %s", cfg.Name)
	}

	c := &Core{
		cfg:        cfg,
		workerID:   workerID,
		ids:        ids,
		writer:     writer,
		quotes:     make(map[string]cachedQuote),
		subscribed: make(map[string]map[string]schema.Instrument),
		accounts:   make(map[string]accountState),
		sources:    make(map[string]bool),
	}

	// The portfolio adopts every day switch before any other handler runs.
	cfg.Calendar.RegisterDaySwitch(func(day string) {
		cfg.Calculator.AdoptSession(day)
	})

	logs.Infof("strategy core ready. name: %s, worker: %d", cfg.Name, workerID)
	return c, nil
}

// WorkerID returns the id-generator slot bound to this strategy.
func (c *Core) WorkerID() int {
	return c.workerID
}

// Close releases the command journal. Registered accounts and sources stay
// persisted for the next run.
func (c *Core) Close() error {
	return c.writer.Close()
}

// AddMarketSource registers a market-data source and subscribes its
// instruments. The registration is persisted even when the feed is not
// serving yet; the returned flag only reports current readiness.
func (c *Core) AddMarketSource(ctx context.Context, sourceID string, instruments []schema.Instrument) (bool, error) {
	if sourceID == "" {
		return false, errors.New("source id is empty")
	}
	if err := c.cfg.Registry.AddSource(ctx, sourceID); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.sources[sourceID] = true
	c.mu.Unlock()

	state := c.cfg.Gateway.ActivateFeed(sourceID)
	if !state.Ready() {
		logs.Infof("market source %s registered, feed not ready yet", sourceID)
	}
	if len(instruments) > 0 {
		if _, err := c.Subscribe(sourceID, instruments); err != nil {
			return state.Ready(), err
		}
	}
	return state.Ready(), nil
}

// AddAccount registers a trading account under a source. The record is
// persisted and announced even when the trade gateway is not serving; a
// not-ready gateway only means the venue's account classification is
// unknown until it connects.
func (c *Core) AddAccount(ctx context.Context, sourceID, accountID string, cashLimit float64) (bool, error) {
	if sourceID == "" || accountID == "" {
		return false, errors.New("source and account are required")
	}

	record := registry.AccountRecord{
		SourceID:  sourceID,
		AccountID: accountID,
		ClientID:  c.cfg.Name,
		Type:      schema.AccountTypeUnknown,
		InitCash:  cashLimit,
	}
	if err := c.cfg.Registry.AddAccount(ctx, record); err != nil {
		return false, err
	}

	info := schema.AccountInfo{
		AccountID: accountID,
		SourceID:  sourceID,
		ClientID:  c.cfg.Name,
		Type:      schema.AccountTypeUnknown,
		InitCash:  cashLimit,
	}
	payload, err := codec.EncodeAccountInfo(info)
	if err != nil {
		return false, errors.Wrapf(err, "encode account %s", accountID)
	}
	if _, err := c.append(schema.KindAccountInfo, payload); err != nil {
		return false, err
	}
	c.cfg.Calculator.OnAccount(info)
	if c.cfg.Broadcast != nil {
		c.cfg.Broadcast.Account(info)
	}

	// Activation comes last: the registration must survive a gateway that
	// blocks or faults here.
	state, accountType := c.cfg.Gateway.ActivateAccount(sourceID, accountID)
	if state.Ready() && accountType != schema.AccountTypeUnknown {
		record.Type = accountType
		if err := c.cfg.Registry.AddAccount(ctx, record); err != nil {
			return false, err
		}
	}

	c.mu.Lock()
	c.accounts[accountID] = accountState{record: record, ready: state.Ready()}
	c.mu.Unlock()

	if !state.Ready() {
		logs.Infof("account %s@%s registered, trade gateway not ready yet", accountID, sourceID)
	}
	return state.Ready(), nil
}

// Subscribe announces instrument subscriptions on a source and records them
// for session gating.
func (c *Core) Subscribe(sourceID string, instruments []schema.Instrument) (bool, error) {
	if sourceID == "" {
		return false, errors.New("source id is empty")
	}
	c.mu.Lock()
	set, ok := c.subscribed[sourceID]
	if !ok {
		set = make(map[string]schema.Instrument)
		c.subscribed[sourceID] = set
	}
	for _, inst := range instruments {
		set[schema.Symbol(inst.InstrumentID, inst.ExchangeID)] = inst
	}
	c.mu.Unlock()

	return c.cfg.Gateway.Subscribe(sourceID, instruments).Ready(), nil
}

// IsSubscribed reports whether the instrument was subscribed on any source.
func (c *Core) IsSubscribed(instrumentID, exchangeID string) bool {
	symbol := schema.Symbol(instrumentID, exchangeID)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, set := range c.subscribed {
		if _, ok := set[symbol]; ok {
			return true
		}
	}
	return false
}

// OnQuote feeds one live quote through the core: cache, metrics, portfolio.
func (c *Core) OnQuote(quote schema.Quote, recvTime int64) {
	c.mu.Lock()
	c.quotes[quote.Symbol()] = cachedQuote{quote: quote, recvTime: recvTime}
	c.mu.Unlock()

	c.cfg.Metrics.QuotesSeen.Add(1)
	c.cfg.Calculator.OnQuote(quote, recvTime)
}

// SeedQuote warms the quote cache without touching the portfolio. Replay
// uses it: the recovery engine has already applied the quote.
func (c *Core) SeedQuote(quote schema.Quote, recvTime int64) {
	c.mu.Lock()
	c.quotes[quote.Symbol()] = cachedQuote{quote: quote, recvTime: recvTime}
	c.mu.Unlock()
}

// OnOrder feeds one live execution report. Reports owned by other
// strategies sharing the account are dropped.
func (c *Core) OnOrder(order schema.Order, recvTime int64) {
	if order.ClientID.String() != c.cfg.Name {
		return
	}
	c.cfg.Calculator.OnOrder(order, recvTime)
}

// OnTrade feeds one live fill, with the same ownership rule as OnOrder.
func (c *Core) OnTrade(trade schema.Trade, recvTime int64) {
	if trade.ClientID.String() != c.cfg.Name {
		return
	}
	c.cfg.Calculator.OnTrade(trade, recvTime)
	if c.cfg.Broadcast != nil {
		c.cfg.Broadcast.Positions(c.cfg.Calculator.Positions())
	}
}

// LastQuote returns the most recent quote for an instrument.
func (c *Core) LastQuote(instrumentID, exchangeID string) (schema.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.quotes[schema.Symbol(instrumentID, exchangeID)]
	return cached.quote, ok
}

// Position returns the tracked position for an instrument.
func (c *Core) Position(instrumentID, exchangeID string) portfolio.PositionEntry {
	return c.cfg.Calculator.Position(instrumentID, exchangeID)
}

// Portfolio returns the current equity view.
func (c *Core) Portfolio() portfolio.PortfolioSnapshot {
	return c.cfg.Calculator.Snapshot()
}

func (c *Core) append(kind schema.FrameKind, payload []byte) (int64, error) {
	start := time.Now()
	_, recvTime, err := c.writer.AppendStamped(kind, payload)
	if err != nil {
		c.cfg.Metrics.AppendErrors.Add(1)
		return 0, errors.Wrapf(err, "append %v frame", kind)
	}
	c.cfg.Metrics.AppendLatency.Observe(time.Since(start))
	c.cfg.Metrics.FramesAppended.Add(1)
	return recvTime, nil
}
