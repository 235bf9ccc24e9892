package strategy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

type coreFixture struct {
	core     *Core
	registry *registry.DB
	loopback *gateway.Loopback
	calc     *portfolio.Tracker
	baseDir  string
}

func newCoreFixture(t *testing.T) *coreFixture {
	t.Helper()
	baseDir := t.TempDir()

	db, err := registry.Open(baseDir + "/registry.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	loopback := gateway.NewLoopback()
	loopback.PrepareAccount("xtp", "15040900", schema.AccountTypeStock)

	calc := portfolio.NewTracker()
	core, err := New(context.Background(), Config{
		Name:       "demo",
		BaseDir:    baseDir,
		Registry:   db,
		Gateway:    loopback,
		Calendar:   calendar.NewSessionCalendar(),
		Calculator: calc,
		Metrics:    obs.NewMetrics(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { core.Close() })

	return &coreFixture{core: core, registry: db, loopback: loopback, calc: calc, baseDir: baseDir}
}

func (f *coreFixture) registerAccount(t *testing.T) {
	t.Helper()
	ready, err := f.core.AddAccount(context.Background(), "xtp", "15040900", 1_000_000)
	require.NoError(t, err)
	require.True(t, ready)
}

// commandFrames closes the core's writer and reads back its command journal.
func (f *coreFixture) commandFrames(t *testing.T) []journal.Frame {
	t.Helper()
	require.NoError(t, f.core.Close())

	reader, err := journal.OpenMerge([]journal.Stream{journal.CommandStream(f.baseDir, "demo")}, 0, journal.ReaderOptions{})
	require.NoError(t, err)
	defer reader.Close()

	var frames []journal.Frame
	for {
		frame, ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			return frames
		}
		frames = append(frames, frame)
	}
}

func TestNewAcquiresStableWorkerID(t *testing.T) {
	f := newCoreFixture(t)
	workerID := f.core.WorkerID()
	assert.Equal(t, 1, workerID)

	// A restart under the same name resumes the same worker slot.
	require.NoError(t, f.core.Close())
	reopened, err := New(context.Background(), Config{
		Name:       "demo",
		BaseDir:    f.baseDir,
		Registry:   f.registry,
		Gateway:    f.loopback,
		Calendar:   calendar.NewSessionCalendar(),
		Calculator: f.calc,
	})
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, workerID, reopened.WorkerID())
}

func TestNewRefusesSecondCoreSameName(t *testing.T) {
	f := newCoreFixture(t)
	_, err := New(context.Background(), Config{
		Name:       "demo",
		BaseDir:    f.baseDir,
		Registry:   f.registry,
		Gateway:    f.loopback,
		Calendar:   calendar.NewSessionCalendar(),
		Calculator: portfolio.NewTracker(),
	})
	require.ErrorIs(t, err, journal.ErrStreamLocked)
}

func TestInsertOrderUnknownAccount(t *testing.T) {
	f := newCoreFixture(t)

	id, err := f.core.InsertLimitOrder(OrderSpec{
		InstrumentID: "600000",
		ExchangeID:   schema.ExchangeSSE,
		AccountID:    "never-registered",
		LimitPrice:   10.0,
		Volume:       100,
		Side:         schema.SideBuy,
	})
	assert.Equal(t, uint64(0), id)
	require.ErrorIs(t, err, ErrUnknownAccount)

	// The rejection left nothing in the journal.
	assert.Empty(t, f.commandFrames(t))
}

func TestInsertLimitOrderJournalsCommand(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)

	id, err := f.core.InsertLimitOrder(OrderSpec{
		InstrumentID: "600000",
		ExchangeID:   schema.ExchangeSSE,
		AccountID:    "15040900",
		LimitPrice:   10.5,
		Volume:       200,
		Side:         schema.SideBuy,
	})
	require.NoError(t, err)
	assert.Equal(t, f.core.WorkerID(), uid.WorkerID(id))

	frames := f.commandFrames(t)
	require.Len(t, frames, 2) // account announcement + order input
	assert.Equal(t, schema.KindAccountInfo, frames[0].Header.Kind)
	require.Equal(t, schema.KindOrderInput, frames[1].Header.Kind)

	input, ok := codec.DecodeOrderInput(frames[1].Payload)
	require.True(t, ok)
	assert.Equal(t, id, input.OrderID)
	assert.Equal(t, "demo", input.ClientID.String())
	assert.Equal(t, schema.PriceTypeLimit, input.PriceType)
	assert.Equal(t, schema.TimeConditionGFD, input.TimeCondition)
	assert.Equal(t, schema.VolumeConditionAny, input.VolumeCondition)
	assert.InDelta(t, 10.5, input.FrozenPrice, 1e-9)
}

func TestInsertFAKAndFOKConditions(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)

	spec := OrderSpec{
		InstrumentID: "600000",
		ExchangeID:   schema.ExchangeSSE,
		AccountID:    "15040900",
		LimitPrice:   10.0,
		Volume:       100,
		Side:         schema.SideSell,
	}
	_, err := f.core.InsertFAKOrder(spec)
	require.NoError(t, err)
	_, err = f.core.InsertFOKOrder(spec)
	require.NoError(t, err)

	frames := f.commandFrames(t)
	require.Len(t, frames, 3)

	fak, ok := codec.DecodeOrderInput(frames[1].Payload)
	require.True(t, ok)
	assert.Equal(t, schema.TimeConditionIOC, fak.TimeCondition)
	assert.Equal(t, schema.VolumeConditionAny, fak.VolumeCondition)

	fok, ok := codec.DecodeOrderInput(frames[2].Payload)
	require.True(t, ok)
	assert.Equal(t, schema.TimeConditionIOC, fok.TimeCondition)
	assert.Equal(t, schema.VolumeConditionAll, fok.VolumeCondition)
}

func TestInsertMarketOrderVenueSemantics(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)

	instr, _ := schema.NewStr32("rb2610")
	exch, _ := schema.NewStr16(schema.ExchangeSHFE)
	f.core.OnQuote(schema.Quote{InstrumentID: instr, ExchangeID: exch, LastPrice: 3500}, 1)

	_, err := f.core.InsertMarketOrder(OrderSpec{
		InstrumentID: "600000",
		ExchangeID:   schema.ExchangeSSE,
		AccountID:    "15040900",
		Volume:       100,
		Side:         schema.SideBuy,
	})
	require.NoError(t, err)

	_, err = f.core.InsertMarketOrder(OrderSpec{
		InstrumentID: "rb2610",
		ExchangeID:   schema.ExchangeSHFE,
		AccountID:    "15040900",
		Volume:       2,
		Side:         schema.SideBuy,
		Offset:       schema.OffsetOpen,
	})
	require.NoError(t, err)

	frames := f.commandFrames(t)
	require.Len(t, frames, 3)

	sse, ok := codec.DecodeOrderInput(frames[1].Payload)
	require.True(t, ok)
	assert.Equal(t, schema.PriceTypeBest5, sse.PriceType)
	assert.Equal(t, schema.TimeConditionIOC, sse.TimeCondition)
	assert.Equal(t, schema.VolumeConditionAny, sse.VolumeCondition)
	assert.Zero(t, sse.LimitPrice)

	shfe, ok := codec.DecodeOrderInput(frames[2].Payload)
	require.True(t, ok)
	assert.Equal(t, schema.PriceTypeAny, shfe.PriceType)
	assert.InDelta(t, 3500.0, shfe.FrozenPrice, 1e-9)
	assert.Equal(t, schema.OffsetOpen, shfe.Offset)
}

func TestInsertOrderRejectsOverlongIdentifiers(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)

	long := "000000000000000000000000000000000" // 33 bytes
	id, err := f.core.InsertLimitOrder(OrderSpec{
		InstrumentID: long,
		ExchangeID:   schema.ExchangeSSE,
		AccountID:    "15040900",
		LimitPrice:   1,
		Volume:       100,
		Side:         schema.SideBuy,
	})
	assert.Equal(t, uint64(0), id)
	require.ErrorIs(t, err, schema.ErrStringTooLong)
	assert.Len(t, f.commandFrames(t), 1) // only the account announcement
}

func TestCancelOrderJournalsAction(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)

	orderID, err := f.core.InsertLimitOrder(OrderSpec{
		InstrumentID: "600000",
		ExchangeID:   schema.ExchangeSSE,
		AccountID:    "15040900",
		LimitPrice:   10.0,
		Volume:       100,
		Side:         schema.SideBuy,
	})
	require.NoError(t, err)

	actionID, err := f.core.CancelOrder(orderID)
	require.NoError(t, err)
	assert.NotZero(t, actionID)
	assert.NotEqual(t, orderID, actionID)

	frames := f.commandFrames(t)
	require.Len(t, frames, 3)
	action, ok := codec.DecodeOrderAction(frames[2].Payload)
	require.True(t, ok)
	assert.Equal(t, orderID, action.OrderID)
	assert.Equal(t, actionID, action.OrderActionID)
	assert.Equal(t, schema.ActionFlagCancel, action.ActionFlag)

	_, err = f.core.CancelOrder(0)
	assert.Error(t, err)
}

func TestAlgoOrderRoundTrip(t *testing.T) {
	f := newCoreFixture(t)

	orderID, err := f.core.InsertAlgoOrder("twap", `{"minutes": 30}`)
	require.NoError(t, err)

	actionID, err := f.core.ModifyAlgoOrder(orderID, `{"pause": true}`)
	require.NoError(t, err)

	frames := f.commandFrames(t)
	require.Len(t, frames, 2)

	in, ok := codec.DecodeAlgoOrderInput(frames[0].Payload)
	require.True(t, ok)
	assert.Equal(t, orderID, in.OrderID)
	assert.Equal(t, "demo", in.ClientID)
	assert.Equal(t, "twap", in.AlgoType)

	act, ok := codec.DecodeAlgoOrderAction(frames[1].Payload)
	require.True(t, ok)
	assert.Equal(t, actionID, act.OrderActionID)
	assert.Equal(t, orderID, act.OrderID)
}

func TestConcurrentSubmissionsJournalInIDOrder(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := f.core.InsertLimitOrder(OrderSpec{
					InstrumentID: "600000", ExchangeID: schema.ExchangeSSE, AccountID: "15040900",
					LimitPrice: 10, Volume: 100, Side: schema.SideBuy,
				}); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	// Ids must appear in the journal in issue order: the frame at the next
	// sequence number always carries the next-larger order id.
	frames := f.commandFrames(t)
	require.Len(t, frames, workers*perWorker+1) // account announcement first
	var lastID uint64
	for _, frame := range frames[1:] {
		input, ok := codec.DecodeOrderInput(frame.Payload)
		require.True(t, ok)
		require.Greater(t, input.OrderID, lastID)
		lastID = input.OrderID
	}
}

// catalogCheckingGateway fails the test if activation happens before the
// account row is in the catalog.
type catalogCheckingGateway struct {
	t         *testing.T
	registry  *registry.DB
	activated bool
}

func (g *catalogCheckingGateway) ActivateFeed(string) gateway.ReadinessState {
	return gateway.StateNotReady
}

func (g *catalogCheckingGateway) ActivateAccount(_, accountID string) (gateway.ReadinessState, schema.AccountType) {
	g.activated = true
	accounts, err := g.registry.Accounts(context.Background())
	require.NoError(g.t, err)
	require.Len(g.t, accounts, 1)
	require.Equal(g.t, accountID, accounts[0].AccountID)
	return gateway.StateReady, schema.AccountTypeStock
}

func (g *catalogCheckingGateway) Subscribe(string, []schema.Instrument) gateway.ReadinessState {
	return gateway.StateNotReady
}

func TestAddAccountPersistsBeforeActivation(t *testing.T) {
	baseDir := t.TempDir()
	db, err := registry.Open(baseDir + "/registry.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gw := &catalogCheckingGateway{t: t, registry: db}
	core, err := New(context.Background(), Config{
		Name:       "demo",
		BaseDir:    baseDir,
		Registry:   db,
		Gateway:    gw,
		Calendar:   calendar.NewSessionCalendar(),
		Calculator: portfolio.NewTracker(),
	})
	require.NoError(t, err)
	defer core.Close()

	ready, err := core.AddAccount(context.Background(), "xtp", "15040900", 1_000_000)
	require.NoError(t, err)
	assert.True(t, ready)
	assert.True(t, gw.activated)

	// The classification reported at activation ends up in the catalog.
	accounts, err := db.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, schema.AccountTypeStock, accounts[0].Type)
}

func TestAddMarketSourcePersistsWhenFeedNotReady(t *testing.T) {
	f := newCoreFixture(t)

	ready, err := f.core.AddMarketSource(context.Background(), "ctp", []schema.Instrument{
		{InstrumentID: "rb2610", ExchangeID: schema.ExchangeSHFE},
	})
	require.NoError(t, err)
	assert.False(t, ready) // loopback never saw a PrepareSource for ctp

	sources, err := f.registry.Sources(context.Background())
	require.NoError(t, err)
	assert.Contains(t, sources, "ctp")
	assert.True(t, f.core.IsSubscribed("rb2610", schema.ExchangeSHFE))
	assert.False(t, f.core.IsSubscribed("rb2610", schema.ExchangeSSE))
}

func TestAddAccountPersistsWhenGatewayNotReady(t *testing.T) {
	f := newCoreFixture(t)

	ready, err := f.core.AddAccount(context.Background(), "ctp", "77001", 500_000)
	require.NoError(t, err)
	assert.False(t, ready)

	accounts, err := f.registry.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "77001", accounts[0].AccountID)
	assert.Equal(t, "demo", accounts[0].ClientID)
	assert.True(t, f.calc.HasAccount("77001"))

	// Orders against the registered account are accepted even though the
	// gateway was not ready at registration time.
	_, err = f.core.InsertLimitOrder(OrderSpec{
		InstrumentID: "rb2610",
		ExchangeID:   schema.ExchangeSHFE,
		AccountID:    "77001",
		LimitPrice:   3500,
		Volume:       1,
		Side:         schema.SideBuy,
	})
	require.NoError(t, err)
}

func TestLiveOwnershipFilter(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)

	instr, _ := schema.NewStr32("600000")
	exch, _ := schema.NewStr16(schema.ExchangeSSE)
	own, _ := schema.NewStr32("demo")
	other, _ := schema.NewStr32("someone-else")

	f.core.OnTrade(schema.Trade{
		InstrumentID: instr, ExchangeID: exch, ClientID: other,
		Price: 99, Volume: 500, Side: schema.SideBuy,
	}, 1)
	assert.Zero(t, f.core.Position("600000", schema.ExchangeSSE).Volume)

	f.core.OnTrade(schema.Trade{
		InstrumentID: instr, ExchangeID: exch, ClientID: own,
		Price: 10, Volume: 100, Side: schema.SideBuy,
	}, 2)
	assert.Equal(t, int64(100), f.core.Position("600000", schema.ExchangeSSE).Volume)
}

func TestLastQuoteCache(t *testing.T) {
	f := newCoreFixture(t)

	_, ok := f.core.LastQuote("600000", schema.ExchangeSSE)
	assert.False(t, ok)

	instr, _ := schema.NewStr32("600000")
	exch, _ := schema.NewStr16(schema.ExchangeSSE)
	f.core.OnQuote(schema.Quote{InstrumentID: instr, ExchangeID: exch, LastPrice: 10.1}, 1)
	f.core.OnQuote(schema.Quote{InstrumentID: instr, ExchangeID: exch, LastPrice: 10.2}, 2)

	quote, ok := f.core.LastQuote("600000", schema.ExchangeSSE)
	require.True(t, ok)
	assert.InDelta(t, 10.2, quote.LastPrice, 1e-9)
}

func TestPushByMinuteGatesOnSession(t *testing.T) {
	f := newCoreFixture(t)
	ctx := context.Background()

	_, err := f.core.Subscribe("xtp", []schema.Instrument{{InstrumentID: "600000", ExchangeID: schema.ExchangeSSE}})
	require.NoError(t, err)

	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	open := time.Date(2026, 8, 27, 10, 0, 0, 0, loc)   // Thursday, in session
	closed := time.Date(2026, 8, 29, 10, 0, 0, 0, loc) // Saturday

	require.NoError(t, f.core.PushByMinute(ctx, closed))
	n, err := f.registry.MinuteSnapshotCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, f.core.PushByMinute(ctx, open))
	n, err = f.registry.MinuteSnapshotCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPushByMinuteGatesOnAccountSession(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)
	ctx := context.Background()

	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	open := time.Date(2026, 8, 27, 10, 0, 0, 0, loc)   // Thursday, SSE in session
	closed := time.Date(2026, 8, 29, 10, 0, 0, 0, loc) // Saturday

	require.NoError(t, f.core.PushByMinute(ctx, closed))
	n, err := f.registry.MinuteSnapshotCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, f.core.PushByMinute(ctx, open))
	n, err = f.registry.MinuteSnapshotCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPushByMinuteIdleStrategySkips(t *testing.T) {
	f := newCoreFixture(t)
	ctx := context.Background()

	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	open := time.Date(2026, 8, 27, 10, 0, 0, 0, loc) // Thursday, in session

	// No accounts and no subscriptions: nothing worth a minute row, even
	// during trading hours.
	require.NoError(t, f.core.PushByMinute(ctx, open))
	n, err := f.registry.MinuteSnapshotCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPushByDayOverwritesSameDay(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)
	ctx := context.Background()

	f.core.cfg.Calendar.SwitchDay("20260827")
	require.NoError(t, f.core.PushByDay(ctx))
	require.NoError(t, f.core.PushByDay(ctx))

	payload, ok, err := f.registry.DaySnapshot(ctx, "20260827")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, payload)
}

func TestMetricsCountSubmissions(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)

	_, _ = f.core.InsertLimitOrder(OrderSpec{
		InstrumentID: "600000", ExchangeID: schema.ExchangeSSE, AccountID: "15040900",
		LimitPrice: 10, Volume: 100, Side: schema.SideBuy,
	})
	_, _ = f.core.InsertLimitOrder(OrderSpec{
		InstrumentID: "600000", ExchangeID: schema.ExchangeSSE, AccountID: "unknown",
		LimitPrice: 10, Volume: 100, Side: schema.SideBuy,
	})

	snap := f.core.cfg.Metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.OrdersSubmitted)
	assert.Equal(t, uint64(1), snap.OrdersRejected)
}

func TestCommandJournalSurvivesRestart(t *testing.T) {
	f := newCoreFixture(t)
	f.registerAccount(t)

	_, err := f.core.InsertLimitOrder(OrderSpec{
		InstrumentID: "600000", ExchangeID: schema.ExchangeSSE, AccountID: "15040900",
		LimitPrice: 10, Volume: 100, Side: schema.SideBuy,
	})
	require.NoError(t, err)
	require.NoError(t, f.core.Close())

	reopened, err := New(context.Background(), Config{
		Name:       "demo",
		BaseDir:    f.baseDir,
		Registry:   f.registry,
		Gateway:    f.loopback,
		Calendar:   calendar.NewSessionCalendar(),
		Calculator: f.calc,
	})
	require.NoError(t, err)

	_, err = reopened.InsertAlgoOrder("twap", "{}")
	require.NoError(t, err)
	require.NoError(t, reopened.Close())

	// Sequence numbers continue across the restart with no gap.
	stream := journal.CommandStream(f.baseDir, "demo")
	reader, err := journal.OpenMerge([]journal.Stream{stream}, 0, journal.ReaderOptions{})
	require.NoError(t, err)
	defer reader.Close()

	var last uint64
	for {
		frame, ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.Equal(t, last+1, frame.Header.Seq)
		last = frame.Header.Seq
	}
	assert.Equal(t, uint64(3), last)
}
