// Package portfolio maintains the strategy's view of positions, cash and
// profit. The live path and startup replay both feed it through the same
// Calculator interface, so a recovered portfolio is bit-for-bit the one a
// never-restarted process would hold.
package portfolio

import "main/internal/schema"

// Calculator consumes journal events and answers portfolio queries. OnQuote,
// OnOrder and OnTrade carry the frame receive time; implementations track
// the highest time applied as their watermark.
type Calculator interface {
	OnQuote(quote schema.Quote, recvTime int64)
	OnOrder(order schema.Order, recvTime int64)
	OnTrade(trade schema.Trade, recvTime int64)
	OnAccount(account schema.AccountInfo)

	HasAccount(accountID string) bool
	Watermark() int64
	AdoptSession(tradingDay string)
	Snapshot() PortfolioSnapshot

	Position(instrumentID, exchangeID string) PositionEntry
	Positions() []PositionEntry
}

// PositionEntry is the tracked state of one instrument.
type PositionEntry struct {
	InstrumentID string  `json:"instrumentId"`
	ExchangeID   string  `json:"exchangeId"`
	Volume       int64   `json:"volume"`
	AvgPrice     float64 `json:"avgPrice"`
	LastPrice    float64 `json:"lastPrice"`
}

// PortfolioSnapshot is the published equity view at a point in time.
type PortfolioSnapshot struct {
	UpdateTime          int64   `json:"updateTime"`
	TradingDay          string  `json:"tradingDay"`
	InitialEquity       float64 `json:"initialEquity"`
	StaticEquity        float64 `json:"staticEquity"`
	DynamicEquity       float64 `json:"dynamicEquity"`
	AccumulatedPnL      float64 `json:"accumulatedPnl"`
	AccumulatedPnLRatio float64 `json:"accumulatedPnlRatio"`
	IntradayPnL         float64 `json:"intradayPnl"`
	IntradayPnLRatio    float64 `json:"intradayPnlRatio"`
}
