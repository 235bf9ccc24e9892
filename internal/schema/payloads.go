package schema

// Quote is the payload for KindQuote frames written by market-feed processes.
type Quote struct {
	InstrumentID Str32
	ExchangeID   Str16
	LastPrice    float64
	BidPrice     float64
	AskPrice     float64
	BidVolume    int64
	AskVolume    int64
}

// Symbol returns the instrument@exchange key for this quote.
func (q Quote) Symbol() string {
	return Symbol(q.InstrumentID.String(), q.ExchangeID.String())
}

// OrderInput is the payload for KindOrderInput frames appended to the
// strategy's own command stream. Consumed once by the execution gateway.
type OrderInput struct {
	OrderID         uint64
	InstrumentID    Str32
	ExchangeID      Str16
	AccountID       Str32
	ClientID        Str32
	LimitPrice      float64
	FrozenPrice     float64
	Volume          int64
	Side            Side
	Offset          Offset
	PriceType       PriceType
	TimeCondition   TimeCondition
	VolumeCondition VolumeCondition
	Flags           uint16
}

// OrderAction is the payload for KindOrderAction frames. It references a
// prior order id; whether that order still exists or is cancellable is the
// execution gateway's concern, not the writer's.
type OrderAction struct {
	OrderActionID uint64
	OrderID       uint64
	ActionFlag    ActionFlag
	Flags         uint16
}

// AlgoOrderInput is the JSON payload for KindAlgoOrderInput frames. AlgoType
// and Input are opaque to this core; the algo service defines them.
type AlgoOrderInput struct {
	OrderID  uint64 `json:"orderId"`
	ClientID string `json:"clientId"`
	AlgoType string `json:"algoType"`
	Input    string `json:"input"`
}

// AlgoOrderAction is the JSON payload for KindAlgoOrderAction frames.
type AlgoOrderAction struct {
	OrderActionID uint64 `json:"orderActionId"`
	OrderID       uint64 `json:"orderId"`
	Action        string `json:"action"`
}

// Order is the payload for KindOrder frames: an execution report flowing back
// through a trade stream. ClientID tags the owning strategy.
type Order struct {
	OrderID      uint64
	InstrumentID Str32
	ExchangeID   Str16
	AccountID    Str32
	ClientID     Str32
	LimitPrice   float64
	Volume       int64
	VolumeTraded int64
	VolumeLeft   int64
	Status       OrderStatus
	Side         Side
	Offset       Offset
}

// Trade is the payload for KindTrade frames: a fill flowing back through a
// trade stream. ClientID tags the owning strategy.
type Trade struct {
	TradeID      uint64
	OrderID      uint64
	InstrumentID Str32
	ExchangeID   Str16
	AccountID    Str32
	ClientID     Str32
	Price        float64
	Volume       int64
	Side         Side
	Offset       Offset
}

// AccountInfo announces an account a strategy uses.
type AccountInfo struct {
	AccountID string      `json:"accountId"`
	SourceID  string      `json:"sourceId"`
	ClientID  string      `json:"clientId"`
	Type      AccountType `json:"type"`
	InitCash  float64     `json:"initCash"`
}
