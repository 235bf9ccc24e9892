package schema

// JournalVersion is the current journal frame schema version.
const JournalVersion uint16 = 1

// FrameKind describes the payload carried by a journal frame.
type FrameKind uint16

const (
	KindUnknown FrameKind = iota
	KindQuote
	KindOrder
	KindTrade
	KindOrderInput
	KindOrderAction
	KindAlgoOrderInput
	KindAlgoOrderAction
	KindAccountInfo
)

// FrameHeader is the common metadata attached to every journal frame.
// RecvTime is stamped by the writer at append time and is the ordering
// key used by readers.
type FrameHeader struct {
	Kind     FrameKind
	Version  uint16
	Origin   uint16
	Flags    uint16
	Seq      uint64
	RecvTime int64
}

// NewHeader builds a frame header with the current schema version.
func NewHeader(kind FrameKind, origin uint16, seq uint64, recvTime int64) FrameHeader {
	return FrameHeader{
		Kind:     kind,
		Version:  JournalVersion,
		Origin:   origin,
		Seq:      seq,
		RecvTime: recvTime,
	}
}

// Exchange tags with venue-specific order semantics.
const (
	ExchangeSSE  = "SSE"
	ExchangeSZE  = "SZE"
	ExchangeSHFE = "SHFE"
)

// Symbol joins an instrument and its exchange into the cache/subscription key.
func Symbol(instrumentID, exchangeID string) string {
	return instrumentID + "@" + exchangeID
}

// Instrument identifies a tradable contract on a venue.
type Instrument struct {
	InstrumentID string `json:"instrumentId"`
	ExchangeID   string `json:"exchangeId"`
}

// Side describes order direction.
type Side uint16

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

// Offset describes position intent for futures-style venues.
type Offset uint16

const (
	OffsetUnknown Offset = iota
	OffsetOpen
	OffsetClose
	OffsetCloseToday
	OffsetCloseYesterday
)

// PriceType describes how the venue should price the order.
type PriceType uint16

const (
	PriceTypeUnknown PriceType = iota
	PriceTypeLimit
	PriceTypeAny
	PriceTypeBest5
)

// TimeCondition describes how long the order rests.
type TimeCondition uint16

const (
	TimeConditionUnknown TimeCondition = iota
	TimeConditionGFD
	TimeConditionIOC
)

// VolumeCondition describes the fill-quantity requirement.
type VolumeCondition uint16

const (
	VolumeConditionUnknown VolumeCondition = iota
	VolumeConditionAny
	VolumeConditionAll
)

// ActionFlag describes an order action.
type ActionFlag uint16

const (
	ActionFlagUnknown ActionFlag = iota
	ActionFlagCancel
)

// OrderStatus is the venue-reported order state in execution reports.
type OrderStatus uint16

const (
	OrderStatusUnknown OrderStatus = iota
	OrderStatusSubmitted
	OrderStatusPending
	OrderStatusPartialFilled
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusError
)

// AccountType classifies a trading account.
type AccountType uint16

const (
	AccountTypeUnknown AccountType = iota
	AccountTypeStock
	AccountTypeCredit
	AccountTypeFuture
)
