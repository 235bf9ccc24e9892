package codec

import (
	"encoding/binary"
	"math"

	"main/internal/schema"
)

const (
	OrderPayloadSize = 160
	TradePayloadSize = 152
)

// EncodeOrder serializes an execution report into a fixed-size payload.
func EncodeOrder(dst []byte, o schema.Order) []byte {
	if cap(dst) < OrderPayloadSize {
		dst = make([]byte, OrderPayloadSize)
	} else {
		dst = dst[:OrderPayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], o.OrderID)
	copy(dst[8:40], o.InstrumentID[:])
	copy(dst[40:56], o.ExchangeID[:])
	copy(dst[56:88], o.AccountID[:])
	copy(dst[88:120], o.ClientID[:])
	binary.LittleEndian.PutUint64(dst[120:128], math.Float64bits(o.LimitPrice))
	binary.LittleEndian.PutUint64(dst[128:136], uint64(o.Volume))
	binary.LittleEndian.PutUint64(dst[136:144], uint64(o.VolumeTraded))
	binary.LittleEndian.PutUint64(dst[144:152], uint64(o.VolumeLeft))
	binary.LittleEndian.PutUint16(dst[152:154], uint16(o.Status))
	binary.LittleEndian.PutUint16(dst[154:156], uint16(o.Side))
	binary.LittleEndian.PutUint16(dst[156:158], uint16(o.Offset))
	binary.LittleEndian.PutUint16(dst[158:160], 0)

	return dst
}

// DecodeOrder parses a fixed-size execution report payload.
func DecodeOrder(src []byte) (schema.Order, bool) {
	if len(src) < OrderPayloadSize {
		return schema.Order{}, false
	}
	var o schema.Order
	o.OrderID = binary.LittleEndian.Uint64(src[0:8])
	copy(o.InstrumentID[:], src[8:40])
	copy(o.ExchangeID[:], src[40:56])
	copy(o.AccountID[:], src[56:88])
	copy(o.ClientID[:], src[88:120])
	o.LimitPrice = math.Float64frombits(binary.LittleEndian.Uint64(src[120:128]))
	o.Volume = int64(binary.LittleEndian.Uint64(src[128:136]))
	o.VolumeTraded = int64(binary.LittleEndian.Uint64(src[136:144]))
	o.VolumeLeft = int64(binary.LittleEndian.Uint64(src[144:152]))
	o.Status = schema.OrderStatus(binary.LittleEndian.Uint16(src[152:154]))
	o.Side = schema.Side(binary.LittleEndian.Uint16(src[154:156]))
	o.Offset = schema.Offset(binary.LittleEndian.Uint16(src[156:158]))
	return o, true
}

// EncodeTrade serializes a fill into a fixed-size payload.
func EncodeTrade(dst []byte, t schema.Trade) []byte {
	if cap(dst) < TradePayloadSize {
		dst = make([]byte, TradePayloadSize)
	} else {
		dst = dst[:TradePayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], t.TradeID)
	binary.LittleEndian.PutUint64(dst[8:16], t.OrderID)
	copy(dst[16:48], t.InstrumentID[:])
	copy(dst[48:64], t.ExchangeID[:])
	copy(dst[64:96], t.AccountID[:])
	copy(dst[96:128], t.ClientID[:])
	binary.LittleEndian.PutUint64(dst[128:136], math.Float64bits(t.Price))
	binary.LittleEndian.PutUint64(dst[136:144], uint64(t.Volume))
	binary.LittleEndian.PutUint16(dst[144:146], uint16(t.Side))
	binary.LittleEndian.PutUint16(dst[146:148], uint16(t.Offset))
	binary.LittleEndian.PutUint32(dst[148:152], 0)

	return dst
}

// DecodeTrade parses a fixed-size fill payload.
func DecodeTrade(src []byte) (schema.Trade, bool) {
	if len(src) < TradePayloadSize {
		return schema.Trade{}, false
	}
	var t schema.Trade
	t.TradeID = binary.LittleEndian.Uint64(src[0:8])
	t.OrderID = binary.LittleEndian.Uint64(src[8:16])
	copy(t.InstrumentID[:], src[16:48])
	copy(t.ExchangeID[:], src[48:64])
	copy(t.AccountID[:], src[64:96])
	copy(t.ClientID[:], src[96:128])
	t.Price = math.Float64frombits(binary.LittleEndian.Uint64(src[128:136]))
	t.Volume = int64(binary.LittleEndian.Uint64(src[136:144]))
	t.Side = schema.Side(binary.LittleEndian.Uint16(src[144:146]))
	t.Offset = schema.Offset(binary.LittleEndian.Uint16(src[146:148]))
	return t, true
}
