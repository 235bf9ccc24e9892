package codec

import (
	"encoding/binary"
	"math"

	"main/internal/schema"
)

const (
	OrderInputPayloadSize  = 156
	OrderActionPayloadSize = 24
)

// EncodeOrderInput serializes an order input into a fixed-size payload.
func EncodeOrderInput(dst []byte, in schema.OrderInput) []byte {
	if cap(dst) < OrderInputPayloadSize {
		dst = make([]byte, OrderInputPayloadSize)
	} else {
		dst = dst[:OrderInputPayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], in.OrderID)
	copy(dst[8:40], in.InstrumentID[:])
	copy(dst[40:56], in.ExchangeID[:])
	copy(dst[56:88], in.AccountID[:])
	copy(dst[88:120], in.ClientID[:])
	binary.LittleEndian.PutUint64(dst[120:128], math.Float64bits(in.LimitPrice))
	binary.LittleEndian.PutUint64(dst[128:136], math.Float64bits(in.FrozenPrice))
	binary.LittleEndian.PutUint64(dst[136:144], uint64(in.Volume))
	binary.LittleEndian.PutUint16(dst[144:146], uint16(in.Side))
	binary.LittleEndian.PutUint16(dst[146:148], uint16(in.Offset))
	binary.LittleEndian.PutUint16(dst[148:150], uint16(in.PriceType))
	binary.LittleEndian.PutUint16(dst[150:152], uint16(in.TimeCondition))
	binary.LittleEndian.PutUint16(dst[152:154], uint16(in.VolumeCondition))
	binary.LittleEndian.PutUint16(dst[154:156], in.Flags)

	return dst
}

// DecodeOrderInput parses a fixed-size order input payload.
func DecodeOrderInput(src []byte) (schema.OrderInput, bool) {
	if len(src) < OrderInputPayloadSize {
		return schema.OrderInput{}, false
	}
	var in schema.OrderInput
	in.OrderID = binary.LittleEndian.Uint64(src[0:8])
	copy(in.InstrumentID[:], src[8:40])
	copy(in.ExchangeID[:], src[40:56])
	copy(in.AccountID[:], src[56:88])
	copy(in.ClientID[:], src[88:120])
	in.LimitPrice = math.Float64frombits(binary.LittleEndian.Uint64(src[120:128]))
	in.FrozenPrice = math.Float64frombits(binary.LittleEndian.Uint64(src[128:136]))
	in.Volume = int64(binary.LittleEndian.Uint64(src[136:144]))
	in.Side = schema.Side(binary.LittleEndian.Uint16(src[144:146]))
	in.Offset = schema.Offset(binary.LittleEndian.Uint16(src[146:148]))
	in.PriceType = schema.PriceType(binary.LittleEndian.Uint16(src[148:150]))
	in.TimeCondition = schema.TimeCondition(binary.LittleEndian.Uint16(src[150:152]))
	in.VolumeCondition = schema.VolumeCondition(binary.LittleEndian.Uint16(src[152:154]))
	in.Flags = binary.LittleEndian.Uint16(src[154:156])
	return in, true
}

// EncodeOrderAction serializes an order action into a fixed-size payload.
func EncodeOrderAction(dst []byte, action schema.OrderAction) []byte {
	if cap(dst) < OrderActionPayloadSize {
		dst = make([]byte, OrderActionPayloadSize)
	} else {
		dst = dst[:OrderActionPayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], action.OrderActionID)
	binary.LittleEndian.PutUint64(dst[8:16], action.OrderID)
	binary.LittleEndian.PutUint16(dst[16:18], uint16(action.ActionFlag))
	binary.LittleEndian.PutUint16(dst[18:20], action.Flags)
	binary.LittleEndian.PutUint32(dst[20:24], 0)

	return dst
}

// DecodeOrderAction parses a fixed-size order action payload.
func DecodeOrderAction(src []byte) (schema.OrderAction, bool) {
	if len(src) < OrderActionPayloadSize {
		return schema.OrderAction{}, false
	}
	return schema.OrderAction{
		OrderActionID: binary.LittleEndian.Uint64(src[0:8]),
		OrderID:       binary.LittleEndian.Uint64(src[8:16]),
		ActionFlag:    schema.ActionFlag(binary.LittleEndian.Uint16(src[16:18])),
		Flags:         binary.LittleEndian.Uint16(src[18:20]),
	}, true
}
