package codec

import (
	"encoding/binary"
	"math"

	"main/internal/schema"
)

const QuotePayloadSize = 88

// EncodeQuote serializes a quote into a fixed-size payload.
func EncodeQuote(dst []byte, q schema.Quote) []byte {
	if cap(dst) < QuotePayloadSize {
		dst = make([]byte, QuotePayloadSize)
	} else {
		dst = dst[:QuotePayloadSize]
	}

	copy(dst[0:32], q.InstrumentID[:])
	copy(dst[32:48], q.ExchangeID[:])
	binary.LittleEndian.PutUint64(dst[48:56], math.Float64bits(q.LastPrice))
	binary.LittleEndian.PutUint64(dst[56:64], math.Float64bits(q.BidPrice))
	binary.LittleEndian.PutUint64(dst[64:72], math.Float64bits(q.AskPrice))
	binary.LittleEndian.PutUint64(dst[72:80], uint64(q.BidVolume))
	binary.LittleEndian.PutUint64(dst[80:88], uint64(q.AskVolume))

	return dst
}

// DecodeQuote parses a fixed-size quote payload.
func DecodeQuote(src []byte) (schema.Quote, bool) {
	if len(src) < QuotePayloadSize {
		return schema.Quote{}, false
	}
	var q schema.Quote
	copy(q.InstrumentID[:], src[0:32])
	copy(q.ExchangeID[:], src[32:48])
	q.LastPrice = math.Float64frombits(binary.LittleEndian.Uint64(src[48:56]))
	q.BidPrice = math.Float64frombits(binary.LittleEndian.Uint64(src[56:64]))
	q.AskPrice = math.Float64frombits(binary.LittleEndian.Uint64(src[64:72]))
	q.BidVolume = int64(binary.LittleEndian.Uint64(src[72:80]))
	q.AskVolume = int64(binary.LittleEndian.Uint64(src[80:88]))
	return q, true
}
