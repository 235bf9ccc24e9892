package schema

import (
	"errors"
	"fmt"
)

// ErrStringTooLong is returned when a value exceeds its journal field width.
var ErrStringTooLong = errors.New("value exceeds field width")

// Str16 is a fixed-width journal string field. Unused bytes are zero.
type Str16 [16]byte

// Str32 is a fixed-width journal string field. Unused bytes are zero.
type Str32 [32]byte

// NewStr16 validates and packs s. Over-length input is rejected, not truncated.
func NewStr16(s string) (Str16, error) {
	var v Str16
	if len(s) > len(v) {
		return v, fmt.Errorf("%q: %w (max %d)", s, ErrStringTooLong, len(v))
	}
	copy(v[:], s)
	return v, nil
}

// NewStr32 validates and packs s. Over-length input is rejected, not truncated.
func NewStr32(s string) (Str32, error) {
	var v Str32
	if len(s) > len(v) {
		return v, fmt.Errorf("%q: %w (max %d)", s, ErrStringTooLong, len(v))
	}
	copy(v[:], s)
	return v, nil
}

func (v Str16) String() string { return trimZero(v[:]) }

func (v Str32) String() string { return trimZero(v[:]) }

func trimZero(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
