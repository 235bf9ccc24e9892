package journal

import (
	"errors"
	"fmt"
	"io"

	"main/internal/schema"
)

var (
	ErrChecksumMismatch = errors.New("journal checksum mismatch")
	ErrTruncatedFrame   = errors.New("journal truncated frame")
)

// Reader decodes frames sequentially from one segment. A clean end of
// segment surfaces as io.EOF from Next; a partial trailing record (a crash
// mid-append) surfaces as ErrTruncatedFrame.
type Reader struct {
	src       io.Reader
	opts      ReaderOptions
	headerBuf [frameHeaderSize]byte
	buf       []byte
}

func NewReader(src io.Reader, opts ReaderOptions) *Reader {
	if opts.MaxPayloadSize <= 0 {
		opts.MaxPayloadSize = defaultMaxPayloadSize
	}
	return &Reader{src: src, opts: opts}
}

// Next returns the next frame. The payload slice is only valid until the
// following call to Next.
func (r *Reader) Next() (schema.FrameHeader, []byte, error) {
	if _, err := io.ReadFull(r.src, r.headerBuf[:]); err != nil {
		if err == io.EOF {
			return schema.FrameHeader{}, nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return schema.FrameHeader{}, nil, ErrTruncatedFrame
		}
		return schema.FrameHeader{}, nil, err
	}

	header, payloadLen, err := decodeFrameHeader(r.headerBuf[:])
	if err != nil {
		return schema.FrameHeader{}, nil, err
	}
	if int(payloadLen) > r.opts.MaxPayloadSize {
		return schema.FrameHeader{}, nil, fmt.Errorf("%w: payload %d bytes", ErrPayloadTooLarge, payloadLen)
	}

	need := int(payloadLen) + frameChecksumSize
	if cap(r.buf) < need {
		r.buf = make([]byte, need)
	}
	r.buf = r.buf[:need]
	if _, err := io.ReadFull(r.src, r.buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return schema.FrameHeader{}, nil, ErrTruncatedFrame
		}
		return schema.FrameHeader{}, nil, err
	}

	payload := r.buf[:payloadLen]
	if !r.opts.DisableChecksum {
		want := getChecksum(r.buf[payloadLen:])
		if got := checksum(r.headerBuf[:], payload); got != want {
			return schema.FrameHeader{}, nil, fmt.Errorf("%w: seq %d", ErrChecksumMismatch, header.Seq)
		}
	}
	return header, payload, nil
}
