package journal

import (
	"io"
	"math"
	"os"

	"main/internal/schema"
)

const minRecvTime = math.MinInt64

// Frame is one record surfaced by the merge reader, tagged with the stream
// it came from.
type Frame struct {
	Stream  Stream
	Header  schema.FrameHeader
	Payload []byte
}

// MergeReader replays several streams as one time-ordered sequence. Frames
// are ordered by receive time; when two streams hold frames with the same
// receive time, the stream listed earlier in OpenMerge wins.
type MergeReader struct {
	cursors []*streamCursor
}

type streamCursor struct {
	stream   Stream
	segments []string
	next     int

	file   *os.File
	reader *Reader
	opts   ReaderOptions

	pending Frame
	loaded  bool
}

// OpenMerge positions a cursor on every stream, skipping frames at or below
// the watermark. A stream whose folder does not exist yet is treated as
// empty, not as an error.
func OpenMerge(streams []Stream, watermark int64, opts ReaderOptions) (*MergeReader, error) {
	if opts.MaxPayloadSize <= 0 {
		opts.MaxPayloadSize = defaultMaxPayloadSize
	}
	m := &MergeReader{}
	for _, stream := range streams {
		segments, err := collectSegments(stream)
		if err != nil {
			m.Close()
			return nil, err
		}
		cursor := &streamCursor{stream: stream, segments: segments, opts: opts}
		if err := cursor.advance(watermark); err != nil {
			m.Close()
			return nil, err
		}
		m.cursors = append(m.cursors, cursor)
	}
	return m, nil
}

// Next returns the next frame in merged order. The second result is false
// once every stream is exhausted. The payload is a private copy and stays
// valid after subsequent calls.
func (m *MergeReader) Next() (Frame, bool, error) {
	best := -1
	for i, cursor := range m.cursors {
		if !cursor.loaded {
			continue
		}
		if best < 0 || cursor.pending.Header.RecvTime < m.cursors[best].pending.Header.RecvTime {
			best = i
		}
	}
	if best < 0 {
		return Frame{}, false, nil
	}

	cursor := m.cursors[best]
	frame := cursor.pending
	// The watermark filter only applies up to the first surviving frame.
	if err := cursor.advance(minRecvTime); err != nil {
		return Frame{}, false, err
	}
	return frame, true, nil
}

func (m *MergeReader) Close() error {
	var first error
	for _, cursor := range m.cursors {
		if err := cursor.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// advance loads the next frame with RecvTime strictly above the watermark.
func (c *streamCursor) advance(watermark int64) error {
	c.loaded = false
	for {
		if c.reader == nil {
			if !c.openNext() {
				return nil
			}
		}
		header, payload, err := c.reader.Next()
		if err != nil {
			if err == io.EOF {
				c.closeSegment()
				continue
			}
			return err
		}
		if header.RecvTime <= watermark {
			continue
		}
		c.pending = Frame{
			Stream:  c.stream,
			Header:  header,
			Payload: append([]byte(nil), payload...),
		}
		c.loaded = true
		return nil
	}
}

func (c *streamCursor) openNext() bool {
	for c.next < len(c.segments) {
		path := c.segments[c.next]
		c.next++
		file, err := os.Open(path)
		if err != nil {
			continue
		}
		c.file = file
		c.reader = NewReader(file, c.opts)
		return true
	}
	return false
}

func (c *streamCursor) closeSegment() {
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}
	c.reader = nil
}

func (c *streamCursor) close() error {
	var err error
	if c.file != nil {
		err = c.file.Close()
		c.file = nil
	}
	c.reader = nil
	c.loaded = false
	return err
}
