package journal

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Microsecond)
	return c.now
}

func newFakeClock(unixNano int64) *fakeClock {
	return &fakeClock{now: time.Unix(0, unixNano)}
}

func testStream(t *testing.T, name string) Stream {
	t.Helper()
	return Stream{Folder: filepath.Join(t.TempDir(), "journal"), Name: name}
}

func TestWriterAppendReadRoundTrip(t *testing.T) {
	stream := testStream(t, "alpha")
	clock := newFakeClock(1_700_000_000_000_000_000)

	w, err := NewWriter(stream, Config{Origin: 7, Clock: clock.Now})
	require.NoError(t, err)

	payloads := [][]byte{
		[]byte("first"),
		[]byte(""),
		[]byte("a longer third payload"),
	}
	for i, p := range payloads {
		seq, err := w.Append(schema.KindQuote, p)
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), seq)
	}
	require.NoError(t, w.Close())

	files, err := collectSegments(stream)
	require.NoError(t, err)
	require.Len(t, files, 1)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	r := NewReader(f, ReaderOptions{})
	for i, want := range payloads {
		header, payload, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, schema.KindQuote, header.Kind)
		assert.Equal(t, uint16(7), header.Origin)
		assert.Equal(t, uint64(i+1), header.Seq)
		assert.Equal(t, string(want), string(payload))
		if i > 0 {
			assert.Positive(t, header.RecvTime)
		}
	}
	_, _, err = r.Next()
	require.Equal(t, io.EOF, err)
}

func TestWriterRefusesSecondWriter(t *testing.T) {
	stream := testStream(t, "locked")

	w, err := NewWriter(stream, DefaultConfig())
	require.NoError(t, err)
	defer w.Close()

	_, err = NewWriter(stream, DefaultConfig())
	require.ErrorIs(t, err, ErrStreamLocked)
}

func TestWriterResumesSequenceAfterRestart(t *testing.T) {
	stream := testStream(t, "resumed")

	w, err := NewWriter(stream, DefaultConfig())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := w.Append(schema.KindOrderInput, []byte("cmd"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	w2, err := NewWriter(stream, DefaultConfig())
	require.NoError(t, err)
	defer w2.Close()

	seq, err := w2.Append(schema.KindOrderInput, []byte("cmd"))
	require.NoError(t, err)
	assert.Equal(t, uint64(6), seq)
}

func TestWriterRotatesSegments(t *testing.T) {
	stream := testStream(t, "rotate")

	w, err := NewWriter(stream, Config{SegmentMaxBytes: 128})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := w.Append(schema.KindTrade, make([]byte, 32))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	files, err := collectSegments(stream)
	require.NoError(t, err)
	assert.Greater(t, len(files), 1)

	r, err := OpenMerge([]Stream{stream}, 0, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	var prev uint64
	count := 0
	for {
		frame, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.Equal(t, prev+1, frame.Header.Seq)
		prev = frame.Header.Seq
		count++
	}
	assert.Equal(t, 10, count)
}

func TestWriterRejectsOversizedPayload(t *testing.T) {
	stream := testStream(t, "oversize")

	w, err := NewWriter(stream, Config{MaxPayloadSize: 16})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append(schema.KindQuote, make([]byte, 17))
	require.ErrorIs(t, err, ErrPayloadTooLarge)

	// The writer is still usable: the payload was rejected before any write.
	seq, err := w.Append(schema.KindQuote, make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
}

func TestReaderDetectsCorruption(t *testing.T) {
	stream := testStream(t, "corrupt")

	w, err := NewWriter(stream, DefaultConfig())
	require.NoError(t, err)
	_, err = w.Append(schema.KindQuote, []byte("payload-to-corrupt"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	files, err := collectSegments(stream)
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	data[frameHeaderSize+3] ^= 0xFF
	require.NoError(t, os.WriteFile(files[0], data, 0o644))

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	_, _, err = NewReader(f, ReaderOptions{}).Next()
	require.ErrorIs(t, err, ErrChecksumMismatch)

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, _, err = NewReader(f, ReaderOptions{DisableChecksum: true}).Next()
	require.NoError(t, err)
}

func TestReaderDetectsTruncatedTail(t *testing.T) {
	stream := testStream(t, "truncated")

	w, err := NewWriter(stream, DefaultConfig())
	require.NoError(t, err)
	_, err = w.Append(schema.KindOrder, []byte("complete"))
	require.NoError(t, err)
	_, err = w.Append(schema.KindOrder, []byte("to-be-cut"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	files, err := collectSegments(stream)
	require.NoError(t, err)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(files[0], data[:len(data)-6], 0o644))

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	r := NewReader(f, ReaderOptions{})
	_, _, err = r.Next()
	require.NoError(t, err)
	_, _, err = r.Next()
	require.ErrorIs(t, err, ErrTruncatedFrame)
}

func TestMergeOrdersByRecvTime(t *testing.T) {
	base := t.TempDir()
	command := CommandStream(base, "demo")
	market := MarketStream(base, "xtp")

	clock := newFakeClock(1_000)

	mw, err := NewWriter(market, Config{Clock: clock.Now})
	require.NoError(t, err)
	cw, err := NewWriter(command, Config{Clock: clock.Now})
	require.NoError(t, err)

	// Interleave appends so receive times alternate across streams.
	_, err = mw.Append(schema.KindQuote, []byte("q1"))
	require.NoError(t, err)
	_, err = cw.Append(schema.KindOrderInput, []byte("c1"))
	require.NoError(t, err)
	_, err = mw.Append(schema.KindQuote, []byte("q2"))
	require.NoError(t, err)
	_, err = cw.Append(schema.KindOrderInput, []byte("c2"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	require.NoError(t, cw.Close())

	r, err := OpenMerge([]Stream{command, market}, 0, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	var got []string
	var prev int64
	for {
		frame, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.GreaterOrEqual(t, frame.Header.RecvTime, prev)
		prev = frame.Header.RecvTime
		got = append(got, string(frame.Payload))
	}
	assert.Equal(t, []string{"q1", "c1", "q2", "c2"}, got)
}

func TestMergeTieBreaksByStreamOrder(t *testing.T) {
	base := t.TempDir()
	first := Stream{Folder: filepath.Join(base, "a"), Name: "a"}
	second := Stream{Folder: filepath.Join(base, "b"), Name: "b"}

	fixed := time.Unix(0, 5_000)
	clock := func() time.Time { return fixed }

	for _, pair := range []struct {
		stream  Stream
		payload string
	}{{second, "late-stream"}, {first, "early-stream"}} {
		w, err := NewWriter(pair.stream, Config{Clock: clock})
		require.NoError(t, err)
		_, err = w.Append(schema.KindQuote, []byte(pair.payload))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	r, err := OpenMerge([]Stream{first, second}, 0, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	frame, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "early-stream", string(frame.Payload))

	frame, ok, err = r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "late-stream", string(frame.Payload))
}

func TestMergeSkipsFramesAtOrBelowWatermark(t *testing.T) {
	stream := testStream(t, "watermark")
	clock := newFakeClock(0)

	w, err := NewWriter(stream, Config{Clock: clock.Now})
	require.NoError(t, err)
	var times []int64
	for i := 0; i < 4; i++ {
		_, ts, err := w.AppendStamped(schema.KindTrade, []byte{byte(i)})
		require.NoError(t, err)
		times = append(times, ts)
	}
	require.NoError(t, w.Close())

	r, err := OpenMerge([]Stream{stream}, times[1], ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	var seqs []uint64
	for {
		frame, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seqs = append(seqs, frame.Header.Seq)
	}
	assert.Equal(t, []uint64{3, 4}, seqs)
}

func TestMergeMissingStreamFolderIsEmpty(t *testing.T) {
	base := t.TempDir()
	missing := TradeStream(base, "xtp", "no-such-account")

	r, err := OpenMerge([]Stream{missing}, 0, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	_, ok, err := r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriterCloseReleasesLock(t *testing.T) {
	stream := testStream(t, "relock")

	w, err := NewWriter(stream, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = w.Append(schema.KindQuote, []byte("x"))
	require.ErrorIs(t, err, ErrWriterClosed)

	w2, err := NewWriter(stream, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, w2.Close())
	require.False(t, errors.Is(err, ErrStreamLocked))
}
