package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"main/internal/schema"
)

var (
	ErrStreamLocked    = errors.New("journal stream already has a writer")
	ErrWriterClosed    = errors.New("journal writer closed")
	ErrPayloadTooLarge = errors.New("journal payload too large")
)

// Writer appends frames to one stream. It is the stream's single writer: a
// lock file taken at construction refuses a second writer on the same
// stream. Append stamps the receive time, assigns the next contiguous
// sequence number, and does not return until the frame is synced to disk.
// Any I/O error poisons the writer permanently, because the stream must not
// skip sequence numbers.
type Writer struct {
	cfg    Config
	stream Stream

	mu        sync.Mutex
	lock      *os.File
	seg       *segmentFile
	segID     uint64
	seq       uint64
	headerBuf [frameHeaderSize]byte
	err       error
	closed    bool
}

type segmentFile struct {
	file *os.File
	size int64
}

// NewWriter locks the stream and positions the sequence counter after the
// last durable frame, so a restarted writer continues without gaps.
func NewWriter(stream Stream, cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stream.Folder, 0o755); err != nil {
		return nil, err
	}

	lock, err := os.OpenFile(stream.lockPath(), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%s: %w", stream, ErrStreamLocked)
		}
		return nil, err
	}
	fmt.Fprintf(lock, "%d\n", os.Getpid())

	w := &Writer{cfg: cfg, stream: stream, lock: lock}
	if err := w.resume(); err != nil {
		lock.Close()
		os.Remove(stream.lockPath())
		return nil, err
	}
	return w, nil
}

// Append durably persists one frame and returns its sequence number.
func (w *Writer) Append(kind schema.FrameKind, payload []byte) (uint64, error) {
	seq, _, err := w.AppendStamped(kind, payload)
	return seq, err
}

// AppendStamped is Append plus the receive time assigned to the frame.
func (w *Writer) AppendStamped(kind schema.FrameKind, payload []byte) (uint64, int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, 0, ErrWriterClosed
	}
	if w.err != nil {
		return 0, 0, w.err
	}
	if len(payload) > w.cfg.MaxPayloadSize {
		return 0, 0, ErrPayloadTooLarge
	}

	recordSize := int64(frameHeaderSize + len(payload) + frameChecksumSize)
	if w.seg == nil || w.seg.size+recordSize > w.cfg.SegmentMaxBytes {
		if err := w.rotate(); err != nil {
			return 0, 0, w.poison(err)
		}
	}

	recvTime := w.cfg.Clock().UnixNano()
	header := schema.NewHeader(kind, w.cfg.Origin, w.seq+1, recvTime)
	encodeFrameHeader(w.headerBuf[:], header, len(payload))

	var checksumBuf [frameChecksumSize]byte
	putChecksum(checksumBuf[:], checksum(w.headerBuf[:], payload))

	if _, err := w.seg.file.Write(w.headerBuf[:]); err != nil {
		return 0, 0, w.poison(err)
	}
	if len(payload) > 0 {
		if _, err := w.seg.file.Write(payload); err != nil {
			return 0, 0, w.poison(err)
		}
	}
	if _, err := w.seg.file.Write(checksumBuf[:]); err != nil {
		return 0, 0, w.poison(err)
	}
	if err := w.seg.file.Sync(); err != nil {
		return 0, 0, w.poison(err)
	}

	w.seg.size += recordSize
	w.seq++
	return w.seq, recvTime, nil
}

// Sequence returns the sequence number of the last appended frame.
func (w *Writer) Sequence() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

// Err returns the error that poisoned the writer, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close releases the stream lock. The stream itself is never deleted.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var first error
	if w.seg != nil {
		if err := w.seg.file.Sync(); err != nil && first == nil {
			first = err
		}
		if err := w.seg.file.Close(); err != nil && first == nil {
			first = err
		}
		w.seg = nil
	}
	if err := w.lock.Close(); err != nil && first == nil {
		first = err
	}
	if err := os.Remove(w.stream.lockPath()); err != nil && first == nil {
		first = err
	}
	return first
}

func (w *Writer) poison(err error) error {
	if w.err == nil {
		w.err = err
	}
	return w.err
}

func (w *Writer) rotate() error {
	if w.seg != nil {
		if err := w.seg.file.Sync(); err != nil {
			w.seg.file.Close()
			return err
		}
		if err := w.seg.file.Close(); err != nil {
			return err
		}
		w.seg = nil
	}

	ts := time.Now().UTC().Format("20060102-150405")
	for {
		w.segID++
		name := fmt.Sprintf("%s%s-%06d%s", w.stream.prefix(), ts, w.segID, segmentExt)
		path := filepath.Join(w.stream.Folder, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return err
		}
		w.seg = &segmentFile{file: file}
		return nil
	}
}

// resume scans existing segments and continues the sequence after the last
// readable frame.
func (w *Writer) resume() error {
	files, err := collectSegments(w.stream)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	w.segID = uint64(len(files))

	last := files[len(files)-1]
	file, err := os.Open(last)
	if err != nil {
		return err
	}
	defer file.Close()

	r := NewReader(file, ReaderOptions{MaxPayloadSize: w.cfg.MaxPayloadSize})
	for {
		header, _, err := r.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("resume %s: %w", last, err)
		}
		w.seq = header.Seq
	}
}

func collectSegments(stream Stream) ([]string, error) {
	entries, err := os.ReadDir(stream.Folder)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	prefix := stream.prefix()
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		files = append(files, filepath.Join(stream.Folder, name))
	}
	sort.Strings(files)
	return files, nil
}
