// Package uid produces restart-safe 64-bit order identifiers. An id packs
// the wall-clock second, the owning worker, and a per-second counter, so
// ids stay unique across process restarts without any coordination beyond
// the worker-id assignment.
package uid

import (
	"fmt"
	"sync"
	"time"
)

const (
	// Epoch is the zero second of the id timestamp field: 2017-01-01 UTC.
	Epoch int64 = 1483228800

	workerBits = 10
	seqBits    = 22

	// MaxWorkerID is the largest assignable worker id. Zero is reserved.
	MaxWorkerID = 1<<workerBits - 1

	maxSeq = 1<<seqBits - 1
)

// Generator hands out ids of the form
//
//	(second-since-epoch)<<32 | worker<<22 | sequence
//
// The sequence resets every second. When a single second exhausts all
// sequence values the generator blocks until the clock moves on, rather
// than reuse or skip ids.
type Generator struct {
	workerID uint64

	mu      sync.Mutex
	lastSec int64
	seq     uint64

	clock func() time.Time
	sleep func(time.Duration)
}

func NewGenerator(workerID int) (*Generator, error) {
	if workerID <= 0 || workerID > MaxWorkerID {
		return nil, fmt.Errorf("worker id %d out of range [1, %d]", workerID, MaxWorkerID)
	}
	return &Generator{
		workerID: uint64(workerID),
		clock:    time.Now,
		sleep:    time.Sleep,
	}, nil
}

// NextID returns the next unique id. It never fails; it may block briefly
// under extreme submission rates.
func (g *Generator) NextID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		sec := g.clock().Unix()
		if sec < g.lastSec {
			// Clock went backwards. Keep issuing against the highest second
			// seen so ids never repeat.
			sec = g.lastSec
		}
		if sec > g.lastSec {
			g.lastSec = sec
			g.seq = 0
		}
		if g.seq <= maxSeq {
			id := uint64(g.lastSec-Epoch)<<(workerBits+seqBits) | g.workerID<<seqBits | g.seq
			g.seq++
			return id
		}
		g.sleep(time.Millisecond)
	}
}

// WorkerID extracts the worker field from an id.
func WorkerID(id uint64) int {
	return int(id >> seqBits & MaxWorkerID)
}

// EpochSecond extracts the wall-clock second an id was issued at.
func EpochSecond(id uint64) int64 {
	return int64(id>>(workerBits+seqBits)) + Epoch
}

// Sequence extracts the per-second counter from an id.
func Sequence(id uint64) uint64 {
	return id & maxSeq
}
