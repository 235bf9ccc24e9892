// Package journal implements the append-only frame log shared between the
// strategy core and its execution/market-data gateways: fixed-header binary
// records with CRC32C checksums, a durable single-writer appender, and a
// multi-stream merge reader used for startup recovery.
package journal

import (
	"fmt"
	"path/filepath"
)

const segmentExt = ".jnl"

// Stream identifies one append-only log: a folder plus a logical name.
// Physical form is a set of name-prefixed segment files inside the folder,
// strictly ordered by filename.
type Stream struct {
	Folder string
	Name   string
}

func (s Stream) String() string {
	return s.Folder + "/" + s.Name
}

func (s Stream) prefix() string {
	return s.Name + "-"
}

func (s Stream) lockPath() string {
	return filepath.Join(s.Folder, s.Name+".lock")
}

// CommandStream is the strategy's own order-command log.
func CommandStream(baseDir, name string) Stream {
	return Stream{
		Folder: filepath.Join(baseDir, "strategy", name, "journal"),
		Name:   name,
	}
}

// MarketStream is the quote log written by a market-feed process.
func MarketStream(baseDir, sourceID string) Stream {
	return Stream{
		Folder: filepath.Join(baseDir, "md", sourceID, "journal"),
		Name:   sourceID,
	}
}

// TradeStream is the execution-report log written by a trade-gateway process
// for one account.
func TradeStream(baseDir, sourceID, accountID string) Stream {
	return Stream{
		Folder: filepath.Join(baseDir, "td", sourceID, accountID, "journal"),
		Name:   fmt.Sprintf("%s_%s", sourceID, accountID),
	}
}
