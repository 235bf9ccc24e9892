// Package recovery rebuilds a strategy's portfolio at startup by replaying
// its trade and market journals above the persisted watermark.
package recovery

import (
	"context"
	"fmt"

	"github.com/yanun0323/logs"

	"main/internal/codec"
	"main/internal/journal"
	"main/internal/portfolio"
	"main/internal/registry"
	"main/internal/schema"
)

// Config controls one recovery run.
type Config struct {
	BaseDir string

	// Name is the strategy identity. Execution reports and fills are only
	// applied when their client id matches it.
	Name string

	Sources  []string
	Accounts []registry.AccountRecord

	// TradingDay, when set, is adopted by the calculator once replay ends,
	// so the rebuilt portfolio anchors its intraday numbers to today.
	TradingDay string

	Reader journal.ReaderOptions

	// OnQuote, when set, receives every replayed quote after it is applied
	// to the calculator. Used to warm the live quote cache.
	OnQuote func(quote schema.Quote, recvTime int64)
}

// Stats summarizes a recovery run.
type Stats struct {
	Applied   int
	Filtered  int
	Skipped   int
	Watermark int64
}

// Recover replays every trade stream and market stream above the
// calculator's watermark, in receive-time order, through the same handlers
// the live path uses. Frames owned by other strategies are filtered; frames
// of kinds the portfolio does not consume are skipped; a recognized kind
// with an undecodable payload aborts the run, because applying a partial
// event stream would corrupt the rebuilt portfolio.
func Recover(ctx context.Context, calc portfolio.Calculator, cfg Config) (Stats, error) {
	if cfg.BaseDir == "" {
		return Stats{}, fmt.Errorf("recover: base dir is empty")
	}
	if cfg.Name == "" {
		return Stats{}, fmt.Errorf("recover: strategy name is empty")
	}

	var streams []journal.Stream
	for _, account := range cfg.Accounts {
		streams = append(streams, journal.TradeStream(cfg.BaseDir, account.SourceID, account.AccountID))
	}
	for _, source := range cfg.Sources {
		streams = append(streams, journal.MarketStream(cfg.BaseDir, source))
	}

	watermark := calc.Watermark()
	reader, err := journal.OpenMerge(streams, watermark, cfg.Reader)
	if err != nil {
		return Stats{}, err
	}
	defer reader.Close()

	stats := Stats{Watermark: watermark}
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		frame, ok, err := reader.Next()
		if err != nil {
			return stats, err
		}
		if !ok {
			break
		}

		recvTime := frame.Header.RecvTime
		switch frame.Header.Kind {
		case schema.KindQuote:
			quote, ok := codec.DecodeQuote(frame.Payload)
			if !ok {
				return stats, decodeErr(frame)
			}
			calc.OnQuote(quote, recvTime)
			if cfg.OnQuote != nil {
				cfg.OnQuote(quote, recvTime)
			}
			stats.Applied++

		case schema.KindOrder:
			order, ok := codec.DecodeOrder(frame.Payload)
			if !ok {
				return stats, decodeErr(frame)
			}
			if order.ClientID.String() != cfg.Name {
				stats.Filtered++
				continue
			}
			calc.OnOrder(order, recvTime)
			stats.Applied++

		case schema.KindTrade:
			trade, ok := codec.DecodeTrade(frame.Payload)
			if !ok {
				return stats, decodeErr(frame)
			}
			if trade.ClientID.String() != cfg.Name {
				stats.Filtered++
				continue
			}
			calc.OnTrade(trade, recvTime)
			stats.Applied++

		default:
			stats.Skipped++
		}

		if recvTime > stats.Watermark {
			stats.Watermark = recvTime
		}
	}

	if cfg.TradingDay != "" {
		calc.AdoptSession(cfg.TradingDay)
	}

	logs.Infof("recovery done. name: %s, applied: %d, filtered: %d, skipped: %d, watermark: %d",
		cfg.Name, stats.Applied, stats.Filtered, stats.Skipped, stats.Watermark)
	return stats, nil
}

func decodeErr(frame journal.Frame) error {
	return fmt.Errorf("recover: decode %v frame seq %d from %s failed",
		frame.Header.Kind, frame.Header.Seq, frame.Stream)
}
