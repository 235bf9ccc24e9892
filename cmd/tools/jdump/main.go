package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"main/internal/codec"
	"main/internal/journal"
	"main/internal/schema"
)

func main() {
	dir := flag.String("dir", "", "Stream folder containing segment files")
	name := flag.String("name", "", "Stream name (segment file prefix)")
	watermark := flag.Int64("watermark", 0, "Skip frames at or below this receive time (ns)")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	decode := flag.Bool("decode", false, "Decode known payload types")
	flag.Parse()

	if *dir == "" || *name == "" {
		log.Fatal("both -dir and -name are required")
	}

	stream := journal.Stream{Folder: *dir, Name: *name}
	reader, err := journal.OpenMerge([]journal.Stream{stream}, *watermark, journal.ReaderOptions{
		DisableChecksum: *noChecksum,
	})
	if err != nil {
		log.Fatalf("open stream failed: %v", err)
	}
	defer reader.Close()

	var index int
	for {
		frame, ok, err := reader.Next()
		if err != nil {
			log.Fatalf("read frame failed: %v", err)
		}
		if !ok {
			return
		}
		index++
		fmt.Printf("%06d seq=%d kind=%s recv=%s len=%d\n",
			index, frame.Header.Seq, kindName(frame.Header.Kind),
			time.Unix(0, frame.Header.RecvTime).UTC().Format(time.RFC3339Nano),
			len(frame.Payload))
		if *decode {
			printDecoded(frame.Header.Kind, frame.Payload)
		}
	}
}

func kindName(kind schema.FrameKind) string {
	switch kind {
	case schema.KindQuote:
		return "quote"
	case schema.KindOrder:
		return "order"
	case schema.KindTrade:
		return "trade"
	case schema.KindOrderInput:
		return "order_input"
	case schema.KindOrderAction:
		return "order_action"
	case schema.KindAlgoOrderInput:
		return "algo_order_input"
	case schema.KindAlgoOrderAction:
		return "algo_order_action"
	case schema.KindAccountInfo:
		return "account_info"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(kind))
	}
}

func printDecoded(kind schema.FrameKind, payload []byte) {
	switch kind {
	case schema.KindQuote:
		if q, ok := codec.DecodeQuote(payload); ok {
			fmt.Printf("       %s last=%.4f bid=%.4f ask=%.4f\n", q.Symbol(), q.LastPrice, q.BidPrice, q.AskPrice)
		}
	case schema.KindOrderInput:
		if in, ok := codec.DecodeOrderInput(payload); ok {
			fmt.Printf("       id=%d %s acct=%s px=%.4f vol=%d\n",
				in.OrderID, schema.Symbol(in.InstrumentID.String(), in.ExchangeID.String()),
				in.AccountID.String(), in.LimitPrice, in.Volume)
		}
	case schema.KindOrderAction:
		if act, ok := codec.DecodeOrderAction(payload); ok {
			fmt.Printf("       action=%d order=%d\n", act.OrderActionID, act.OrderID)
		}
	case schema.KindOrder:
		if o, ok := codec.DecodeOrder(payload); ok {
			fmt.Printf("       id=%d status=%d traded=%d left=%d\n", o.OrderID, o.Status, o.VolumeTraded, o.VolumeLeft)
		}
	case schema.KindTrade:
		if t, ok := codec.DecodeTrade(payload); ok {
			fmt.Printf("       trade=%d order=%d px=%.4f vol=%d\n", t.TradeID, t.OrderID, t.Price, t.Volume)
		}
	case schema.KindAlgoOrderInput, schema.KindAlgoOrderAction, schema.KindAccountInfo:
		fmt.Printf("       %s\n", strings.TrimSpace(string(payload)))
	}
}
