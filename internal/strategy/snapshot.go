package strategy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/portfolio"
	"main/internal/schema"
)

func snapshotJSON(snap portfolio.PortfolioSnapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// PushByMinute records and publishes the minute portfolio snapshot. Outside
// every relevant trading session the tick is dropped, so quiet hours do not
// pile up identical rows.
func (c *Core) PushByMinute(ctx context.Context, now time.Time) error {
	if !c.anySessionOpen(now) {
		return nil
	}
	snap := c.cfg.Calculator.Snapshot()
	if snap.TradingDay == "" {
		snap.TradingDay = c.cfg.Calendar.TradingDay()
	}

	payload, err := snapshotJSON(snap)
	if err != nil {
		return err
	}
	if err := c.cfg.Registry.SaveMinuteSnapshot(ctx, snap.UpdateTime, snap.TradingDay, payload); err != nil {
		return err
	}
	if c.cfg.Broadcast != nil {
		c.cfg.Broadcast.PortfolioMinute(snap)
	}
	if c.cfg.Archive != nil {
		c.cfg.Archive.SaveMinute(snap)
	}
	return nil
}

// PushByDay records and publishes the end-of-day snapshot. Repeated pushes
// for the same trading day overwrite, so the stored row is always the last
// word on the day.
func (c *Core) PushByDay(ctx context.Context) error {
	snap := c.cfg.Calculator.Snapshot()
	if snap.TradingDay == "" {
		snap.TradingDay = c.cfg.Calendar.TradingDay()
	}

	payload, err := snapshotJSON(snap)
	if err != nil {
		return err
	}
	if err := c.cfg.Registry.SaveDaySnapshot(ctx, snap.UpdateTime, snap.TradingDay, payload); err != nil {
		return err
	}
	if c.cfg.Broadcast != nil {
		c.cfg.Broadcast.PortfolioDay(snap)
	}
	if c.cfg.Archive != nil {
		c.cfg.Archive.SaveDay(snap)
	}
	logs.Infof("day snapshot pushed. day: %s, dynamic equity: %.2f", snap.TradingDay, snap.DynamicEquity)
	return nil
}

// anySessionOpen reports whether a session relevant to this strategy is
// currently trading. Stock and credit accounts follow the SSE session,
// futures accounts follow SHFE, and subscribed instruments follow their own
// venue. Nothing registered means nothing worth snapshotting, so the gate
// stays closed.
func (c *Core) anySessionOpen(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, acc := range c.accounts {
		switch acc.record.Type {
		case schema.AccountTypeStock, schema.AccountTypeCredit:
			if c.cfg.Calendar.IsOpen(now, schema.ExchangeSSE) {
				return true
			}
		case schema.AccountTypeFuture:
			if c.cfg.Calendar.IsOpen(now, schema.ExchangeSHFE) {
				return true
			}
		}
	}
	for _, set := range c.subscribed {
		for _, inst := range set {
			if c.cfg.Calendar.IsOpen(now, inst.ExchangeID) {
				return true
			}
		}
	}
	return false
}
