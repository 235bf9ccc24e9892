// Package calendar answers trading-session questions for the venues the
// strategy trades on, and sequences day-switch callbacks.
package calendar

import (
	"sync"
	"time"

	"main/internal/schema"
)

type sessionWindow struct {
	openHour, openMin   int
	closeHour, closeMin int
}

// Mainland venues share one timezone; futures venues open earlier in the
// morning and later after the lunch break.
var venueSessions = map[string][]sessionWindow{
	schema.ExchangeSSE:  {{9, 30, 11, 30}, {13, 0, 15, 0}},
	schema.ExchangeSZE:  {{9, 30, 11, 30}, {13, 0, 15, 0}},
	schema.ExchangeSHFE: {{9, 0, 11, 30}, {13, 30, 15, 0}},
}

// DaySwitchHandler observes the trading day rolling over. Handlers run in
// registration order.
type DaySwitchHandler func(tradingDay string)

// SessionCalendar tracks the current trading day and session hours.
type SessionCalendar struct {
	mu         sync.Mutex
	location   *time.Location
	tradingDay string
	handlers   []DaySwitchHandler

	clock func() time.Time
}

func NewSessionCalendar() *SessionCalendar {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	return &SessionCalendar{location: loc, clock: time.Now}
}

// TradingDay returns the current trading day as yyyymmdd. Before the first
// SwitchDay it derives the day from the clock.
func (c *SessionCalendar) TradingDay() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tradingDay != "" {
		return c.tradingDay
	}
	return c.clock().In(c.location).Format("20060102")
}

// ClockDay returns today's date in the venue timezone, regardless of any
// trading day set through SwitchDay.
func (c *SessionCalendar) ClockDay() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock().In(c.location).Format("20060102")
}

// IsOpen reports whether the exchange is in a trading session at t.
// Unknown exchanges and weekends are closed.
func (c *SessionCalendar) IsOpen(t time.Time, exchangeID string) bool {
	sessions, ok := venueSessions[exchangeID]
	if !ok {
		return false
	}
	local := t.In(c.location)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	for _, s := range sessions {
		open := s.openHour*60 + s.openMin
		end := s.closeHour*60 + s.closeMin
		if minutes >= open && minutes < end {
			return true
		}
	}
	return false
}

// IsOpenNow is IsOpen at the current clock reading.
func (c *SessionCalendar) IsOpenNow(exchangeID string) bool {
	return c.IsOpen(c.clock(), exchangeID)
}

// RegisterDaySwitch appends a handler to the day-switch chain.
func (c *SessionCalendar) RegisterDaySwitch(handler DaySwitchHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// SwitchDay rolls the trading day forward and runs the handler chain.
// Switching to the already-current day is a no-op.
func (c *SessionCalendar) SwitchDay(tradingDay string) {
	c.mu.Lock()
	if tradingDay == "" || tradingDay == c.tradingDay {
		c.mu.Unlock()
		return
	}
	c.tradingDay = tradingDay
	handlers := make([]DaySwitchHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, handler := range handlers {
		handler(tradingDay)
	}
}
