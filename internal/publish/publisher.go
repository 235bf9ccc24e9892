// Package publish pushes strategy state to NATS for dashboards and risk
// monitors. Delivery is fire and forget: a slow or absent broker never
// stalls the trading path.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/obs"
	"main/internal/portfolio"
	"main/internal/schema"
)

// Connect dials the broker with unlimited reconnects.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// Publisher serializes snapshots onto a bounded queue and drains it to NATS
// on its own goroutine.
type Publisher struct {
	nc      *nats.Conn
	queue   *bus.Queue
	name    string
	metrics *obs.Metrics
}

// NewPublisher wraps an established connection. The queue bounds memory when
// the broker is slow; overflow drops the newest snapshot, since the next
// tick supersedes it anyway.
func NewPublisher(nc *nats.Conn, name string, queueSize int, metrics *obs.Metrics) *Publisher {
	return &Publisher{
		nc:      nc,
		queue:   bus.NewQueue(queueSize),
		name:    name,
		metrics: metrics,
	}
}

// Run drains the queue until the context is done. Call it on a dedicated
// goroutine.
func (p *Publisher) Run(ctx context.Context) {
	p.queue.Run(ctx, func(e bus.Event) {
		if err := p.nc.Publish(e.Subject, e.Data); err != nil {
			logs.Errorf("publish %s failed, err: %+v", e.Subject, err)
			p.metrics.PublishDrops.Add(1)
		}
	})
}

// Close stops accepting snapshots and flushes the connection.
func (p *Publisher) Close() {
	p.queue.Close()
	if err := p.nc.Drain(); err != nil {
		logs.Errorf("drain nats connection, err: %+v", err)
	}
}

// PortfolioLive publishes the rolling portfolio view.
func (p *Publisher) PortfolioLive(snap portfolio.PortfolioSnapshot) {
	p.enqueue(p.subject("portfolio.live"), snap)
}

// PortfolioMinute publishes the minute-close portfolio view.
func (p *Publisher) PortfolioMinute(snap portfolio.PortfolioSnapshot) {
	p.enqueue(p.subject("portfolio.minute"), snap)
}

// PortfolioDay publishes the end-of-day portfolio view.
func (p *Publisher) PortfolioDay(snap portfolio.PortfolioSnapshot) {
	p.enqueue(p.subject("portfolio.day"), snap)
}

// Positions publishes the current position table.
func (p *Publisher) Positions(entries []portfolio.PositionEntry) {
	p.enqueue(p.subject("position"), entries)
}

// Account publishes an account announcement.
func (p *Publisher) Account(info schema.AccountInfo) {
	p.enqueue(p.subject("account"), info)
}

func (p *Publisher) subject(suffix string) string {
	return fmt.Sprintf("strategy.%s.%s", p.name, suffix)
}

func (p *Publisher) enqueue(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logs.Errorf("marshal %s payload, err: %+v", subject, err)
		return
	}
	if err := p.queue.TryPublish(bus.Event{Subject: subject, Data: data}); err != nil {
		p.metrics.PublishDrops.Add(1)
	}
}
