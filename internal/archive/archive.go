// Package archive mirrors portfolio snapshots into PostgreSQL for offline
// analysis. The local SQLite registry stays authoritative; the archive is a
// best-effort replica and failures only log.
package archive

import (
	"github.com/yanun0323/logs"

	"main/internal/errors"
	"main/internal/portfolio"
	"main/pkg/conn"
)

// MinuteSnapshot is one intraday portfolio row.
type MinuteSnapshot struct {
	ID                  uint64 `gorm:"primaryKey;autoIncrement"`
	Strategy            string `gorm:"index:idx_minute_strategy_day"`
	TradingDay          string `gorm:"index:idx_minute_strategy_day"`
	UpdateTime          int64
	InitialEquity       float64
	StaticEquity        float64
	DynamicEquity       float64
	AccumulatedPnL      float64
	AccumulatedPnLRatio float64
	IntradayPnL         float64
	IntradayPnLRatio    float64
}

// DaySnapshot is the end-of-day portfolio row, one per strategy and day.
type DaySnapshot struct {
	Strategy            string `gorm:"primaryKey"`
	TradingDay          string `gorm:"primaryKey"`
	UpdateTime          int64
	InitialEquity       float64
	StaticEquity        float64
	DynamicEquity       float64
	AccumulatedPnL      float64
	AccumulatedPnLRatio float64
	IntradayPnL         float64
	IntradayPnLRatio    float64
}

// Archive writes snapshot rows through a shared PostgreSQL client.
type Archive struct {
	client   *conn.Client
	strategy string
}

// New migrates the snapshot tables and returns a ready archive.
func New(client *conn.Client, strategy string) (*Archive, error) {
	if err := client.DB().AutoMigrate(&MinuteSnapshot{}, &DaySnapshot{}); err != nil {
		return nil, errors.Wrap(err, "migrate archive tables")
	}
	return &Archive{client: client, strategy: strategy}, nil
}

// SaveMinute appends an intraday row. Errors are logged, not returned: the
// publisher loop must not stop over a lost replica row.
func (a *Archive) SaveMinute(snap portfolio.PortfolioSnapshot) {
	if a == nil {
		return
	}
	row := MinuteSnapshot{
		Strategy:            a.strategy,
		TradingDay:          snap.TradingDay,
		UpdateTime:          snap.UpdateTime,
		InitialEquity:       snap.InitialEquity,
		StaticEquity:        snap.StaticEquity,
		DynamicEquity:       snap.DynamicEquity,
		AccumulatedPnL:      snap.AccumulatedPnL,
		AccumulatedPnLRatio: snap.AccumulatedPnLRatio,
		IntradayPnL:         snap.IntradayPnL,
		IntradayPnLRatio:    snap.IntradayPnLRatio,
	}
	if err := a.client.DB().Create(&row).Error; err != nil {
		logs.Errorf("archive minute snapshot, err: %+v", err)
	}
}

// SaveDay upserts the end-of-day row for the snapshot's trading day.
func (a *Archive) SaveDay(snap portfolio.PortfolioSnapshot) {
	if a == nil {
		return
	}
	row := DaySnapshot{
		Strategy:            a.strategy,
		TradingDay:          snap.TradingDay,
		UpdateTime:          snap.UpdateTime,
		InitialEquity:       snap.InitialEquity,
		StaticEquity:        snap.StaticEquity,
		DynamicEquity:       snap.DynamicEquity,
		AccumulatedPnL:      snap.AccumulatedPnL,
		AccumulatedPnLRatio: snap.AccumulatedPnLRatio,
		IntradayPnL:         snap.IntradayPnL,
		IntradayPnLRatio:    snap.IntradayPnLRatio,
	}
	err := a.client.DB().
		Where(DaySnapshot{Strategy: a.strategy, TradingDay: snap.TradingDay}).
		Assign(row).
		FirstOrCreate(&DaySnapshot{}).Error
	if err != nil {
		logs.Errorf("archive day snapshot, err: %+v", err)
	}
}
