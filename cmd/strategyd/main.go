package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/archive"
	"main/internal/calendar"
	"main/internal/gateway"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/portfolio"
	"main/internal/publish"
	"main/internal/recovery"
	"main/internal/registry"
	"main/internal/schema"
	"main/internal/strategy"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	noRecover := flag.Bool("no-recover", false, "Skip journal replay at startup")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if cfg.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "strategyd." + cfg.Name,
			ServerAddress:   cfg.Profiling.Server,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() { _ = profiler.Stop() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, !*noRecover); err != nil {
		log.Fatalf("strategyd failed: %v", err)
	}
}

func run(ctx context.Context, cfg ops.FileConfig, replay bool) error {
	stateDir := filepath.Join(cfg.BaseDir, "strategy", cfg.Name)

	db, err := registry.Open(filepath.Join(stateDir, "registry.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	tracker := portfolio.NewTracker()
	statePath := filepath.Join(stateDir, "state.json")
	if err := tracker.Load(statePath); err != nil {
		return err
	}

	metrics := obs.NewMetrics()

	var broadcast strategy.Broadcaster
	var publisher *publish.Publisher
	if nc, err := publish.Connect(cfg.NATS.URL); err != nil {
		logs.Errorf("nats unavailable, snapshots stay local. err: %+v", err)
	} else {
		publisher = publish.NewPublisher(nc, cfg.Name, cfg.NATS.QueueSize, metrics)
		go publisher.Run(ctx)
		defer publisher.Close()
		broadcast = publisher
	}

	var arch strategy.Archiver
	if cfg.Archive.Enabled {
		client, err := conn.New(conn.Option{
			Host:     cfg.Archive.Host,
			Port:     cfg.Archive.Port,
			User:     cfg.Archive.User,
			Password: cfg.Archive.Password,
			Database: cfg.Archive.DBName,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		a, err := archive.New(client, cfg.Name)
		if err != nil {
			return err
		}
		arch = a
	}

	sessions := calendar.NewSessionCalendar()
	core, err := strategy.New(ctx, strategy.Config{
		Name:       cfg.Name,
		BaseDir:    cfg.BaseDir,
		Registry:   db,
		Gateway:    gateway.NewLoopback(),
		Calendar:   sessions,
		Calculator: tracker,
		Broadcast:  broadcast,
		Archive:    arch,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}
	defer core.Close()

	for _, src := range cfg.Sources {
		instruments := make([]schema.Instrument, 0, len(src.Instruments))
		for _, inst := range src.Instruments {
			instruments = append(instruments, schema.Instrument{
				InstrumentID: inst.InstrumentID,
				ExchangeID:   inst.ExchangeID,
			})
		}
		if _, err := core.AddMarketSource(ctx, src.Name, instruments); err != nil {
			return err
		}
	}
	for _, account := range cfg.Accounts {
		if _, err := core.AddAccount(ctx, account.Source, account.Account, account.CashLimit); err != nil {
			return err
		}
	}

	if replay {
		accounts, err := db.Accounts(ctx)
		if err != nil {
			return err
		}
		sources, err := db.Sources(ctx)
		if err != nil {
			return err
		}
		stats, err := recovery.Recover(ctx, tracker, recovery.Config{
			BaseDir:    cfg.BaseDir,
			Name:       cfg.Name,
			Sources:    sources,
			Accounts:   accounts,
			TradingDay: sessions.TradingDay(),
			OnQuote:    core.SeedQuote,
		})
		if err != nil {
			return err
		}
		metrics.ReplayApplied.Add(uint64(stats.Applied))
		metrics.ReplayFiltered.Add(uint64(stats.Filtered))
		metrics.ReplaySkipped.Add(uint64(stats.Skipped))
	}

	sessions.SwitchDay(sessions.TradingDay())
	if broadcast != nil {
		broadcast.PortfolioLive(tracker.Snapshot())
	}

	logs.Infof("strategyd running. name: %s, base: %s", cfg.Name, cfg.BaseDir)
	loop(ctx, core, sessions, statePath, tracker)

	if err := tracker.Save(statePath); err != nil {
		logs.Errorf("save tracker state, err: %+v", err)
	}
	logs.Infof("strategyd stopped. metrics: %+v", metrics.Snapshot())
	return nil
}

// loop drives the minute snapshot ticker and the day rollover until the
// context is canceled.
func loop(ctx context.Context, core *strategy.Core, sessions *calendar.SessionCalendar, statePath string, tracker *portfolio.Tracker) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	currentDay := sessions.TradingDay()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := core.PushByMinute(ctx, now); err != nil {
				logs.Errorf("minute snapshot, err: %+v", err)
			}
			if day := sessions.ClockDay(); day != currentDay {
				// Close out the old day before adopting the new one.
				if err := core.PushByDay(ctx); err != nil {
					logs.Errorf("day snapshot, err: %+v", err)
				}
				if err := tracker.Save(statePath); err != nil {
					logs.Errorf("save tracker state, err: %+v", err)
				}
				sessions.SwitchDay(day)
				currentDay = day
			}
		}
	}
}
