// Command tmc runs the trade signal governance pipeline. Signals are
// submitted over HTTP, pass through sanitation, rate limiting, the safety
// isolation gate and the risk protocol, and every decision lands in the
// write-ahead audit log.
//
// Usage:
//
//	tmc --config config.yaml
//	tmc --init (interactive configuration wizard)
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Butchman2000/Trade-Model-Consideration/config"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/events"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/allocation"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/coordinator"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/ingress"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/isolation"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/regime"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/risk"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/tax"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/setup"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/storage/auditlog"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/storage/decisions"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/web"
	"github.com/Butchman2000/Trade-Model-Consideration/pkg/retrier"
)

func main() {
	initFlag := flag.Bool("init", false, "run the interactive configuration wizard")

	// Get registers --config and parses all flags.
	cfg, err := config.Get()
	if *initFlag {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	audit, err := auditlog.New(filepath.Join(cfg.WalDir, "audit"))
	if err != nil {
		logger.Fatal("failed to open audit log", zap.Error(err))
	}
	defer audit.Close()

	decisionStore, err := decisions.NewWALStore(filepath.Join(cfg.WalDir, "decisions"))
	if err != nil {
		logger.Fatal("failed to open decision log", zap.Error(err))
	}
	defer decisionStore.Close()

	sis := isolation.New(logger, cfg.MultiFactorThreshold, audit, audit)
	rep := risk.New(logger, cfg.AccountEquity)

	governor, err := allocation.New(logger, cfg.Constraints)
	if err != nil {
		logger.Fatal("invalid allocation constraints", zap.Error(err))
	}
	for _, b := range cfg.Bins {
		meta := domainMeta(b)
		if err := governor.RegisterBin(b.Name, b.Model, b.Weight, meta); err != nil {
			logger.Fatal("failed to register bin", zap.String("bin", b.Name), zap.Error(err))
		}
	}
	if len(cfg.Bins) > 0 {
		if _, err := governor.Evaluate(); err != nil {
			logger.Fatal("configured allocations violate constraints", zap.Error(err))
		}
	}

	broadcaster := events.NewDecisionBroadcaster(256)
	sink := &broadcastSink{
		next: &retryingSink{
			store: decisionStore,
			r: retrier.New(
				retrier.WithInitialInterval(100*time.Millisecond),
				retrier.WithMaxInterval(time.Second),
				retrier.WithMaxRetries(3),
			),
		},
		events: broadcaster,
	}

	limiter := ingress.NewRateLimiter(cfg.MaxPacketsPerSec, cfg.BurstLimit)
	sanitizer := ingress.NewSanitizer(cfg.MaxFieldLength)

	coord := coordinator.New(logger, sis, rep, tax.NewFilter(),
		limiter, sanitizer, sink, cfg.AnomalyCooldown)

	regimes := regime.NewTracker(logger)
	coord.SetRegimeSource(regimes)

	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := scheduler.AddFunc("0 0 * * *", func() {
		rep.ResetDailyRisk()
		deactivated := governor.NightlyRebalance(time.Now().UTC())
		logger.Info("nightly rebalance complete",
			zap.Strings("deactivated_bins", deactivated))
	}); err != nil {
		logger.Fatal("failed to schedule nightly job", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := web.NewServer(logger, cfg.WebAddr, coord, sis)
	server.Events = broadcaster
	server.Regimes = regimes
	if err := server.Start(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func domainMeta(b config.BinConfig) domain.BinMetadata {
	return domain.BinMetadata{
		Strategy:   b.Strategy,
		Underlying: b.Underlying,
		MarginMult: b.MarginMult,
	}
}

// retryingSink retries transient WAL write failures before giving up.
// The coordinator logs the final error, it never blocks a decision.
type retryingSink struct {
	store *decisions.WALStore
	r     *retrier.Retrier
}

func (s *retryingSink) AppendDecision(d domain.Decision) error {
	return s.r.Do(context.Background(), func(context.Context) error {
		return s.store.AppendDecision(d)
	})
}

// broadcastSink publishes every finalized decision to SSE subscribers after
// handing it to the durable sink.
type broadcastSink struct {
	next   coordinator.DecisionAppender
	events *events.DecisionBroadcaster
}

func (s *broadcastSink) AppendDecision(d domain.Decision) error {
	err := s.next.AppendDecision(d)
	s.events.Publish(events.FromDecision(d))
	return err
}
