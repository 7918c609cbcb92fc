package poller

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/remeh/sizedwaitgroup"
	"go.uber.org/zap"

	"farmScope/internal/model"
	"farmScope/internal/storage"
)

// Collector produces one snapshot per call.
type Collector interface {
	Collect(ctx context.Context) *model.Snapshot
}

// Config controls cycle cadence and publication.
type Config struct {
	Interval       time.Duration
	CycleTimeout   time.Duration
	MaxInFlight    int
	StaleAfter     int
	SnapshotBuffer int
	SinkTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = c.Interval
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 2
	}
	if c.SnapshotBuffer <= 0 {
		c.SnapshotBuffer = 8
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = 10 * time.Second
	}
	return c
}

type cycleResult struct {
	seq      uint64
	snapshot *model.Snapshot
	duration time.Duration
}

// Poller runs collection cycles on a ticker and publishes their snapshots in
// sequence order. Only the Run goroutine publishes.
type Poller struct {
	cfg       Config
	collector Collector
	sinks     []storage.Sink
	metrics   *Metrics
	logger    *zap.Logger

	seq       uint64
	latest    atomic.Pointer[model.Snapshot]
	snapshots chan *model.Snapshot

	lastPublished      uint64
	consecutiveLoading int
}

// New builds a Poller. A nil metrics value registers on a private registry.
func New(collector Collector, cfg Config, sinks []storage.Sink, metrics *Metrics, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	cfg = cfg.withDefaults()
	return &Poller{
		cfg:       cfg,
		collector: collector,
		sinks:     sinks,
		metrics:   metrics,
		logger:    logger,
		snapshots: make(chan *model.Snapshot, cfg.SnapshotBuffer),
	}
}

// Latest returns the most recently published snapshot, or nil before the first.
func (p *Poller) Latest() *model.Snapshot {
	return p.latest.Load()
}

// Snapshots streams published snapshots. When the reader falls behind the
// oldest buffered snapshot is dropped.
func (p *Poller) Snapshots() <-chan *model.Snapshot {
	return p.snapshots
}

// Run polls until ctx is done. It starts a cycle immediately and then on every tick.
func (p *Poller) Run(ctx context.Context) error {
	if p.collector == nil {
		return fmt.Errorf("collector is nil")
	}

	results := make(chan cycleResult, p.cfg.MaxInFlight)
	swg := sizedwaitgroup.New(p.cfg.MaxInFlight)
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// inflight is owned by this goroutine; a tick with every slot busy is skipped
	// so the loop keeps draining results.
	inflight := 0
	start := func() {
		if inflight >= p.cfg.MaxInFlight {
			p.metrics.cyclesTotal.WithLabelValues("skipped").Inc()
			p.logger.Debug("all cycles busy, skipping tick", zap.Int("inflight", inflight))
			return
		}
		swg.Add()
		inflight++
		p.seq++
		seq := p.seq
		go func() {
			defer swg.Done()
			cycleCtx, cancel := context.WithTimeout(ctx, p.cfg.CycleTimeout)
			defer cancel()

			started := time.Now()
			snapshot := p.collector.Collect(cycleCtx)
			select {
			case results <- cycleResult{seq: seq, snapshot: snapshot, duration: time.Since(started)}:
			case <-ctx.Done():
			}
		}()
	}

	p.logger.Info("poller started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Duration("cycle_timeout", p.cfg.CycleTimeout),
		zap.Int("max_inflight", p.cfg.MaxInFlight),
	)
	start()

	for {
		select {
		case <-ctx.Done():
			p.drain(&swg, results)
			p.logger.Info("poller stopped", zap.Uint64("last_published", p.lastPublished))
			return nil
		case <-ticker.C:
			start()
		case res := <-results:
			inflight--
			p.handle(ctx, res)
		}
	}
}

// drain discards results of cycles still running at shutdown until all of them exit.
func (p *Poller) drain(swg *sizedwaitgroup.SizedWaitGroup, results chan cycleResult) {
	done := make(chan struct{})
	go func() {
		swg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			return
		case <-results:
		}
	}
}

func (p *Poller) handle(ctx context.Context, res cycleResult) {
	p.metrics.cycleDuration.Observe(res.duration.Seconds())

	if res.snapshot == nil {
		p.metrics.cyclesTotal.WithLabelValues("empty").Inc()
		return
	}
	if res.seq <= p.lastPublished {
		p.metrics.cyclesTotal.WithLabelValues("stale").Inc()
		p.metrics.staleDropped.Inc()
		p.logger.Debug("dropping stale snapshot",
			zap.Uint64("seq", res.seq),
			zap.Uint64("last_published", p.lastPublished),
		)
		return
	}

	snapshot := res.snapshot
	snapshot.Seq = res.seq
	p.lastPublished = res.seq
	p.latest.Store(snapshot)
	p.trackLoading(snapshot)

	result := "complete"
	if snapshot.Loading {
		result = "loading"
	}
	p.metrics.cyclesTotal.WithLabelValues(result).Inc()
	p.metrics.lastSeq.Set(float64(res.seq))

	p.emit(snapshot)
	p.publish(ctx, snapshot)
}

func (p *Poller) trackLoading(snapshot *model.Snapshot) {
	p.metrics.loading.Set(boolGauge(snapshot.Loading))
	if !snapshot.Loading {
		if p.consecutiveLoading >= p.cfg.StaleAfter && p.cfg.StaleAfter > 0 {
			p.logger.Info("snapshots complete again", zap.Int("loading_cycles", p.consecutiveLoading))
		}
		p.consecutiveLoading = 0
		p.metrics.stale.Set(0)
		return
	}

	p.consecutiveLoading++
	if p.cfg.StaleAfter > 0 && p.consecutiveLoading >= p.cfg.StaleAfter {
		p.metrics.stale.Set(1)
		p.logger.Warn("snapshots still loading",
			zap.Int("consecutive_cycles", p.consecutiveLoading),
			zap.Uint64("seq", snapshot.Seq),
		)
	}
}

func (p *Poller) emit(snapshot *model.Snapshot) {
	for {
		select {
		case p.snapshots <- snapshot:
			return
		default:
		}
		select {
		case <-p.snapshots:
		default:
		}
	}
}

func (p *Poller) publish(ctx context.Context, snapshot *model.Snapshot) {
	for _, sink := range p.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, p.cfg.SinkTimeout)
		err := sink.Publish(sinkCtx, snapshot)
		cancel()
		if err != nil {
			p.logger.Warn("sink publish failed", zap.Uint64("seq", snapshot.Seq), zap.Error(err))
		}
	}
}
