package focus

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/sadopc/focusassist/internal/logging"
	"github.com/sadopc/focusassist/internal/pomodoro"
)

// Options configures a Dispatcher. Zero values select the defaults.
type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Logger    *slog.Logger
}

const (
	DefaultWorkers   = 2
	DefaultQueueSize = 4
	DefaultTimeout   = 30 * time.Second
)

// Result is delivered to result callbacks once per processed check-in.
type Result struct {
	CheckIn  pomodoro.CheckIn
	Snapshot Snapshot
	// Err is set when every detector failed; Snapshot is then unknown.
	Err error
}

// Stats counts processed check-ins.
type Stats struct {
	Total      int
	Successful int
	Failed     int
	Dropped    int
	AvgMillis  float64
}

// Dispatcher turns check-ins into focus analyses without blocking the timer.
type Dispatcher struct {
	detectors []Detector
	opts      Options
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan pomodoro.CheckIn
	wg     conc.WaitGroup

	mu        sync.Mutex
	stopped   bool
	callbacks []func(Result)
	stats     Stats
}

// NewDispatcher starts opts.Workers goroutines that analyse queued check-ins
// with every detector. Call Stop to release them.
func NewDispatcher(detectors []Detector, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := logging.OrDiscard(opts.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		detectors: slices.Clone(detectors),
		opts:      opts,
		logger:    logger.With("component", "focus"),
		ctx:       ctx,
		cancel:    cancel,
		queue:     make(chan pomodoro.CheckIn, opts.QueueSize),
	}
	for range opts.Workers {
		d.wg.Go(d.worker)
	}
	d.logger.Info("focus dispatcher started", "workers", opts.Workers, "detectors", len(d.detectors))
	return d
}

// OnResult registers fn for every finished analysis. fn runs on a worker
// goroutine; a panic in fn is logged and swallowed.
func (d *Dispatcher) OnResult(fn func(Result)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks = append(d.callbacks, fn)
}

// Request queues an analysis for ci. It never blocks.
func (d *Dispatcher) Request(ci pomodoro.CheckIn) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrStopped
	}
	select {
	case d.queue <- ci:
		return nil
	default:
		d.stats.Dropped++
		d.logger.Warn("check-in dropped", "index", ci.Index, "reason", "queue full")
		return ErrQueueFull
	}
}

// Stop cancels in-flight analyses, discards queued ones and waits for the
// workers to exit. It is safe to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.cancel()
	if r := d.wg.WaitAndRecover(); r != nil {
		d.logger.Error("focus worker panicked", "panic", r.Value)
	}
	d.logger.Info("focus dispatcher stopped")
}

// Stats returns a copy of the counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Dispatcher) worker() {
	for ci := range d.queue {
		if d.ctx.Err() != nil {
			d.mu.Lock()
			d.stats.Dropped++
			d.mu.Unlock()
			continue
		}
		res := d.analyze(ci)
		d.record(res)
		d.deliver(res)
	}
}

type indexed struct {
	i    int
	snap Snapshot
	ok   bool
}

func (d *Dispatcher) analyze(ci pomodoro.CheckIn) Result {
	start := time.Now()
	res := Result{CheckIn: ci}
	if len(d.detectors) == 0 {
		res.Snapshot = Aggregate(nil)
		res.Snapshot.At = start
		res.Err = fmt.Errorf("analyze check-in %d: no detectors configured", ci.Index)
		return res
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.opts.Timeout)
	defer cancel()

	p := pool.NewWithResults[indexed]().
		WithContext(ctx).
		WithCollectErrored().
		WithMaxGoroutines(len(d.detectors))
	for i, det := range d.detectors {
		p.Go(func(ctx context.Context) (indexed, error) {
			began := time.Now()
			snap, err := det.Analyze(ctx)
			if err != nil {
				d.logger.Warn("detector failed", "detector", det.Name(), "error", err)
				return indexed{}, fmt.Errorf("%s: %w", det.Name(), err)
			}
			if snap.At.IsZero() {
				snap.At = began
			}
			if snap.Took == 0 {
				snap.Took = time.Since(began)
			}
			snap.Source = det.Name()
			return indexed{i: i, snap: snap, ok: true}, nil
		})
	}
	results, err := p.Wait()

	// failed detectors are collected too, as zero values without ok
	results = slices.DeleteFunc(results, func(r indexed) bool { return !r.ok })
	slices.SortFunc(results, func(a, b indexed) int { return a.i - b.i })
	snaps := make([]Snapshot, len(results))
	for i, r := range results {
		snaps[i] = r.snap
	}

	res.Snapshot = Aggregate(snaps)
	if res.Snapshot.At.IsZero() {
		res.Snapshot.At = start
	}
	res.Snapshot.Took = time.Since(start)
	if len(snaps) == 0 {
		res.Err = fmt.Errorf("analyze check-in %d: %w", ci.Index, err)
	}
	return res
}

func (d *Dispatcher) record(res Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Total++
	if res.Err == nil && res.Snapshot.Level != LevelUnknown {
		d.stats.Successful++
	} else {
		d.stats.Failed++
	}
	ms := float64(res.Snapshot.Took) / float64(time.Millisecond)
	d.stats.AvgMillis += (ms - d.stats.AvgMillis) / float64(d.stats.Total)

	d.logger.Debug("check-in analysed",
		"index", res.CheckIn.Index, "level", string(res.Snapshot.Level),
		"confidence", res.Snapshot.Confidence, "took", res.Snapshot.Took)
}

func (d *Dispatcher) deliver(res Result) {
	d.mu.Lock()
	callbacks := slices.Clone(d.callbacks)
	d.mu.Unlock()

	for _, fn := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("focus callback panicked", "panic", r)
				}
			}()
			fn(res)
		}()
	}
}
