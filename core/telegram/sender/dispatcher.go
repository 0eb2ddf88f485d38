// Package sender delivers outbound Telegram calls in the background.
//
// Jobs are sharded by chat so that replies to one chat leave in the order they were queued,
// while different chats are served in parallel.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/sheetsbot/core/logger"
	"github.com/m3rciful/sheetsbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the chat's shard is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the total capacity, split evenly between workers.
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
type Dispatcher struct {
	opts   Options
	shards []chan job

	mu     sync.RWMutex
	closed bool

	wg   sync.WaitGroup
	errs atomic.Uint64
}

// NewDispatcher starts one worker per shard.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	perShard := (opts.QueueSize + opts.Workers - 1) / opts.Workers

	d := &Dispatcher{opts: opts, shards: make([]chan job, opts.Workers)}
	d.wg.Add(opts.Workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, perShard)
		go d.worker(d.shards[i])
	}
	return d
}

// Enqueue schedules run on the shard of the chat (or user) recorded in ctx.
// The run closure must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.shardFor(ctx) <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shardFor(ctx context.Context) chan job {
	key := logger.ChatIDFrom(ctx)
	if key == 0 {
		key = logger.UserIDFrom(ctx)
	}
	if key < 0 {
		key = -key
	}
	return d.shards[uint64(key)%uint64(len(d.shards))]
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits until queued ones are processed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handleJob(j)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			logSendSuccess(j, attempt, time.Since(start))
			return
		}
		if attempt == attempts || !netutil.ShouldRetry(err) {
			break
		}

		delay := netutil.RetryAfter(err)
		if delay == 0 {
			delay = netutil.Backoff(d.opts.RetryBackoff, attempt)
		}
		logger.Debug(j.ctx, "tg.sender", "send.retry.backoff",
			append(sendLogAttrs(j),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)...,
		)
		if waitErr := netutil.Wait(ctx, delay); waitErr != nil {
			err = waitErr
			break
		}
	}

	d.errs.Add(1)
	logSendFailure(j, err, attempts, time.Since(start))
}

func sendLogAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	if chatID := logger.ChatIDFrom(j.ctx); chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", chatID))
	}
	return attrs
}

func logSendSuccess(j job, attempt int, elapsed time.Duration) {
	attrs := sendLogAttrs(j)
	if attempt > 1 {
		attrs = append(attrs, slog.Int("attempt", attempt))
		attrs = append(attrs, slog.Duration("duration", logger.RoundMS(elapsed)))
		logger.Info(j.ctx, "tg.sender", "send.retry.success", attrs...)
		return
	}
	attrs = append(attrs, slog.Duration("duration", logger.RoundMS(elapsed)))
	logger.Debug(j.ctx, "tg.sender", "send.success", attrs...)
}

func logSendFailure(j job, err error, attempts int, elapsed time.Duration) {
	attrs := append(sendLogAttrs(j),
		slog.String("status", "fail"),
		slog.String("err", netutil.Redact(err)),
		slog.String("error_kind", netutil.Classify(err)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.RoundMS(elapsed)),
	)
	logger.Error(j.ctx, "tg.sender", "send.fail", attrs...)
}
