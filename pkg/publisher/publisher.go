package publisher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/iot-go-sdk/simulated-device/pkg/clock"
	"github.com/iot-go-sdk/simulated-device/pkg/errors"
	"github.com/iot-go-sdk/simulated-device/pkg/journal"
	"github.com/iot-go-sdk/simulated-device/pkg/logger"
	"github.com/iot-go-sdk/simulated-device/pkg/mqtt"
	"github.com/iot-go-sdk/simulated-device/pkg/telemetry"
)

const (
	DefaultInterval        = 5 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Connection is the handle to the ingestion endpoint.
type Connection interface {
	Connect(ctx context.Context) error
	// SendEvent must not block on the network; the token reports the
	// outcome.
	SendEvent(payload []byte) mqtt.Token
	Disconnect()
}

// Stats counts submissions since Start.
type Stats struct {
	Attempted int64
	Succeeded int64
	Failed    int64
	Skipped   int64
}

// Publisher owns one Connection and submits a fresh telemetry sample to
// it on every tick.
type Publisher struct {
	conn            Connection
	generator       *telemetry.Generator
	clock           clock.Clock
	interval        time.Duration
	shutdownTimeout time.Duration
	journal         journal.Recorder
	logger          *logger.Device
	inflight        *semaphore.Weighted

	mu    sync.Mutex
	state State
	timer *clock.Timer
	next  time.Time
	wg    sync.WaitGroup

	attempted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

type Option func(*Publisher)

func WithClock(c clock.Clock) Option {
	return func(p *Publisher) { p.clock = c }
}

func WithGenerator(g *telemetry.Generator) Option {
	return func(p *Publisher) { p.generator = g }
}

func WithInterval(d time.Duration) Option {
	return func(p *Publisher) { p.interval = d }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(p *Publisher) { p.shutdownTimeout = d }
}

func WithJournal(r journal.Recorder) Option {
	return func(p *Publisher) { p.journal = r }
}

func WithLogger(l *logger.Device) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithMaxInFlight bounds concurrent submissions. Zero means unbounded.
func WithMaxInFlight(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.inflight = semaphore.NewWeighted(int64(n))
		} else {
			p.inflight = nil
		}
	}
}

func New(conn Connection, opts ...Option) *Publisher {
	p := &Publisher{
		conn:            conn,
		clock:           clock.Real(),
		interval:        DefaultInterval,
		shutdownTimeout: DefaultShutdownTimeout,
		journal:         journal.Discard,
		logger:          logger.Default().With("publisher"),
		state:           StateDisconnected,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.generator == nil {
		p.generator = telemetry.NewSeededGenerator(p.clock.Now().UnixNano())
	}
	return p
}

// Start connects and, on success, arms the tick timer. The first tick
// fires one interval after the connection is established. A failed
// connect leaves the publisher in StateFailed with nothing scheduled.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateDisconnected {
		state := p.state
		p.mu.Unlock()
		return errors.Newf(errors.ErrInvalidOperation, "publisher cannot start from state %s", state)
	}
	p.state = StateConnecting
	p.mu.Unlock()

	if err := p.conn.Connect(ctx); err != nil {
		connErr := coded(err, errors.ErrConnect, errors.IsConnectionError)
		p.mu.Lock()
		p.state = StateFailed
		p.mu.Unlock()
		p.logger.ErrorWithCode(connErr).Msg("Could not connect")
		return connErr
	}

	p.logger.Info().Msg("Client connected")

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateConnecting {
		// Stopped while connecting.
		p.conn.Disconnect()
		return nil
	}
	p.state = StateConnected
	p.next = p.clock.Now().Add(p.interval)
	p.timer = p.clock.AfterFunc(p.interval, p.tick)
	return nil
}

// Run starts the publisher and blocks until ctx is cancelled, then shuts
// down within the configured shutdown timeout.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), p.shutdownTimeout)
	defer cancel()
	return p.Stop(stopCtx)
}

// Stop disarms the timer, waits for in-flight submissions until ctx is
// done, then releases the connection.
func (p *Publisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return nil
	}
	wasConnected := p.state == StateConnected
	p.state = StateStopped
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()

	if !wasConnected {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn().Msg("Shutdown timed out with submissions still in flight")
	}

	p.conn.Disconnect()

	stats := p.Stats()
	p.logger.Info().
		Int64("attempted", stats.Attempted).
		Int64("succeeded", stats.Succeeded).
		Int64("failed", stats.Failed).
		Int64("skipped", stats.Skipped).
		Msg("Publisher stopped")
	return nil
}

func (p *Publisher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Publisher) Stats() Stats {
	return Stats{
		Attempted: p.attempted.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
		Skipped:   p.skipped.Load(),
	}
}

// tick re-arms the timer before doing any work so a slow tick never
// delays the next one.
func (p *Publisher) tick() {
	p.mu.Lock()
	if p.state != StateConnected {
		p.mu.Unlock()
		return
	}
	now := p.clock.Now()
	for !p.next.After(now) {
		p.next = p.next.Add(p.interval)
	}
	p.timer = p.clock.AfterFunc(p.next.Sub(now), p.tick)
	p.mu.Unlock()

	p.publishSample()
}

func (p *Publisher) publishSample() {
	sample := p.generator.Next()
	payload, err := telemetry.Encode(sample)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to serialize telemetry")
		return
	}

	p.logger.Info().Msgf("Sending message: %s", payload)
	sentAt := p.clock.Now()

	if p.inflight != nil && !p.inflight.TryAcquire(1) {
		p.skipped.Add(1)
		p.logger.Warn().Msgf("Too many submissions in flight, skipping message: %s", payload)
		p.record(journal.Entry{SentAt: sentAt, Payload: string(payload), Outcome: journal.OutcomeSkipped})
		return
	}

	p.mu.Lock()
	if p.state != StateConnected {
		p.mu.Unlock()
		if p.inflight != nil {
			p.inflight.Release(1)
		}
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	p.attempted.Add(1)
	token := p.conn.SendEvent(payload)
	go p.await(token, payload, sentAt)
}

func (p *Publisher) await(token mqtt.Token, payload []byte, sentAt time.Time) {
	defer p.wg.Done()

	<-token.Done()
	if p.inflight != nil {
		p.inflight.Release(1)
	}

	entry := journal.Entry{SentAt: sentAt, Payload: string(payload), Outcome: journal.OutcomeSent}
	if err := token.Error(); err != nil {
		submitErr := coded(err, errors.ErrSubmit, errors.IsSubmissionError)
		entry.Outcome = journal.OutcomeFailed
		entry.Error = submitErr.Error()
		p.logger.ErrorWithCode(submitErr).Msg("Failed to send message")
		p.failed.Add(1)
	} else {
		p.logger.Info().Msg("Message sent successfully")
		p.succeeded.Add(1)
	}
	p.record(entry)
}

func (p *Publisher) record(entry journal.Entry) {
	if err := p.journal.Record(context.Background(), entry); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to journal submission")
	}
}

// coded returns err itself when it already carries code, otherwise err
// wrapped under code.
func coded(err error, code errors.ErrorCode, is func(error) bool) errors.Error {
	if appErr, ok := err.(errors.Error); ok && is(appErr) {
		return appErr
	}
	return errors.Wrap(code, err)
}
