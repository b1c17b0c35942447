package event

import (
	"context"
	"errors"
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OutboxProcessorConfig tunes the relay. Zero values fall back to DefaultOutboxProcessorConfig.
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		MaxRetries:       shared.DefaultMaxRetries,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

func (c OutboxProcessorConfig) withDefaults() OutboxProcessorConfig {
	d := DefaultOutboxProcessorConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.CleanupRetention <= 0 {
		c.CleanupRetention = d.CleanupRetention
	}
	return c
}

// RelayMetrics counts relayed entries by result ("sent", "failed")
type RelayMetrics interface {
	RecordOutboxRelay(result string, n int)
}

// OutboxProcessor polls the outbox and hands entries to the publisher.
// Delivery is at least once; consumers deduplicate on the event id header.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	publisher  shared.EventPublisher
	serializer *EventSerializer
	cfg        OutboxProcessorConfig
	log        *zap.Logger
	metrics    RelayMetrics

	cancel context.CancelFunc
	done   chan error
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	publisher shared.EventPublisher,
	serializer *EventSerializer,
	cfg OutboxProcessorConfig,
	log *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		publisher:  publisher,
		serializer: serializer,
		cfg:        cfg.withDefaults(),
		log:        log.Named("outbox_relay"),
	}
}

func (p *OutboxProcessor) SetMetrics(m RelayMetrics) { p.metrics = m }

// Start launches the relay loop, plus the retention sweep when enabled, and returns at once
func (p *OutboxProcessor) Start(ctx context.Context) error {
	if p.cancel != nil {
		return errors.New("outbox processor already started")
	}
	ctx, p.cancel = context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		every(ctx, p.cfg.PollInterval, func() {
			// keep draining while batches come back full
			for ctx.Err() == nil {
				if p.processBatch(ctx) < p.cfg.BatchSize {
					return
				}
			}
		})
		return nil
	})
	if p.cfg.CleanupEnabled {
		g.Go(func() error {
			every(ctx, p.cfg.CleanupInterval, func() { p.cleanup(ctx) })
			return nil
		})
	}

	p.done = make(chan error, 1)
	go func() { p.done <- g.Wait() }()

	p.log.Info("Outbox relay started",
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Bool("cleanup", p.cfg.CleanupEnabled))
	return nil
}

// Stop cancels the loops and waits for the batch in flight, bounded by ctx
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case err := <-p.done:
		p.log.Info("Outbox relay stopped")
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// processBatch claims and relays one batch and returns how many entries it claimed
func (p *OutboxProcessor) processBatch(ctx context.Context) int {
	claimed, err := p.repo.ClaimBatch(ctx, time.Now(), p.cfg.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error("Claim failed", zap.Error(err))
		}
		return 0
	}

	sent := 0
	for _, entry := range claimed {
		if p.deliver(ctx, entry) {
			sent++
		}
	}
	if p.metrics != nil && len(claimed) > 0 {
		p.metrics.RecordOutboxRelay("sent", sent)
		p.metrics.RecordOutboxRelay("failed", len(claimed)-sent)
	}
	return len(claimed)
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) bool {
	ctx, span := telemetry.Start(ctx, "outbox.relay",
		telemetry.SpanAttrEventType, entry.EventType,
		"event_id", entry.EventID)
	if p.cfg.MaxRetries > 0 {
		entry.MaxRetries = p.cfg.MaxRetries
	}
	log := p.log.With(zap.Stringer("event_id", entry.EventID), zap.String("event_type", entry.EventType))

	err := p.publish(ctx, entry)
	telemetry.End(span, err)
	if err == nil {
		entry.MarkSent()
	} else {
		entry.MarkFailed(err.Error())
		if entry.IsDead() {
			log.Warn("Event dead-lettered",
				zap.Stringer("aggregate_id", entry.AggregateID),
				zap.Int("attempts", entry.RetryCount),
				zap.Error(err))
		} else {
			log.Error("Relay failed", zap.Int("attempt", entry.RetryCount), zap.Error(err))
		}
	}

	// a lost SENT update leaves the row PROCESSING until the lease expires, then it is resent
	if uerr := p.repo.Update(ctx, entry); uerr != nil {
		log.Error("Recording relay result failed", zap.String("status", string(entry.Status)), zap.Error(uerr))
	}
	return err == nil
}

func (p *OutboxProcessor) publish(ctx context.Context, entry *shared.OutboxEntry) error {
	ev, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, ev)
}

// cleanup drops SENT rows older than CleanupRetention
func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-p.cfg.CleanupRetention)
	n, err := p.repo.DeleteSentBefore(ctx, cutoff)
	switch {
	case err != nil:
		p.log.Error("Outbox cleanup failed", zap.Error(err))
	case n > 0:
		p.log.Info("Outbox cleaned", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
}
