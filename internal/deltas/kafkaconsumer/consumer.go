// Package kafkaconsumer subscribes to the realtime metrics delta feed and
// merges partial updates into the cached metrics snapshot per region.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/procurex/map-insight/internal/cache/keys"
	"github.com/procurex/map-insight/internal/core/observability"
	"github.com/procurex/map-insight/internal/deltas"
)

// MetricsMerger applies a validated delta to cached state. Returns false when
// there was no fresh cached snapshot to merge into.
type MetricsMerger interface {
	ApplyMetricsDelta(ev deltas.Event) bool
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	merger MetricsMerger
	dedupe *versionDedupe

	mu         sync.Mutex
	ready      bool
	partitions []int32
}

func New(cfg Config, logger *slog.Logger, merger MetricsMerger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		merger: merger,
		dedupe: newVersionDedupe(cfg.DedupeSize),
	}
}

// Start consumes delta events until ctx is canceled. Transient consumer
// errors are logged and retried; the feed is an optimization, so it never
// takes the service down.
func (c *Consumer) Start(ctx context.Context) error {
	if c.merger == nil {
		return errors.New("kafkaconsumer: missing merger")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{
		process: c.ProcessOne,
		onSetup: func(parts []int32) {
			c.mu.Lock()
			c.partitions = parts
			c.mu.Unlock()
		},
	}

	c.logger.Info("metrics delta consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)
	c.setReady(true)
	defer c.setReady(false)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("metrics delta consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error("delta consumer error", "err", err)
				observability.IncDeltaMerge("consumer_error")
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single delta message.
func (c *Consumer) ProcessOne(_ context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()

	var ev deltas.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.IncDeltaMerge("decode_error")
		c.logger.Error("delta decode failed",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		// poison message; mark and move on rather than stalling the claim
		return nil
	}
	if err := ev.Validate(); err != nil {
		observability.IncDeltaMerge("invalid")
		c.logger.Warn("delta event invalid", "err", err)
		return nil
	}
	// dedupe on the canonical region so case variants share one version
	// sequence, matching how the merge path keys the cache
	if !c.dedupe.shouldApply(keys.Region(ev.Region), ev.Version) {
		observability.IncDeltaMerge("stale_version")
		c.logger.Debug("delta version stale (skipping)",
			"region", ev.Region, "version", ev.Version)
		return nil
	}

	applied := c.merger.ApplyMetricsDelta(ev)
	outcome := "applied"
	if !applied {
		outcome = "no_cached_entry"
	}
	observability.IncDeltaMerge(outcome)
	observability.ObserveUpstreamLatency("kafka_decode", time.Since(start).Seconds())
	c.logger.Debug("delta processed",
		"region", ev.Region, "version", ev.Version, "outcome", outcome)
	return nil
}

func (c *Consumer) setReady(ready bool) {
	c.mu.Lock()
	c.ready = ready
	c.mu.Unlock()
}

// Readiness reports whether the consumer is attached to the feed; used by
// the readiness endpoint when the feed is enabled.
func (c *Consumer) Readiness() (bool, []int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready, c.partitions
}
