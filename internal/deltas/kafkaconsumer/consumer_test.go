package kafkaconsumer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"

	"github.com/procurex/map-insight/internal/deltas"
)

type recordingMerger struct {
	applied []deltas.Event
	result  bool
}

func (m *recordingMerger) ApplyMetricsDelta(ev deltas.Event) bool {
	m.applied = append(m.applied, ev)
	return m.result
}

func newTestConsumer(m MetricsMerger) *Consumer {
	cfg := DefaultConfig("localhost:9092", "metrics-deltas", "test-group")
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), m)
}

func msgFor(t *testing.T, ev deltas.Event) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: "metrics-deltas", Value: b}
}

func TestProcessOne_AppliesValidDelta(t *testing.T) {
	m := &recordingMerger{result: true}
	c := newTestConsumer(m)

	five := 5
	ev := deltas.Event{Region: "global", Version: 1, Totals: &deltas.PartialTotals{ActiveRFx: &five}}
	if err := c.ProcessOne(context.Background(), msgFor(t, ev)); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(m.applied) != 1 {
		t.Fatalf("applied=%d want 1", len(m.applied))
	}
	got := m.applied[0]
	if got.Region != "global" || got.Version != 1 || got.Totals == nil || *got.Totals.ActiveRFx != 5 {
		t.Fatalf("event=%+v", got)
	}
}

func TestProcessOne_PoisonMessageIsSkippedNotFatal(t *testing.T) {
	m := &recordingMerger{result: true}
	c := newTestConsumer(m)

	msg := &sarama.ConsumerMessage{Topic: "metrics-deltas", Value: []byte("{not json")}
	if err := c.ProcessOne(context.Background(), msg); err != nil {
		t.Fatalf("poison message must not error the claim: %v", err)
	}
	if len(m.applied) != 0 {
		t.Fatal("poison message reached the merger")
	}
}

func TestProcessOne_InvalidEventDropped(t *testing.T) {
	m := &recordingMerger{result: true}
	c := newTestConsumer(m)

	// missing version
	if err := c.ProcessOne(context.Background(), msgFor(t, deltas.Event{Region: "global"})); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if len(m.applied) != 0 {
		t.Fatal("invalid event reached the merger")
	}
}

func TestProcessOne_StaleVersionDropped(t *testing.T) {
	m := &recordingMerger{result: true}
	c := newTestConsumer(m)

	for _, v := range []uint64{3, 3, 2} {
		ev := deltas.Event{Region: "global", Version: v}
		if err := c.ProcessOne(context.Background(), msgFor(t, ev)); err != nil {
			t.Fatalf("ProcessOne(v=%d): %v", v, err)
		}
	}

	if len(m.applied) != 1 || m.applied[0].Version != 3 {
		t.Fatalf("applied=%v want only version 3", m.applied)
	}
}

func TestProcessOne_CaseVariantsShareVersionSequence(t *testing.T) {
	m := &recordingMerger{result: true}
	c := newTestConsumer(m)

	_ = c.ProcessOne(context.Background(), msgFor(t, deltas.Event{Region: "global", Version: 4}))
	_ = c.ProcessOne(context.Background(), msgFor(t, deltas.Event{Region: "Global", Version: 4}))
	_ = c.ProcessOne(context.Background(), msgFor(t, deltas.Event{Region: "GLOBAL", Version: 3}))

	if len(m.applied) != 1 || m.applied[0].Region != "global" {
		t.Fatalf("applied=%v want only the first casing of version 4", m.applied)
	}
}

func TestProcessOne_VersionsIndependentPerRegion(t *testing.T) {
	m := &recordingMerger{result: true}
	c := newTestConsumer(m)

	_ = c.ProcessOne(context.Background(), msgFor(t, deltas.Event{Region: "global", Version: 7}))
	_ = c.ProcessOne(context.Background(), msgFor(t, deltas.Event{Region: "nordics", Version: 2}))

	if len(m.applied) != 2 {
		t.Fatalf("applied=%d want 2, one per region", len(m.applied))
	}
}

func TestVersionDedupe(t *testing.T) {
	d := newVersionDedupe(2)

	if !d.shouldApply("a", 1) {
		t.Fatal("first version rejected")
	}
	if d.shouldApply("a", 1) {
		t.Fatal("replay accepted")
	}
	if !d.shouldApply("a", 2) {
		t.Fatal("newer version rejected")
	}
	// capacity 2: adding two more regions evicts "a", after which any version
	// is accepted again (dedupe is best-effort)
	d.shouldApply("b", 1)
	d.shouldApply("c", 1)
	if !d.shouldApply("a", 1) {
		t.Fatal("evicted region should accept again")
	}
}

func TestReadiness(t *testing.T) {
	c := newTestConsumer(&recordingMerger{})
	if ready, _ := c.Readiness(); ready {
		t.Fatal("consumer ready before Start")
	}
	c.setReady(true)
	if ready, _ := c.Readiness(); !ready {
		t.Fatal("setReady(true) not reflected")
	}
}
