// Package summary turns a region's overlays and metrics into a short
// natural-language synopsis. It prefers an external completion provider but
// can always fall back to a deterministic template, so generation never
// fails the overall request.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/procurex/map-insight/internal/core/model"
	"github.com/procurex/map-insight/internal/core/observability"
)

const maxBullets = 3

// DefaultTimeout bounds a single completion call so provider latency cannot
// stall a request.
const DefaultTimeout = 8 * time.Second

// CompletionClient is the external text-generation collaborator. Treated as
// unreliable; every call site degrades to the fallback.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Input struct {
	Region   string
	Overlays model.Overlays
	Metrics  model.MetricsSnapshot
}

type Generator struct {
	client  CompletionClient
	timeout time.Duration
	logger  *slog.Logger
}

// NewGenerator builds a Generator. A nil client means every summary is
// produced by the deterministic fallback.
func NewGenerator(client CompletionClient, timeout time.Duration, logger *slog.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, timeout: timeout, logger: logger}
}

// Generate never returns an error: provider failures are logged and absorbed
// into the fallback. The Provider field of the result reports which path
// actually produced it.
func (g *Generator) Generate(ctx context.Context, in Input) model.InsightSummary {
	if g.client != nil {
		s, err := g.fromProvider(ctx, in)
		if err == nil {
			observability.IncSummary(model.ProviderOpenAI)
			return s
		}
		g.logger.Warn("completion provider failed, using fallback summary",
			"region", in.Region, "err", err)
	}
	observability.IncSummary(model.ProviderSystem)
	return g.fallback(in)
}

func (g *Generator) fromProvider(ctx context.Context, in Input) (model.InsightSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	raw, err := g.client.Complete(ctx, systemPrompt, userPrompt(in))
	observability.ObserveUpstreamLatency("openai", time.Since(start).Seconds())
	if err != nil {
		return model.InsightSummary{}, fmt.Errorf("complete: %w", err)
	}

	text, bullets, ok := parseCompletion(raw)
	if !ok {
		return model.InsightSummary{}, fmt.Errorf("unparseable completion %q", truncate(raw, 120))
	}
	if bullets == nil {
		// clients expect an array even when the provider returned no bullets
		bullets = []string{}
	}
	return model.InsightSummary{
		Text:     text,
		Bullets:  bullets,
		Provider: model.ProviderOpenAI,
	}, nil
}

const systemPrompt = "You are a procurement analyst. Summarize regional RFx telemetry " +
	"in one overview sentence followed by up to three short bullet points, one per line, " +
	"each starting with '- '. Plain text only."

func userPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Region: %s\n", in.Region)
	t := in.Metrics.Totals
	fmt.Fprintf(&b, "Totals: activeRfx=%d openOpportunities=%d vendorCoverage=%d anomalies=%d\n",
		t.ActiveRFx, t.OpenOpportunities, t.VendorCoverage, t.Anomalies)
	fmt.Fprintf(&b, "Hotspots: %d\n", len(in.Metrics.Hotspots))
	for i, h := range in.Metrics.Hotspots {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- hotspot lat=%.4f lng=%.4f intensity=%.2f\n", h.Lat, h.Lng, h.Intensity)
	}
	for i, a := range in.Overlays.AIInsights.Anomalies {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- anomaly severity=%s: %s\n", a.Severity, a.Message)
	}
	return b.String()
}

// parseCompletion splits the raw text on newlines: the first non-empty line
// (bullet markup stripped) becomes the overview, up to three subsequent
// non-empty lines become bullets.
func parseCompletion(raw string) (text string, bullets []string, ok bool) {
	for _, line := range strings.Split(raw, "\n") {
		line = stripBullet(line)
		if line == "" {
			continue
		}
		if text == "" {
			text = line
			continue
		}
		if len(bullets) < maxBullets {
			bullets = append(bullets, line)
		}
	}
	return text, bullets, text != ""
}

func stripBullet(line string) string {
	line = strings.TrimSpace(line)
	for _, prefix := range []string{"-", "*", "•"} {
		if rest, found := strings.CutPrefix(line, prefix); found {
			return strings.TrimSpace(rest)
		}
	}
	// numbered list markup ("1." / "2)")
	if len(line) >= 2 && line[0] >= '0' && line[0] <= '9' && (line[1] == '.' || line[1] == ')') {
		return strings.TrimSpace(line[2:])
	}
	return line
}

// fallback synthesizes a summary from the metrics alone. Always exactly
// three bullets.
func (g *Generator) fallback(in Input) model.InsightSummary {
	t := in.Metrics.Totals
	return model.InsightSummary{
		Text: fmt.Sprintf("Region %s has %d active RFx processes across %d hotspots.",
			in.Region, t.ActiveRFx, len(in.Metrics.Hotspots)),
		Bullets: []string{
			fmt.Sprintf("%d open opportunities are accepting proposals.", t.OpenOpportunities),
			fmt.Sprintf("Vendor coverage stands at %d%% of tracked categories.", t.VendorCoverage),
			fmt.Sprintf("%d anomalies flagged for review.", t.Anomalies),
		},
		Provider: model.ProviderSystem,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
