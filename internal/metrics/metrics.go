package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "dinepe"

// Collector holds the conversation engine's Prometheus metrics. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	messages       *prometheus.CounterVec
	actions        *prometheus.CounterVec
	commits        *prometheus.CounterVec
	draftDiscards  *prometheus.CounterVec
	gateWait       prometheus.Histogram
	gateRejections *prometheus.CounterVec
	reconcileTime  prometheus.Histogram
	feedbackJobs   *prometheus.CounterVec
	llmTokens      *prometheus.CounterVec
	llmCost        prometheus.Counter
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_total",
			Help: "Inbound messages by outcome",
		}, []string{"outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "actions_total",
			Help: "Normalized actions applied by the reconciler",
		}, []string{"kind"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commits_total",
			Help: "Drafts committed to the ledger",
		}, []string{"entity", "result"}),
		draftDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "draft_discards_total",
			Help: "Drafts replaced by a draft of another kind",
		}, []string{"from", "to"}),
		gateWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "gate_wait_seconds",
			Help:    "Time spent waiting for the per-customer gate",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10},
		}),
		gateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "gate_rejections_total",
			Help: "Messages rejected by the per-customer gate",
		}, []string{"reason"}),
		reconcileTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "reconcile_duration_seconds",
			Help:    "Duration of a reconciliation step",
			Buckets: prometheus.DefBuckets,
		}),
		feedbackJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "feedback_jobs_total",
			Help: "Feedback job lifecycle events",
		}, []string{"event"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_tokens_total",
			Help: "LLM tokens consumed",
		}, []string{"direction"}),
		llmCost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_cost_usd_total",
			Help: "Estimated LLM spend in USD",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.messages, c.actions, c.commits, c.draftDiscards,
		c.gateWait, c.gateRejections, c.reconcileTime,
		c.feedbackJobs, c.llmTokens, c.llmCost,
	)
	return c
}

// Registry exposes the registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

func (c *Collector) Message(outcome string) {
	if c == nil {
		return
	}
	c.messages.WithLabelValues(outcome).Inc()
}

func (c *Collector) Action(kind string) {
	if c == nil {
		return
	}
	c.actions.WithLabelValues(kind).Inc()
}

func (c *Collector) Commit(entity, result string) {
	if c == nil {
		return
	}
	c.commits.WithLabelValues(entity, result).Inc()
}

func (c *Collector) DraftDiscarded(from, to string) {
	if c == nil {
		return
	}
	c.draftDiscards.WithLabelValues(from, to).Inc()
}

func (c *Collector) GateWait(d time.Duration) {
	if c == nil {
		return
	}
	c.gateWait.Observe(d.Seconds())
}

func (c *Collector) GateRejected(reason string) {
	if c == nil {
		return
	}
	c.gateRejections.WithLabelValues(reason).Inc()
}

func (c *Collector) ReconcileDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.reconcileTime.Observe(d.Seconds())
}

func (c *Collector) FeedbackJob(event string) {
	if c == nil {
		return
	}
	c.feedbackJobs.WithLabelValues(event).Inc()
}

func (c *Collector) LLMUsage(inputTokens, outputTokens int, costUSD float64) {
	if c == nil {
		return
	}
	c.llmTokens.WithLabelValues("input").Add(float64(inputTokens))
	c.llmTokens.WithLabelValues("output").Add(float64(outputTokens))
	c.llmCost.Add(costUSD)
}
