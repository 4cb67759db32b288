package services

import (
	"sync"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/metrics"
)

// Pricing converts token counts to cost.
type Pricing struct {
	InputPerMillion  float64 // USD
	OutputPerMillion float64 // USD
	USDToLocal       float64
}

// Usage is the token usage and cost of one model call.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	CostLocal    float64 `json:"cost_local"`
}

func (p Pricing) Cost(inputTokens, outputTokens int) Usage {
	usd := float64(inputTokens)/1_000_000*p.InputPerMillion + float64(outputTokens)/1_000_000*p.OutputPerMillion
	return Usage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      usd,
		CostLocal:    usd * p.USDToLocal,
	}
}

// UsageStats aggregates usage for a day or month.
type UsageStats struct {
	Period       string  `json:"period"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	CostLocal    float64 `json:"cost_local"`
	Requests     int     `json:"requests"`
	AvgCostLocal float64 `json:"avg_cost_per_request_local"`
}

func (s *UsageStats) add(u Usage) {
	s.InputTokens += u.InputTokens
	s.OutputTokens += u.OutputTokens
	s.TotalTokens = s.InputTokens + s.OutputTokens
	s.CostUSD += u.CostUSD
	s.CostLocal += u.CostLocal
	s.Requests++
	s.AvgCostLocal = s.CostLocal / float64(s.Requests)
}

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// CostTracker keeps daily and monthly model cost totals in memory.
type CostTracker struct {
	pricing Pricing
	now     func() time.Time
	metrics *metrics.Collector

	mu      sync.RWMutex
	daily   map[string]*UsageStats
	monthly map[string]*UsageStats
}

func NewCostTracker(pricing Pricing, m *metrics.Collector) *CostTracker {
	return &CostTracker{
		pricing: pricing,
		now:     time.Now,
		metrics: m,
		daily:   make(map[string]*UsageStats),
		monthly: make(map[string]*UsageStats),
	}
}

// Track records a model call and returns its priced usage.
func (c *CostTracker) Track(inputTokens, outputTokens int) Usage {
	u := c.pricing.Cost(inputTokens, outputTokens)
	now := c.now().UTC()
	day, month := now.Format(dayLayout), now.Format(monthLayout)

	c.mu.Lock()
	if c.daily[day] == nil {
		c.daily[day] = &UsageStats{Period: day}
	}
	if c.monthly[month] == nil {
		c.monthly[month] = &UsageStats{Period: month}
	}
	c.daily[day].add(u)
	c.monthly[month].add(u)
	c.mu.Unlock()

	c.metrics.LLMUsage(inputTokens, outputTokens, u.CostUSD)
	return u
}

// Daily returns stats for a YYYY-MM-DD day; empty means today (UTC).
func (c *CostTracker) Daily(day string) UsageStats {
	if day == "" {
		day = c.now().UTC().Format(dayLayout)
	}
	return c.lookup(c.daily, day)
}

// Monthly returns stats for a YYYY-MM month; empty means this month (UTC).
func (c *CostTracker) Monthly(month string) UsageStats {
	if month == "" {
		month = c.now().UTC().Format(monthLayout)
	}
	return c.lookup(c.monthly, month)
}

func (c *CostTracker) lookup(m map[string]*UsageStats, key string) UsageStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := m[key]; ok {
		return *s
	}
	return UsageStats{Period: key}
}
