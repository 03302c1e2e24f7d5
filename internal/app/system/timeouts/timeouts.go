// Package timeouts holds the shared deadlines applied to request contexts
// and startup work.
//
// Tiers:
//   - Ping: liveness checks against MongoDB and Redis
//   - Short: single-document reads such as a user or a target by id
//   - Medium: listings, leaderboard aggregations, single writes
//   - Long: multi-collection writes such as propagation, subdivision and
//     commission distribution
//   - Batch: index creation and the reconciler's sweep
//
// Every tier can be overridden from the environment at startup with
// FUNDHUB_TIMEOUT_<TIER> (e.g. FUNDHUB_TIMEOUT_LONG=45s).
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

// EnvPrefix prefixes every override variable.
const EnvPrefix = "FUNDHUB_TIMEOUT_"

// Config is a full set of tiers. Zero fields leave the tier unchanged.
type Config struct {
	Ping   time.Duration `json:"ping"`
	Short  time.Duration `json:"short"`
	Medium time.Duration `json:"medium"`
	Long   time.Duration `json:"long"`
	Batch  time.Duration `json:"batch"`
}

var defaults = Config{
	Ping:   DefaultPing,
	Short:  DefaultShort,
	Medium: DefaultMedium,
	Long:   DefaultLong,
	Batch:  DefaultBatch,
}

var (
	mu  sync.RWMutex
	cur = defaults
)

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(cur)
}

func Ping() time.Duration   { return get(func(c Config) time.Duration { return c.Ping }) }
func Short() time.Duration  { return get(func(c Config) time.Duration { return c.Short }) }
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }
func Long() time.Duration   { return get(func(c Config) time.Duration { return c.Long }) }
func Batch() time.Duration  { return get(func(c Config) time.Duration { return c.Batch }) }

// Configure overrides the non-zero tiers of cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, t := range tiers(&cur) {
		if d := t.from(cfg); d > 0 {
			*t.dst = d
		}
	}
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults
}

// Current returns the active tiers.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// ConfigureFromEnv applies FUNDHUB_TIMEOUT_* overrides and returns how many
// were accepted. Unparsable or non-positive values are ignored.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	n := 0
	for _, t := range tiers(&cur) {
		v := os.Getenv(EnvPrefix + t.name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*t.dst = d
			n++
		}
	}
	return n
}

type tier struct {
	name string
	dst  *time.Duration
	from func(Config) time.Duration
}

func tiers(c *Config) []tier {
	return []tier{
		{"PING", &c.Ping, func(x Config) time.Duration { return x.Ping }},
		{"SHORT", &c.Short, func(x Config) time.Duration { return x.Short }},
		{"MEDIUM", &c.Medium, func(x Config) time.Duration { return x.Medium }},
		{"LONG", &c.Long, func(x Config) time.Duration { return x.Long }},
		{"BATCH", &c.Batch, func(x Config) time.Duration { return x.Batch }},
	}
}

// WithTimeout derives a context bounded by timeout. Its cancel func logs a
// warning naming operation when the deadline was what ended the context.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "propagate collection")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
