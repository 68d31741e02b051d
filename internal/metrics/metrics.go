// Package metrics provides a lightweight, Prometheus-compatible counter
// collector. It outputs text/plain in Prometheus exposition format without
// requiring the heavy prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates named counters and exposes them over HTTP.
type Collector struct {
	mu        sync.Mutex
	counters  map[string]*Counter
	startTime time.Time
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{
		counters:  make(map[string]*Counter),
		startTime: time.Now(),
	}
}

// Uptime returns how long the collector has been running.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter. The optional labels
// string is preformatted Prometheus label syntax, e.g. `outcome="echoed"`.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Counter returns the counter for name+labels, creating it on first use.
func (c *Collector) Counter(name, labels, help string) *Counter {
	key := name + "{" + labels + "}"

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.counters[key]; ok {
		return existing
	}
	ctr := &Counter{name: name, help: help, labels: labels}
	c.counters[key] = ctr
	return ctr
}

// Handler serves the Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(rw, c.Exposition())
	})
}

// Exposition renders all counters plus process uptime.
func (c *Collector) Exposition() string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.counters))
	for k := range c.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	seenHelp := make(map[string]bool)
	for _, k := range keys {
		ctr := c.counters[k]
		if !seenHelp[ctr.name] {
			out += fmt.Sprintf("# HELP %s %s\n# TYPE %s counter\n", ctr.name, ctr.help, ctr.name)
			seenHelp[ctr.name] = true
		}
		if ctr.labels != "" {
			out += fmt.Sprintf("%s{%s} %d\n", ctr.name, ctr.labels, ctr.Value())
		} else {
			out += fmt.Sprintf("%s %d\n", ctr.name, ctr.Value())
		}
	}
	c.mu.Unlock()

	out += "# HELP pagebot_uptime_seconds Time since process start.\n# TYPE pagebot_uptime_seconds gauge\n"
	out += fmt.Sprintf("pagebot_uptime_seconds %d\n", int64(c.Uptime().Seconds()))
	return out
}
