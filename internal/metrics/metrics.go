// Package metrics provides a lightweight Prometheus-compatible metrics
// registry for deadlines. It deliberately avoids the prometheus/client_golang
// package so the binary stays small with no additional dependencies.
//
// # Counter naming convention
//
// Every counter uses a string label key so that a single sync.Map can hold
// all label combinations. Unlabelled counters use the empty key.
//
//	Scheduled / Armed / Fired / Cancelled / Panicked  →  key = ""
//	Woken                                             →  key = signal name
//	LateMs / LateCnt                                  →  key = ""
//
// # Prometheus text output
//
// Calling Registry.Handler() returns an http.Handler that renders all counters
// in the Prometheus exposition format (text/plain; version=0.0.4).
package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snehjoshi/deadline/pkg/wake"
)

// ─── labelCounter ─────────────────────────────────────────────────────────────

// labelCounter is a lock-free, label-keyed counter map backed by sync.Map and
// atomic.Int64 values.
type labelCounter struct {
	vals sync.Map // key string → *atomic.Int64
}

func (lc *labelCounter) get(key string) *atomic.Int64 {
	v, _ := lc.vals.LoadOrStore(key, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// Inc increments the counter for key by 1.
func (lc *labelCounter) Inc(key string) { lc.get(key).Add(1) }

// Add increments the counter for key by n.
func (lc *labelCounter) Add(key string, n int64) { lc.get(key).Add(n) }

// Value returns the current value for key.
func (lc *labelCounter) Value(key string) int64 {
	v, ok := lc.vals.Load(key)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// Each calls fn for every key/value pair. The order is non-deterministic.
func (lc *labelCounter) Each(fn func(key string, val int64)) {
	lc.vals.Range(func(k, v any) bool {
		fn(k.(string), v.(*atomic.Int64).Load())
		return true
	})
}

// ─── Registry ─────────────────────────────────────────────────────────────────

// Registry holds all deadline metrics. The zero value is ready to use.
// *Registry satisfies deadline.Observer.
type Registry struct {
	Schedules labelCounter
	Arms      labelCounter
	Wakes     labelCounter // key = signal
	Fires     labelCounter
	Cancels   labelCounter
	Panics    labelCounter

	// Lateness of fired deadlines.
	LateMs  labelCounter // sum in milliseconds
	LateCnt labelCounter
}

// Scheduled implements deadline.Observer.
func (r *Registry) Scheduled(string, time.Time) { r.Schedules.Inc("") }

// Armed implements deadline.Observer.
func (r *Registry) Armed(string, time.Duration) { r.Arms.Inc("") }

// Woken implements deadline.Observer.
func (r *Registry) Woken(_ string, sig wake.Signal) { r.Wakes.Inc(string(sig)) }

// Fired implements deadline.Observer.
func (r *Registry) Fired(_ string, late time.Duration) {
	r.Fires.Inc("")
	r.LateMs.Add("", late.Milliseconds())
	r.LateCnt.Inc("")
}

// Cancelled implements deadline.Observer.
func (r *Registry) Cancelled(string) { r.Cancels.Inc("") }

// Panicked implements deadline.Observer.
func (r *Registry) Panicked(string) { r.Panics.Inc("") }

// ─── Prometheus text serialisation ────────────────────────────────────────────

// Handler returns an http.Handler that renders all metrics in the Prometheus
// plain-text exposition format (text/plain; version=0.0.4).
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)

		var b strings.Builder

		for _, c := range []struct {
			name, help string
			lc         *labelCounter
		}{
			{"deadline_scheduled_total", "Total deadlines scheduled", &r.Schedules},
			{"deadline_timer_armed_total", "Total native timers armed, including rearms", &r.Arms},
			{"deadline_fired_total", "Total deadlines whose callback was invoked", &r.Fires},
			{"deadline_cancelled_total", "Total deadlines cancelled before firing", &r.Cancels},
			{"deadline_callback_panics_total", "Total callbacks that panicked", &r.Panics},
			{"deadline_lateness_milliseconds_sum", "Sum of firing lateness in milliseconds", &r.LateMs},
			{"deadline_lateness_milliseconds_count", "Count of observed firing lateness", &r.LateCnt},
		} {
			writeFamily(&b, c.name, c.help, "counter",
				func(fn func(labels, val string)) {
					c.lc.Each(func(_ string, val int64) {
						fn("", fmt.Sprintf("%d", val))
					})
				})
		}

		writeFamily(&b, "deadline_wake_rechecks_total",
			"Total rechecks triggered by wake signals", "counter",
			func(fn func(labels, val string)) {
				r.Wakes.Each(func(key string, val int64) {
					fn(fmt.Sprintf(`signal=%q`, key), fmt.Sprintf("%d", val))
				})
			})

		fmt.Fprint(w, b.String())
	})
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// writeFamily writes a single Prometheus metric family to b.
// fill is called with a writer function that appends individual label+value lines.
func writeFamily(
	b *strings.Builder,
	name, help, typ string,
	fill func(fn func(labels, val string)),
) {
	// Buffer individual metric lines so we can skip the header when empty.
	var lines []string
	fill(func(labels, val string) {
		if labels == "" {
			lines = append(lines, fmt.Sprintf("%s %s\n", name, val))
			return
		}
		lines = append(lines, fmt.Sprintf("%s{%s} %s\n", name, labels, val))
	})
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, typ)
	for _, l := range lines {
		b.WriteString(l)
	}
}
