// Package metrics times the phases of a report run.
package metrics

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Timers collects named wall-clock durations. Safe for use from the
// concurrently running fetchers.
type Timers struct {
	mu     sync.Mutex
	timers map[string]time.Duration
}

func NewTimers() *Timers {
	return &Timers{timers: make(map[string]time.Duration)}
}

// Observe starts a timer and returns the function that stops it, meant to be
// deferred at the top of a phase.
func (ts *Timers) Observe(name string) func() {
	start := time.Now()
	return func() {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		ts.timers[name] = time.Since(start)
	}
}

// Log emits one info line per recorded timer, in name order.
func (ts *Timers) Log() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	names := make([]string, 0, len(ts.timers))
	for name := range ts.timers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Infof("%s took %.2fs", name, ts.timers[name].Seconds())
	}
}
