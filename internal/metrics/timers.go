package metrics

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Timers measures the stages of a run (read, render, publish...).
type Timers struct {
	Timers map[string]*Timer `json:"timers,omitempty"`
	order  []string
	last   string
	now    func() time.Time
}

func NewTimers() Timers {
	ts := Timers{Timers: make(map[string]*Timer), now: time.Now}
	return ts
}

// set a timer, updating if existing.
func (ts *Timers) set(k string) {
	if _, ok := ts.Timers[k]; !ok {
		ts.Timers[k] = &Timer{start: ts.now()}
		ts.order = append(ts.order, k)
	} else {
		stop := ts.now()
		ts.Timers[k].Total = stop.Sub(ts.Timers[k].start).Seconds()
	}
}

// Set check last timer, stop and add a new one (lap).
func (ts *Timers) Set(k string) {
	if ts.last != "" {
		ts.set(ts.last)
	}
	ts.set(k)
	ts.last = k
}

// Add a new timer.
func (ts *Timers) Add(k string) {
	ts.set(k)
}

// Stop the current lap.
func (ts *Timers) Stop() {
	if ts.last != "" {
		ts.set(ts.last)
		ts.last = ""
	}
}

// Log the timers at debug level, in the order they were started.
func (ts *Timers) Log() {
	for _, k := range ts.order {
		log.Debugf("timer %s: %.3fs", k, ts.Timers[k].Total)
	}
}

type Timer struct {
	start time.Time

	// Total time in seconds
	Total float64 `json:"seconds"`
}
