// Package tracker implements the registration lifetime keyed-timer
// service (spec §4.5): devices insert/refresh a timer under their
// server-endpoint key, and the tracker broadcasts the key once that
// timer's duration has elapsed without being refreshed again.
package tracker

import (
	"time"
)

const (
	// defaultInsertQueueCapacity bounds the insert channel; once full,
	// Insert blocks, making backpressure producer-visible.
	defaultInsertQueueCapacity = 2048
	// defaultBroadcastCapacity bounds each subscriber's buffer.
	defaultBroadcastCapacity = 1024
	// defaultCompletionCapacity bounds the fan-in channel that timer
	// callbacks report through; sized generously since it only ever
	// holds in-flight completions, never the full timer population.
	defaultCompletionCapacity = 4096
)

type insertMsg struct {
	key      string
	duration time.Duration
}

type timerRecord struct {
	timer      *time.Timer
	generation uint64
}

type completion struct {
	key        string
	generation uint64
}

// Tracker is the single long-lived keyed-timer service described in
// spec §4.5. Create one with New, feed it with Insert, and read expiries
// from a Subscription obtained via Subscribe.
type Tracker struct {
	insertCh chan insertMsg
	bc       *broadcaster
	done     chan struct{}
}

// New starts the tracker's serializing goroutine and returns a handle to
// it. Call Close to drain and stop it.
func New() *Tracker {
	t := &Tracker{
		insertCh: make(chan insertMsg, defaultInsertQueueCapacity),
		bc:       newBroadcaster(defaultBroadcastCapacity),
		done:     make(chan struct{}),
	}
	go t.run()
	return t
}

// Insert registers a new timer for key, or replaces the existing one.
// A replacement cancels the prior timer for the same key; only the
// newest insert for a key can ever broadcast an expiry. Insert blocks if
// the insert queue is full.
func (t *Tracker) Insert(key string, duration time.Duration) {
	t.insertCh <- insertMsg{key: key, duration: duration}
}

// Subscribe returns a new subscription to the expiry broadcast. Every
// subscriber receives every key broadcast after it subscribes; a
// subscriber that falls behind loses messages rather than stalling the
// tracker (Subscription.Lagged reports how many).
func (t *Tracker) Subscribe() *Subscription {
	return t.bc.subscribe()
}

// Close closes the insert queue and waits for the tracker to drain: all
// in-flight timers either complete naturally or were already cancelled.
// In-flight timers are never force-completed.
func (t *Tracker) Close() {
	close(t.insertCh)
	<-t.done
}

func (t *Tracker) run() {
	defer close(t.done)

	registered := make(map[string]*timerRecord)
	completions := make(chan completion, defaultCompletionCapacity)

	var nextGeneration uint64
	inFlight := 0
	insertCh := t.insertCh

	for insertCh != nil || inFlight > 0 {
		select {
		case msg, ok := <-insertCh:
			if !ok {
				insertCh = nil
				continue
			}

			nextGeneration++
			generation := nextGeneration
			key := msg.key

			rec := &timerRecord{generation: generation}
			rec.timer = time.AfterFunc(msg.duration, func() {
				completions <- completion{key: key, generation: generation}
			})
			inFlight++

			if old, exists := registered[key]; exists {
				// Install the replacement before cancelling the old timer:
				// if the old timer's callback is already racing to fire, the
				// generation check on completion below will discard it
				// regardless of whether Stop succeeds.
				registered[key] = rec
				if old.timer.Stop() {
					inFlight--
				}
			} else {
				registered[key] = rec
			}

		case c, ok := <-completions:
			if !ok {
				continue
			}
			inFlight--

			if rec, exists := registered[c.key]; exists && rec.generation == c.generation {
				delete(registered, c.key)
				t.bc.broadcast(c.key)
			}
		}
	}
}
