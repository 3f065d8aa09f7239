package utils

import (
	"sync"
	"time"
)

type messageHit struct {
	id string
	at time.Time
}

// MessageWindow tracks the trailing window of message IDs seen from one
// author so the spam rule can both count the burst and purge it.
type MessageWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []messageHit
}

func NewMessageWindow(window time.Duration) *MessageWindow {
	return &MessageWindow{window: window}
}

func (w *MessageWindow) Add(id string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.trim(now)
	w.hits = append(w.hits, messageHit{id: id, at: now})
	return len(w.hits)
}

// Drain returns the IDs currently inside the window and resets it, so a
// purge removes each message exactly once.
func (w *MessageWindow) Drain(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.trim(now)
	ids := make([]string, 0, len(w.hits))
	for _, hit := range w.hits {
		ids = append(ids, hit.id)
	}
	w.hits = nil
	return ids
}

func (w *MessageWindow) trim(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range w.hits {
		if hit.at.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}
