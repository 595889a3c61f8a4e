package main

import (
	"time"

	"github.com/google/uuid"
)

// BuzzEntry is one waiting player. Entries are held in ascending BuzzTime
// order; equal timestamps keep insertion order.
type BuzzEntry struct {
	ID       string    `json:"id"`
	PlayerID string    `json:"player_id"`
	BuzzTime time.Time `json:"buzz_time"`
}

// buzzQueue is the ordered waiting list of players who buzzed while the lock
// was held by someone else. It is not safe for concurrent use; the owning
// Game serializes access.
type buzzQueue struct {
	entries []BuzzEntry
}

// enqueue inserts a new entry ordered by timestamp. It reports false, with
// no change, if the player already has a pending entry.
func (q *buzzQueue) enqueue(playerID string, at time.Time) bool {
	if q.contains(playerID) {
		return false
	}

	entry := BuzzEntry{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		BuzzTime: at,
	}

	idx := len(q.entries)
	for i, e := range q.entries {
		if at.Before(e.BuzzTime) {
			idx = i
			break
		}
	}

	q.entries = append(q.entries, BuzzEntry{})
	copy(q.entries[idx+1:], q.entries[idx:])
	q.entries[idx] = entry

	return true
}

// dequeueEarliest removes and returns the entry with the smallest timestamp.
func (q *buzzQueue) dequeueEarliest() (BuzzEntry, bool) {
	if len(q.entries) == 0 {
		return BuzzEntry{}, false
	}

	entry := q.entries[0]
	q.entries = append(q.entries[:0], q.entries[1:]...)

	return entry, true
}

// remove drops the entry for playerID, if present.
func (q *buzzQueue) remove(playerID string) bool {
	dst := q.entries[:0]
	changed := false

	for _, e := range q.entries {
		if e.PlayerID == playerID {
			changed = true
			continue
		}
		dst = append(dst, e)
	}
	q.entries = dst

	return changed
}

func (q *buzzQueue) clear() {
	q.entries = q.entries[:0]
}

func (q *buzzQueue) contains(playerID string) bool {
	for _, e := range q.entries {
		if e.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (q *buzzQueue) len() int {
	return len(q.entries)
}

// list returns a copy of the current entries, earliest first.
func (q *buzzQueue) list() []BuzzEntry {
	out := make([]BuzzEntry, len(q.entries))
	copy(out, q.entries)
	return out
}
