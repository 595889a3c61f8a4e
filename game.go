// Buzzbox Jeopardy Game
//
// One process hosts one game. Players register from their phones, submit
// trivia questions, and race to buzz in once the host opens a clue. A shared
// TV renders the board, and an admin console drives clue selection and
// scoring. Every committed state change is fanned out to all connected
// clients over websockets.
//
// Clue lifecycle: no clue → clue active/unlocked → clue active/locked to one
// responder → back to unlocked (wrong answer, empty queue), re-locked to the
// next queued player (wrong answer, non-empty queue), or cleared (correct
// answer or skip).
//
// Rules enforced here:
// - First buzz wins the lock; later buzzes join a FIFO waiting queue
// - A player appears at most once in the queue
// - Buzzing is rejected while the clue is still being read aloud
// - A correct answer awards the clue's value and hands the responder the
//   next pick; a wrong answer costs the clue's value
// - Only the designated picker may select the next tile, unless forced
// - The answer countdown is presentational: clients derive it from the
//   last buzz time, the server never expires a lock

package main

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
)

// Notifier receives snapshots after every committed mutation. Delivery is
// fire-and-forget: a slow or disconnected subscriber never blocks or rolls
// back the mutation that triggered it.
type Notifier interface {
	StateChanged(GameState)
	QueueChanged([]QueueEntryView)
	PlayersChanged([]Player)
	BoardChanged([]BoardCategory)
}

// QueueEntryView is a queue entry joined with player display info.
type QueueEntryView struct {
	BuzzEntry
	PlayerName string `json:"player_name"`
}

// Game owns the authoritative state: the GameState singleton and the buzz
// queue live in memory behind g.mu, the player directory and question
// catalog live in the Store. Every compound read-modify-write runs to
// completion under g.mu, so two simultaneous buzzes resolve strictly
// sequentially and exactly one wins the lock.
type Game struct {
	mu     sync.Mutex
	state  *stateStore
	queue  *buzzQueue
	store  *Store
	pack   []DefaultQuestion
	clock  clockwork.Clock
	notify Notifier
}

func newGame(store *Store, pack []DefaultQuestion, clock clockwork.Clock, notify Notifier) *Game {
	return &Game{
		state:  newStateStore(),
		queue:  &buzzQueue{},
		store:  store,
		pack:   pack,
		clock:  clock,
		notify: notify,
	}
}

// State returns the current GameState snapshot.
func (g *Game) State() GameState {
	return g.state.Read()
}

// Queue returns the current waiting order, earliest buzz first.
func (g *Game) Queue() ([]QueueEntryView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.queueViewLocked()
}

// BuzzResult reports what happened to a single buzz request.
type BuzzResult struct {
	Locked   bool      `json:"locked"`             // this player now holds the lock
	Queued   bool      `json:"queued"`             // this player joined the waiting queue
	Position int       `json:"position,omitempty"` // queue position, 1-based, when queued
	Reason   string    `json:"reason,omitempty"`   // "already_current" or "already_queued"
	State    GameState `json:"state"`
}

// Buzz arbitrates a single buzz request. The first buzz while unlocked wins
// the lock; buzzes while locked by someone else join the queue; re-buzzing
// while holding the lock or while already queued is a no-op.
func (g *Game) Buzz(playerID string) (BuzzResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.playerLocked(playerID); err != nil {
		return BuzzResult{}, err
	}

	st := g.state.Read()
	switch {
	case st.Status != StatusActive:
		return BuzzResult{}, preconditionFault("game is not active")
	case st.CurrentClue == nil:
		return BuzzResult{}, preconditionFault("no clue is active")
	case st.QuestionReading:
		return BuzzResult{}, preconditionFault("clue is still being read")
	}

	if !st.BuzzerLocked {
		now := g.clock.Now()
		next := g.state.Patch(statePatch{
			locked:       ptrTo(true),
			lastBuzzer:   &playerID,
			lastBuzzTime: &now,
		})
		g.broadcastStateLocked(next)

		return BuzzResult{Locked: true, State: next}, nil
	}

	if st.LastBuzzPlayerID == playerID {
		return BuzzResult{Reason: "already_current", State: st}, nil
	}

	if !g.queue.enqueue(playerID, g.clock.Now()) {
		return BuzzResult{Reason: "already_queued", State: st}, nil
	}
	g.broadcastQueueLocked()

	return BuzzResult{Queued: true, Position: g.queue.len(), State: st}, nil
}

// ResolveResult is the outcome of scoring the current responder.
type ResolveResult struct {
	State      GameState `json:"state"`
	Scoreboard []Player  `json:"scoreboard"`
}

// Resolve scores the responder's spoken answer. A correct answer awards the
// clue's value, clears the clue, and hands the responder the next pick. A
// wrong answer costs the clue's value and passes the lock to the earliest
// queued player, or reopens buzzing if nobody is waiting.
func (g *Game) Resolve(playerID string, correct bool) (ResolveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.playerLocked(playerID); err != nil {
		return ResolveResult{}, err
	}

	st := g.state.Read()
	if st.CurrentClue == nil {
		return ResolveResult{}, preconditionFault("no clue is active")
	}
	delta := st.CurrentClue.Points

	var next GameState
	if correct {
		if err := g.store.AdjustScore(playerID, delta); err != nil {
			return ResolveResult{}, err
		}
		g.queue.clear()
		next = g.state.Patch(statePatch{
			clearClue:    true,
			turnPlayer:   &playerID,
			locked:       ptrTo(false),
			lastBuzzer:   ptrTo(""),
			lastBuzzTime: ptrTo(zeroTime),
			reading:      ptrTo(false),
		})
	} else {
		if err := g.store.AdjustScore(playerID, -delta); err != nil {
			return ResolveResult{}, err
		}
		next = g.advanceLockLocked()
	}

	g.broadcastStateLocked(next)
	g.broadcastQueueLocked()
	g.broadcastPlayersLocked()

	return g.resolveResultLocked(next), nil
}

// resolveResultLocked assembles the reply to a resolution. The score
// adjustment and state patch are already committed, so a failed scoreboard
// read degrades the reply rather than misreporting the resolution as failed.
func (g *Game) resolveResultLocked(next GameState) ResolveResult {
	scoreboard, err := g.store.Scoreboard()
	if err != nil {
		return ResolveResult{State: next}
	}
	return ResolveResult{State: next, Scoreboard: scoreboard}
}

// advanceLockLocked hands the lock to the earliest queued player with a
// fresh timestamp, restarting the countdown, or unlocks the buzzer when the
// queue is empty.
func (g *Game) advanceLockLocked() GameState {
	if entry, ok := g.queue.dequeueEarliest(); ok {
		now := g.clock.Now()
		return g.state.Patch(statePatch{
			locked:       ptrTo(true),
			lastBuzzer:   &entry.PlayerID,
			lastBuzzTime: &now,
		})
	}

	return g.state.Patch(statePatch{
		locked:       ptrTo(false),
		lastBuzzer:   ptrTo(""),
		lastBuzzTime: ptrTo(zeroTime),
	})
}

// Skip abandons the current clue without awarding or penalizing anyone.
// The picker keeps their turn.
func (g *Game) Skip() (GameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state.Read()
	if st.CurrentClue == nil {
		return GameState{}, preconditionFault("no clue is active")
	}

	g.queue.clear()
	next := g.state.Patch(statePatch{
		clearClue:    true,
		locked:       ptrTo(false),
		lastBuzzer:   ptrTo(""),
		lastBuzzTime: ptrTo(zeroTime),
		reading:      ptrTo(false),
	})

	g.broadcastStateLocked(next)
	g.broadcastQueueLocked()

	return next, nil
}

// Unlock force-releases the buzzer lock and empties the waiting queue,
// reopening buzzing for everyone.
func (g *Game) Unlock() (GameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.queue.clear()
	next := g.state.Patch(statePatch{
		locked:       ptrTo(false),
		lastBuzzer:   ptrTo(""),
		lastBuzzTime: ptrTo(zeroTime),
	})

	g.broadcastStateLocked(next)
	g.broadcastQueueLocked()

	return next, nil
}

// SetReading toggles the reading window. While true, buzzing is rejected so
// nobody can buzz before the clue has been read aloud.
func (g *Game) SetReading(reading bool) (GameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.state.Patch(statePatch{reading: &reading})
	g.broadcastStateLocked(next)

	return next, nil
}

// playerLocked resolves playerID against the directory.
func (g *Game) playerLocked(playerID string) (Player, error) {
	if playerID == "" {
		return Player{}, validationFault("player id is required")
	}
	p, err := g.store.GetPlayer(playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, notFoundFault("unknown player: %s", playerID)
	}
	if err != nil {
		return Player{}, err
	}
	return p, nil
}

func (g *Game) queueViewLocked() ([]QueueEntryView, error) {
	entries := g.queue.list()

	players, err := g.store.ListPlayers()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}

	views := make([]QueueEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, QueueEntryView{
			BuzzEntry:  e,
			PlayerName: names[e.PlayerID],
		})
	}
	return views, nil
}

func (g *Game) broadcastStateLocked(st GameState) {
	if g.notify == nil {
		return
	}
	g.notify.StateChanged(st)
}

func (g *Game) broadcastQueueLocked() {
	if g.notify == nil {
		return
	}
	views, err := g.queueViewLocked()
	if err != nil {
		return
	}
	g.notify.QueueChanged(views)
}

func (g *Game) broadcastPlayersLocked() {
	if g.notify == nil {
		return
	}
	players, err := g.store.Scoreboard()
	if err != nil {
		return
	}
	g.notify.PlayersChanged(players)
}

func (g *Game) broadcastBoardLocked() {
	if g.notify == nil {
		return
	}
	board, err := g.boardLocked()
	if err != nil {
		return
	}
	g.notify.BoardChanged(board)
}
