package main

import (
	"testing"

	"github.com/jonboulle/clockwork"
)

// fakeNotifier records every fan-out payload for assertions.
type fakeNotifier struct {
	states  []GameState
	queues  [][]QueueEntryView
	players [][]Player
	boards  [][]BoardCategory
}

func (n *fakeNotifier) StateChanged(st GameState)       { n.states = append(n.states, st) }
func (n *fakeNotifier) QueueChanged(q []QueueEntryView) { n.queues = append(n.queues, q) }
func (n *fakeNotifier) PlayersChanged(p []Player)       { n.players = append(n.players, p) }
func (n *fakeNotifier) BoardChanged(b []BoardCategory)  { n.boards = append(n.boards, b) }

func newTestStore(t *testing.T, clock clockwork.Clock) *Store {
	t.Helper()
	s, err := NewStore(":memory:", clock)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestGame(t *testing.T) (*Game, *clockwork.FakeClock, *fakeNotifier) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	store := newTestStore(t, clock)

	pack, err := loadDefaultPack()
	if err != nil {
		t.Fatalf("load default pack: %v", err)
	}

	notify := &fakeNotifier{}
	return newGame(store, pack, clock, notify), clock, notify
}

func mustRegister(t *testing.T, g *Game, name string) Player {
	t.Helper()
	p, err := g.RegisterPlayer(name)
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return p
}

// mustOpenClue starts the game and puts a placeholder clue on display,
// leaving the buzzer unlocked and the reading window closed.
func mustOpenClue(t *testing.T, g *Game, category string, points int) GameState {
	t.Helper()
	if _, err := g.StartGame(); err != nil {
		t.Fatalf("start game: %v", err)
	}
	st, err := g.SelectCard(SelectCardRequest{Category: category, Points: points})
	if err != nil {
		t.Fatalf("select card: %v", err)
	}
	return st
}

func mustBuzz(t *testing.T, g *Game, playerID string) BuzzResult {
	t.Helper()
	result, err := g.Buzz(playerID)
	if err != nil {
		t.Fatalf("buzz %s: %v", playerID, err)
	}
	return result
}

func mustResolve(t *testing.T, g *Game, playerID string, correct bool) ResolveResult {
	t.Helper()
	result, err := g.Resolve(playerID, correct)
	if err != nil {
		t.Fatalf("resolve %s: %v", playerID, err)
	}
	return result
}

func scoreOf(t *testing.T, g *Game, playerID string) int {
	t.Helper()
	p, err := g.store.GetPlayer(playerID)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	return p.Score
}
