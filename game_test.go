package main

import (
	"testing"
	"time"
)

func TestBuzzUnknownPlayer(t *testing.T) {
	g, _, _ := newTestGame(t)
	mustOpenClue(t, g, "Science", 100)

	_, err := g.Buzz("nope")
	if !faultIs(err, faultNotFound) {
		t.Fatalf("expected not-found fault, got %v", err)
	}
}

func TestBuzzRequiresActiveGame(t *testing.T) {
	g, _, _ := newTestGame(t)
	p := mustRegister(t, g, "alice")

	_, err := g.Buzz(p.ID)
	if !faultIs(err, faultPrecondition) {
		t.Fatalf("expected precondition fault, got %v", err)
	}
}

func TestBuzzRequiresActiveClue(t *testing.T) {
	g, _, _ := newTestGame(t)
	p := mustRegister(t, g, "alice")
	if _, err := g.StartGame(); err != nil {
		t.Fatalf("start game: %v", err)
	}

	_, err := g.Buzz(p.ID)
	if !faultIs(err, faultPrecondition) {
		t.Fatalf("expected precondition fault, got %v", err)
	}
}

func TestBuzzRejectedDuringReadingWindow(t *testing.T) {
	g, _, _ := newTestGame(t)
	p := mustRegister(t, g, "alice")
	mustOpenClue(t, g, "Science", 100)

	if _, err := g.SetReading(true); err != nil {
		t.Fatalf("set reading: %v", err)
	}
	if _, err := g.Buzz(p.ID); !faultIs(err, faultPrecondition) {
		t.Fatalf("expected precondition fault while reading, got %v", err)
	}

	if _, err := g.SetReading(false); err != nil {
		t.Fatalf("clear reading: %v", err)
	}
	result := mustBuzz(t, g, p.ID)
	if !result.Locked {
		t.Fatal("expected buzz to win the lock after reading window closed")
	}
}

func TestFirstBuzzWinsSecondIsQueued(t *testing.T) {
	g, clock, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	b := mustRegister(t, g, "bob")
	mustOpenClue(t, g, "Science", 100)

	first := mustBuzz(t, g, a.ID)
	if !first.Locked || first.Queued {
		t.Fatalf("expected first buzz to lock, got %+v", first)
	}
	if !first.State.BuzzerLocked || first.State.LastBuzzPlayerID != a.ID {
		t.Fatalf("expected lock held by %s, got %+v", a.ID, first.State)
	}

	clock.Advance(time.Millisecond)
	second := mustBuzz(t, g, b.ID)
	if !second.Queued || second.Position != 1 {
		t.Fatalf("expected second buzz queued at position 1, got %+v", second)
	}
	if second.State.LastBuzzPlayerID != a.ID {
		t.Fatal("queued buzz must not steal the lock")
	}
}

func TestBuzzWhileHoldingLockIsNoop(t *testing.T) {
	g, _, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	mustOpenClue(t, g, "Science", 100)
	mustBuzz(t, g, a.ID)

	again := mustBuzz(t, g, a.ID)
	if again.Locked || again.Queued || again.Reason != "already_current" {
		t.Fatalf("expected already_current, got %+v", again)
	}
}

func TestBuzzWhileQueuedIsNoop(t *testing.T) {
	g, clock, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	b := mustRegister(t, g, "bob")
	mustOpenClue(t, g, "Science", 100)

	mustBuzz(t, g, a.ID)
	clock.Advance(time.Millisecond)
	mustBuzz(t, g, b.ID)

	again := mustBuzz(t, g, b.ID)
	if again.Queued || again.Reason != "already_queued" {
		t.Fatalf("expected already_queued, got %+v", again)
	}

	entries, err := g.Queue()
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 queue entry, got %d", len(entries))
	}
}

func TestResolveRequiresActiveClue(t *testing.T) {
	g, _, _ := newTestGame(t)
	p := mustRegister(t, g, "alice")
	if _, err := g.StartGame(); err != nil {
		t.Fatalf("start game: %v", err)
	}

	_, err := g.Resolve(p.ID, true)
	if !faultIs(err, faultPrecondition) {
		t.Fatalf("expected precondition fault, got %v", err)
	}
}

func TestResolveCorrectAwardsAndTransfersTurn(t *testing.T) {
	g, _, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	b := mustRegister(t, g, "bob")
	mustOpenClue(t, g, "Science", 300)
	mustBuzz(t, g, a.ID)
	mustBuzz(t, g, b.ID)

	result := mustResolve(t, g, a.ID, true)

	if got := scoreOf(t, g, a.ID); got != 300 {
		t.Fatalf("expected score 300, got %d", got)
	}
	st := result.State
	if st.CurrentClue != nil {
		t.Fatal("expected clue cleared after correct answer")
	}
	if st.TurnPlayerID != a.ID {
		t.Fatalf("expected turn handed to %s, got %q", a.ID, st.TurnPlayerID)
	}
	if st.BuzzerLocked || st.LastBuzzPlayerID != "" {
		t.Fatalf("expected lock released, got %+v", st)
	}

	entries, err := g.Queue()
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected queue cleared, got %d entries", len(entries))
	}
}

func TestResolveWrongPenalizesAndKeepsClue(t *testing.T) {
	g, _, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	mustOpenClue(t, g, "Science", 400)
	mustBuzz(t, g, a.ID)

	result := mustResolve(t, g, a.ID, false)

	if got := scoreOf(t, g, a.ID); got != -400 {
		t.Fatalf("expected score -400, got %d", got)
	}
	st := result.State
	if st.CurrentClue == nil || st.CurrentClue.Points != 400 {
		t.Fatalf("expected clue to remain active, got %+v", st.CurrentClue)
	}
	if st.BuzzerLocked {
		t.Fatal("expected buzzer unlocked with empty queue")
	}

	// The lock is released, so the same player may buzz again.
	if again := mustBuzz(t, g, a.ID); !again.Locked {
		t.Fatalf("expected re-buzz to lock, got %+v", again)
	}
}

func TestResolveWrongAdvancesQueueFIFO(t *testing.T) {
	g, clock, _ := newTestGame(t)
	d := mustRegister(t, g, "dana")
	a := mustRegister(t, g, "alice")
	b := mustRegister(t, g, "bob")
	c := mustRegister(t, g, "carol")
	mustOpenClue(t, g, "Science", 200)

	mustBuzz(t, g, d.ID)
	for _, p := range []Player{a, b, c} {
		clock.Advance(time.Millisecond)
		mustBuzz(t, g, p.ID)
	}

	holder := d
	for _, next := range []Player{a, b, c} {
		lockTime := g.State().LastBuzzTime
		clock.Advance(time.Second)

		result := mustResolve(t, g, holder.ID, false)
		st := result.State
		if !st.BuzzerLocked || st.LastBuzzPlayerID != next.ID {
			t.Fatalf("expected lock to pass to %s, got %+v", next.Name, st)
		}
		if !st.LastBuzzTime.After(lockTime) {
			t.Fatal("expected a fresh lock timestamp for the next responder")
		}
		holder = next
	}

	final := mustResolve(t, g, holder.ID, false)
	if final.State.BuzzerLocked {
		t.Fatal("expected buzzer unlocked once the queue drained")
	}
}

func TestResolveReturnsSortedScoreboard(t *testing.T) {
	g, clock, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	clock.Advance(time.Second)
	b := mustRegister(t, g, "bob")
	clock.Advance(time.Second)
	c := mustRegister(t, g, "carol")

	mustOpenClue(t, g, "Science", 500)
	mustBuzz(t, g, b.ID)
	result := mustResolve(t, g, b.ID, true)

	if len(result.Scoreboard) != 3 {
		t.Fatalf("expected 3 scoreboard rows, got %d", len(result.Scoreboard))
	}
	if result.Scoreboard[0].ID != b.ID {
		t.Fatalf("expected %s on top, got %s", b.Name, result.Scoreboard[0].Name)
	}
	// Zero-score tie breaks by earliest registration.
	if result.Scoreboard[1].ID != a.ID || result.Scoreboard[2].ID != c.ID {
		t.Fatalf("expected registration-order tie break, got %+v", result.Scoreboard)
	}
}

func TestSkipClearsClueWithoutScoring(t *testing.T) {
	g, _, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	mustOpenClue(t, g, "Science", 100)

	// Give alice the turn first so we can check it survives the skip.
	mustBuzz(t, g, a.ID)
	mustResolve(t, g, a.ID, true)
	if _, err := g.SelectCard(SelectCardRequest{Category: "Music", Points: 200, PickerID: a.ID}); err != nil {
		t.Fatalf("select card: %v", err)
	}
	mustBuzz(t, g, a.ID)

	st, err := g.Skip()
	if err != nil {
		t.Fatalf("skip: %v", err)
	}

	if st.CurrentClue != nil || st.BuzzerLocked {
		t.Fatalf("expected clue and lock cleared, got %+v", st)
	}
	if st.TurnPlayerID != a.ID {
		t.Fatal("expected skip to preserve the picker's turn")
	}
	if got := scoreOf(t, g, a.ID); got != 100 {
		t.Fatalf("expected score unchanged by skip, got %d", got)
	}

	if _, err := g.Skip(); !faultIs(err, faultPrecondition) {
		t.Fatalf("expected precondition fault with no clue, got %v", err)
	}
}

func TestUnlockReleasesLockAndClearsQueue(t *testing.T) {
	g, clock, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	b := mustRegister(t, g, "bob")
	mustOpenClue(t, g, "Science", 100)

	mustBuzz(t, g, a.ID)
	clock.Advance(time.Millisecond)
	mustBuzz(t, g, b.ID)

	st, err := g.Unlock()
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if st.BuzzerLocked || st.LastBuzzPlayerID != "" {
		t.Fatalf("expected lock released, got %+v", st)
	}

	entries, err := g.Queue()
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected queue cleared, got %d entries", len(entries))
	}

	// Previously queued player can now win the lock outright.
	if result := mustBuzz(t, g, b.ID); !result.Locked {
		t.Fatalf("expected buzz to lock after unlock, got %+v", result)
	}
}

func TestQueueViewJoinsPlayerNames(t *testing.T) {
	g, clock, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	b := mustRegister(t, g, "bob")
	mustOpenClue(t, g, "Science", 100)

	mustBuzz(t, g, a.ID)
	clock.Advance(time.Millisecond)
	mustBuzz(t, g, b.ID)

	entries, err := g.Queue()
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(entries) != 1 || entries[0].PlayerName != "bob" {
		t.Fatalf("expected bob waiting, got %+v", entries)
	}
}

func TestRemovePlayerReleasesLockToQueue(t *testing.T) {
	g, clock, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	b := mustRegister(t, g, "bob")
	mustOpenClue(t, g, "Science", 100)

	mustBuzz(t, g, a.ID)
	clock.Advance(time.Millisecond)
	mustBuzz(t, g, b.ID)

	if err := g.RemovePlayer(a.ID); err != nil {
		t.Fatalf("remove player: %v", err)
	}

	st := g.State()
	if !st.BuzzerLocked || st.LastBuzzPlayerID != b.ID {
		t.Fatalf("expected lock to pass to bob, got %+v", st)
	}
	if _, err := g.store.GetPlayer(a.ID); err == nil {
		t.Fatal("expected alice deleted from the directory")
	}
}

func TestRemovePlayerClearsTurnAndQueueEntry(t *testing.T) {
	g, clock, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	b := mustRegister(t, g, "bob")
	mustOpenClue(t, g, "Science", 100)

	mustBuzz(t, g, a.ID)
	mustResolve(t, g, a.ID, true) // alice now owns the turn

	if _, err := g.SelectCard(SelectCardRequest{Category: "Music", Points: 100, PickerID: a.ID}); err != nil {
		t.Fatalf("select card: %v", err)
	}
	mustBuzz(t, g, b.ID)
	clock.Advance(time.Millisecond)
	mustBuzz(t, g, a.ID) // alice waits behind bob

	if err := g.RemovePlayer(a.ID); err != nil {
		t.Fatalf("remove player: %v", err)
	}

	st := g.State()
	if st.TurnPlayerID != "" {
		t.Fatalf("expected turn cleared, got %q", st.TurnPlayerID)
	}
	if st.LastBuzzPlayerID != b.ID {
		t.Fatal("expected bob to keep the lock")
	}

	entries, err := g.Queue()
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected alice's queue entry dropped, got %+v", entries)
	}
}

func TestRemovePlayerWithEmptyQueueUnlocks(t *testing.T) {
	g, _, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	mustOpenClue(t, g, "Science", 100)
	mustBuzz(t, g, a.ID)

	if err := g.RemovePlayer(a.ID); err != nil {
		t.Fatalf("remove player: %v", err)
	}

	st := g.State()
	if st.BuzzerLocked || st.LastBuzzPlayerID != "" {
		t.Fatalf("expected buzzer released, got %+v", st)
	}
}

func TestBuzzFanOut(t *testing.T) {
	g, _, notify := newTestGame(t)
	a := mustRegister(t, g, "alice")
	b := mustRegister(t, g, "bob")
	mustOpenClue(t, g, "Science", 100)

	states := len(notify.states)
	mustBuzz(t, g, a.ID)
	if len(notify.states) != states+1 {
		t.Fatal("expected a state broadcast for the winning buzz")
	}

	queues := len(notify.queues)
	mustBuzz(t, g, b.ID)
	if len(notify.queues) != queues+1 {
		t.Fatal("expected a queue broadcast for the queued buzz")
	}
	last := notify.queues[len(notify.queues)-1]
	if len(last) != 1 || last[0].PlayerID != b.ID {
		t.Fatalf("unexpected queue payload: %+v", last)
	}
}

func TestResolveReplySurvivesScoreboardReadFailure(t *testing.T) {
	g, _, _ := newTestGame(t)
	a := mustRegister(t, g, "alice")
	mustOpenClue(t, g, "Science", 300)
	mustBuzz(t, g, a.ID)

	st := g.State()

	// A resolution is already committed by the time the reply is assembled;
	// losing the scoreboard read must degrade the reply, not fail it.
	if err := g.store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	result := g.resolveResultLocked(st)
	if result.State.Status != st.Status || result.State.LastBuzzPlayerID != a.ID {
		t.Fatalf("expected committed state in reply, got %+v", result.State)
	}
	if result.Scoreboard != nil {
		t.Fatalf("expected degraded scoreboard, got %+v", result.Scoreboard)
	}
}
