package main

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestStorePlayerRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestStore(t, clock)

	created, err := s.CreatePlayer("alice")
	if err != nil {
		t.Fatalf("create player: %v", err)
	}

	got, err := s.GetPlayer(created.ID)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.Name != "alice" || got.Score != 0 {
		t.Fatalf("unexpected player: %+v", got)
	}
	if got.RegisteredAt.IsZero() {
		t.Fatal("expected non-zero RegisteredAt")
	}
}

func TestStorePlayerNameUnique(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestStore(t, clock)

	if _, err := s.CreatePlayer("alice"); err != nil {
		t.Fatalf("create player: %v", err)
	}
	_, err := s.CreatePlayer("alice")
	if err == nil {
		t.Fatal("expected error on duplicate name")
	}
	if !isUniqueViolation(err) {
		t.Fatalf("expected unique constraint violation, got %v", err)
	}
	if isUniqueViolation(sql.ErrNoRows) {
		t.Fatal("unrelated error misread as unique constraint violation")
	}
}

func TestStoreGetPlayerNotFound(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestStore(t, clock)

	_, err := s.GetPlayer("nonexistent")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestStoreAdjustScore(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestStore(t, clock)

	p, _ := s.CreatePlayer("alice")
	if err := s.AdjustScore(p.ID, 300); err != nil {
		t.Fatalf("adjust score: %v", err)
	}
	if err := s.AdjustScore(p.ID, -500); err != nil {
		t.Fatalf("adjust score: %v", err)
	}

	got, _ := s.GetPlayer(p.ID)
	if got.Score != -200 {
		t.Fatalf("expected -200, got %d", got.Score)
	}

	if err := s.AdjustScore("nonexistent", 100); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestStoreScoreboardOrdering(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestStore(t, clock)

	a, _ := s.CreatePlayer("alice")
	clock.Advance(time.Second)
	b, _ := s.CreatePlayer("bob")
	clock.Advance(time.Second)
	c, _ := s.CreatePlayer("carol")

	s.SetScore(b.ID, 500)
	s.SetScore(c.ID, 500)
	s.SetScore(a.ID, 100)

	board, err := s.Scoreboard()
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}

	// Descending score; the 500 tie breaks by earliest registration.
	want := []string{b.ID, c.ID, a.ID}
	for i, id := range want {
		if board[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, board[i].ID)
		}
	}
}

func TestStoreDeletePlayer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestStore(t, clock)

	p, _ := s.CreatePlayer("alice")
	if err := s.DeletePlayer(p.ID); err != nil {
		t.Fatalf("delete player: %v", err)
	}
	if err := s.DeletePlayer(p.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestStoreQuestionFlags(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestStore(t, clock)

	q, err := s.CreateQuestion("History", 400, "clue", "answer", "alice")
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if q.SelectedForGame || q.UsedInGame {
		t.Fatalf("expected fresh question unflagged, got %+v", q)
	}

	if err := s.SetQuestionSelected(q.ID, true); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.SetQuestionUsed(q.ID, true); err != nil {
		t.Fatalf("mark used: %v", err)
	}

	got, _ := s.GetQuestion(q.ID)
	if !got.SelectedForGame || !got.UsedInGame {
		t.Fatalf("expected flags set, got %+v", got)
	}

	if err := s.ResetUsedFlags(); err != nil {
		t.Fatalf("reset used: %v", err)
	}
	got, _ = s.GetQuestion(q.ID)
	if got.UsedInGame {
		t.Fatal("expected used flag cleared")
	}
	if !got.SelectedForGame {
		t.Fatal("expected selected flag untouched")
	}
}

func TestStoreSeedQuestions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestStore(t, clock)

	pack := []DefaultQuestion{
		{Category: "History", Points: 100, ClueText: "c1", AnswerText: "a1"},
		{Category: "History", Points: 200, ClueText: "c2", AnswerText: "a2"},
	}
	if err := s.SeedQuestions(pack); err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, err := s.CountSelectedQuestions()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 selected questions, got %d", n)
	}
}

func TestStoreQuestionsForTile(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestStore(t, clock)

	first, _ := s.CreateQuestion("History", 100, "c1", "a1", "")
	clock.Advance(time.Second)
	second, _ := s.CreateQuestion("History", 100, "c2", "a2", "")
	s.CreateQuestion("History", 200, "c3", "a3", "")

	// Unselected entries never back a tile.
	rows, err := s.QuestionsForTile("History", 100)
	if err != nil {
		t.Fatalf("tile query: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no selected rows, got %d", len(rows))
	}

	s.SetQuestionSelected(first.ID, true)
	s.SetQuestionSelected(second.ID, true)

	rows, err = s.QuestionsForTile("History", 100)
	if err != nil {
		t.Fatalf("tile query: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != first.ID || rows[1].ID != second.ID {
		t.Fatalf("expected oldest-first duplicates, got %+v", rows)
	}
}
