package main

import (
	"sync"
	"time"
)

type GameStatus string

const (
	StatusWaiting GameStatus = "waiting"
	StatusActive  GameStatus = "active"
	StatusEnded   GameStatus = "ended"
)

// Clue is the tile currently on display. A placeholder clue has no backing
// catalog row; its text comes from the default pack (or "N/A").
type Clue struct {
	QuestionID  string `json:"question_id,omitempty"`
	Category    string `json:"category"`
	Points      int    `json:"points"`
	Placeholder bool   `json:"placeholder"`
	ClueText    string `json:"clue_text"`
	AnswerText  string `json:"answer_text"`
}

// GameState is the single authoritative game record. A nil CurrentClue means
// no clue is active.
type GameState struct {
	Status           GameStatus `json:"status"`
	CurrentClue      *Clue      `json:"current_clue,omitempty"`
	TurnPlayerID     string     `json:"turn_player_id,omitempty"`
	BuzzerLocked     bool       `json:"buzzer_locked"`
	LastBuzzPlayerID string     `json:"last_buzz_player_id,omitempty"`
	LastBuzzTime     time.Time  `json:"last_buzz_time,omitzero"`
	QuestionReading  bool       `json:"question_reading"`
}

// statePatch is a partial update. Nil pointer fields are left untouched;
// clearClue removes the active clue.
type statePatch struct {
	status       *GameStatus
	clue         *Clue
	clearClue    bool
	turnPlayer   *string
	locked       *bool
	lastBuzzer   *string
	lastBuzzTime *time.Time
	reading      *bool
}

// stateStore owns the GameState singleton. Patches are applied atomically
// under the store's lock; reads return a snapshot (the clue is copied, so
// callers never alias live state).
type stateStore struct {
	mu    sync.RWMutex
	state GameState
}

func newStateStore() *stateStore {
	return &stateStore{
		state: GameState{Status: StatusWaiting},
	}
}

func (s *stateStore) Read() GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

// Patch applies p all-or-nothing and returns the resulting state. An empty
// patch is a no-op that still returns the current state.
func (s *stateStore) Patch(p statePatch) GameState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.status != nil {
		s.state.Status = *p.status
	}
	switch {
	case p.clearClue:
		s.state.CurrentClue = nil
	case p.clue != nil:
		clue := *p.clue
		s.state.CurrentClue = &clue
	}
	if p.turnPlayer != nil {
		s.state.TurnPlayerID = *p.turnPlayer
	}
	if p.locked != nil {
		s.state.BuzzerLocked = *p.locked
	}
	if p.lastBuzzer != nil {
		s.state.LastBuzzPlayerID = *p.lastBuzzer
	}
	if p.lastBuzzTime != nil {
		s.state.LastBuzzTime = *p.lastBuzzTime
	}
	if p.reading != nil {
		s.state.QuestionReading = *p.reading
	}

	return s.snapshotLocked()
}

func (s *stateStore) snapshotLocked() GameState {
	snapshot := s.state
	if s.state.CurrentClue != nil {
		clue := *s.state.CurrentClue
		snapshot.CurrentClue = &clue
	}
	return snapshot
}

func ptrTo[T any](v T) *T {
	return &v
}

var zeroTime time.Time
