package main

import (
	"database/sql"
	"errors"
	"sort"
)

// SelectCardRequest asks to put a board tile on display. QuestionID is empty
// for tiles with no submitted question; PickerID identifies who is picking,
// for turn enforcement. Force bypasses the turn, conflict, and used checks
// (host override).
type SelectCardRequest struct {
	QuestionID string `json:"question_id,omitempty"`
	Category   string `json:"category"`
	Points     int    `json:"points"`
	Force      bool   `json:"force,omitempty"`
	PickerID   string `json:"picker_id,omitempty"`
}

// SelectCard activates a clue. With a question id, the catalog entry must be
// part of the game and not yet used (unless forced) and gets marked used.
// Without one, the tile falls back to the default pack for its text, or to
// "N/A" when the pack has no entry for that category and value. Either way
// the buzz queue and lock are reset and the clue starts unlocked.
func (g *Game) SelectCard(req SelectCardRequest) (GameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state.Read()
	if st.CurrentClue != nil && !req.Force {
		return GameState{}, conflictFault("a clue is already active")
	}
	if st.TurnPlayerID != "" && !req.Force && req.PickerID != st.TurnPlayerID {
		return GameState{}, permissionFault("it is not your turn to pick")
	}

	var clue Clue
	if req.QuestionID == "" {
		if req.Category == "" {
			return GameState{}, validationFault("category is required")
		}
		if req.Points <= 0 {
			return GameState{}, validationFault("points must be positive")
		}

		clue = Clue{
			Category:    req.Category,
			Points:      req.Points,
			Placeholder: true,
			ClueText:    "N/A",
			AnswerText:  "N/A",
		}
		if d, ok := defaultForTile(g.pack, req.Category, req.Points); ok {
			clue.ClueText = d.ClueText
			clue.AnswerText = d.AnswerText
		}
	} else {
		q, err := g.store.GetQuestion(req.QuestionID)
		if errors.Is(err, sql.ErrNoRows) {
			return GameState{}, notFoundFault("unknown question: %s", req.QuestionID)
		}
		if err != nil {
			return GameState{}, err
		}

		if !req.Force {
			if !q.SelectedForGame {
				return GameState{}, validationFault("question is not part of this game")
			}
			if q.UsedInGame {
				return GameState{}, conflictFault("question has already been used")
			}
		}

		if err := g.store.SetQuestionUsed(q.ID, true); err != nil {
			return GameState{}, err
		}

		clue = Clue{
			QuestionID: q.ID,
			Category:   q.Category,
			Points:     q.Points,
			ClueText:   q.ClueText,
			AnswerText: q.AnswerText,
		}
	}

	g.queue.clear()
	next := g.state.Patch(statePatch{
		clue:         &clue,
		locked:       ptrTo(false),
		lastBuzzer:   ptrTo(""),
		lastBuzzTime: ptrTo(zeroTime),
		reading:      ptrTo(false),
	})

	g.broadcastStateLocked(next)
	g.broadcastQueueLocked()
	if !clue.Placeholder {
		g.broadcastBoardLocked()
	}

	return next, nil
}

// StartGame begins the match. If nothing is selected for the game yet, the
// default pack is seeded into the catalog first. All used flags reset, the
// first pick is unrestricted.
func (g *Game) StartGame() (GameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	selected, err := g.store.CountSelectedQuestions()
	if err != nil {
		return GameState{}, err
	}
	if selected == 0 {
		if err := g.store.SeedQuestions(g.pack); err != nil {
			return GameState{}, err
		}
	}
	if err := g.store.ResetUsedFlags(); err != nil {
		return GameState{}, err
	}

	g.queue.clear()
	next := g.state.Patch(statePatch{
		status:       ptrTo(StatusActive),
		clearClue:    true,
		turnPlayer:   ptrTo(""),
		locked:       ptrTo(false),
		lastBuzzer:   ptrTo(""),
		lastBuzzTime: ptrTo(zeroTime),
		reading:      ptrTo(false),
	})

	g.broadcastStateLocked(next)
	g.broadcastQueueLocked()
	g.broadcastBoardLocked()

	return next, nil
}

// EndGame finishes the match. The buzzer is left locked with no holder as a
// deliberate lockout, not an arbitration win.
func (g *Game) EndGame() (GameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.queue.clear()
	next := g.state.Patch(statePatch{
		status:       ptrTo(StatusEnded),
		clearClue:    true,
		locked:       ptrTo(true),
		lastBuzzer:   ptrTo(""),
		lastBuzzTime: ptrTo(zeroTime),
		reading:      ptrTo(false),
	})

	g.broadcastStateLocked(next)
	g.broadcastQueueLocked()

	return next, nil
}

// ResetGame returns to the waiting room between games. The roster and scores
// survive; zeroing scores is a separate admin operation.
func (g *Game) ResetGame() (GameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.queue.clear()
	next := g.state.Patch(statePatch{
		status:       ptrTo(StatusWaiting),
		clearClue:    true,
		turnPlayer:   ptrTo(""),
		locked:       ptrTo(false),
		lastBuzzer:   ptrTo(""),
		lastBuzzTime: ptrTo(zeroTime),
		reading:      ptrTo(false),
	})

	g.broadcastStateLocked(next)
	g.broadcastQueueLocked()

	return next, nil
}

// ResetBoard clears all used flags so the same question set can be replayed.
// Match status and turn ownership are untouched.
func (g *Game) ResetBoard() (GameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.ResetUsedFlags(); err != nil {
		return GameState{}, err
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
	g.broadcastBoardLocked()

	return next, nil
}

// BoardTile is one cell of the rendered board. Tiles with no catalog entry
// at their category and value are empty; selecting them activates a
// placeholder clue.
type BoardTile struct {
	Points     int    `json:"points"`
	QuestionID string `json:"question_id,omitempty"`
	Used       bool   `json:"used"`
	Empty      bool   `json:"empty"`
}

// BoardCategory is one column of the board.
type BoardCategory struct {
	Category string      `json:"category"`
	Tiles    []BoardTile `json:"tiles"`
}

// Board returns the current board grid.
func (g *Game) Board() ([]BoardCategory, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.boardLocked()
}

// boardLocked joins the board grid (the default pack's categories and point
// values, plus any extra selected-question categories) with the catalog.
// When multiple entries share a tile, the first not-yet-used one wins.
func (g *Game) boardLocked() ([]BoardCategory, error) {
	selected, err := g.store.ListSelectedQuestions()
	if err != nil {
		return nil, err
	}

	categories := []string{}
	seenCategory := map[string]bool{}
	pointSet := map[int]bool{}

	for _, d := range g.pack {
		if !seenCategory[d.Category] {
			seenCategory[d.Category] = true
			categories = append(categories, d.Category)
		}
		pointSet[d.Points] = true
	}
	for _, q := range selected {
		if !seenCategory[q.Category] {
			seenCategory[q.Category] = true
			categories = append(categories, q.Category)
		}
		pointSet[q.Points] = true
	}

	points := make([]int, 0, len(pointSet))
	for p := range pointSet {
		points = append(points, p)
	}
	sort.Ints(points)

	board := make([]BoardCategory, 0, len(categories))
	for _, category := range categories {
		column := BoardCategory{Category: category}
		for _, value := range points {
			tile := BoardTile{Points: value, Empty: true}
			if q, ok := tileQuestion(selected, category, value); ok {
				tile.QuestionID = q.ID
				tile.Used = q.UsedInGame
				tile.Empty = false
			}
			column.Tiles = append(column.Tiles, tile)
		}
		board = append(board, column)
	}

	return board, nil
}

// tileQuestion picks the catalog entry backing a tile, preferring the first
// unused entry when duplicates share the same category and value.
func tileQuestion(selected []Question, category string, points int) (Question, bool) {
	var fallback Question
	found := false

	for _, q := range selected {
		if q.Category != category || q.Points != points {
			continue
		}
		if !q.UsedInGame {
			return q, true
		}
		if !found {
			fallback = q
			found = true
		}
	}

	return fallback, found
}
