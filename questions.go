package main

import (
	"database/sql"
	"errors"
	"strings"
)

// SubmitQuestionRequest is one crowdsourced trivia submission.
type SubmitQuestionRequest struct {
	Category    string `json:"category"`
	Points      int    `json:"points"`
	ClueText    string `json:"clue_text"`
	AnswerText  string `json:"answer_text"`
	SubmittedBy string `json:"submitted_by,omitempty"`
}

// SubmitQuestion adds a question to the catalog. New submissions start
// unselected; an admin picks which questions make the board.
func (g *Game) SubmitQuestion(req SubmitQuestionRequest) (Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	req.Category = strings.TrimSpace(req.Category)
	switch {
	case req.Category == "":
		return Question{}, validationFault("category is required")
	case req.Points <= 0:
		return Question{}, validationFault("points must be positive")
	case strings.TrimSpace(req.ClueText) == "":
		return Question{}, validationFault("clue text is required")
	case strings.TrimSpace(req.AnswerText) == "":
		return Question{}, validationFault("answer text is required")
	}

	q, err := g.store.CreateQuestion(req.Category, req.Points, req.ClueText, req.AnswerText, req.SubmittedBy)
	if err != nil {
		return Question{}, err
	}

	return q, nil
}

// Questions returns the full catalog in submission order.
func (g *Game) Questions() ([]Question, error) {
	return g.store.ListQuestions()
}

// SelectQuestion flips whether a catalog entry is part of the game.
func (g *Game) SelectQuestion(questionID string, selected bool) (Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.SetQuestionSelected(questionID, selected); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, notFoundFault("unknown question: %s", questionID)
		}
		return Question{}, err
	}

	g.broadcastBoardLocked()

	return g.store.GetQuestion(questionID)
}

// DeleteQuestion removes a catalog entry.
func (g *Game) DeleteQuestion(questionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.DeleteQuestion(questionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundFault("unknown question: %s", questionID)
		}
		return err
	}

	g.broadcastBoardLocked()

	return nil
}
