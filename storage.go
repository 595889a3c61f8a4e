package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Player is a registered participant. Score is mutated only by clue
// resolution or an explicit admin override.
type Player struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Score        int       `json:"score"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Question is one crowdsourced catalog entry. Only entries with
// SelectedForGame set appear on the board; UsedInGame flips once the tile
// has been played.
type Question struct {
	ID              string    `json:"id"`
	Category        string    `json:"category"`
	Points          int       `json:"points"`
	ClueText        string    `json:"clue_text"`
	AnswerText      string    `json:"answer_text"`
	SubmittedBy     string    `json:"submitted_by,omitempty"`
	SelectedForGame bool      `json:"selected_for_game"`
	UsedInGame      bool      `json:"used_in_game"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store handles SQLite persistence for the player directory and the
// question catalog.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// NewStore opens (or creates) the database and runs migrations.
func NewStore(path string, clock clockwork.Clock) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db, clock: clock}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL UNIQUE,
			score         INTEGER NOT NULL DEFAULT 0,
			registered_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS questions (
			id           TEXT PRIMARY KEY,
			category     TEXT NOT NULL,
			points       INTEGER NOT NULL,
			clue_text    TEXT NOT NULL,
			answer_text  TEXT NOT NULL,
			submitted_by TEXT NOT NULL DEFAULT '',
			selected     INTEGER NOT NULL DEFAULT 0,
			used         INTEGER NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL
		);
	`)
	return err
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// CreatePlayer inserts a new player with a zero score.
func (s *Store) CreatePlayer(name string) (Player, error) {
	p := Player{
		ID:           uuid.NewString(),
		Name:         name,
		RegisteredAt: s.clock.Now().UTC(),
	}
	_, err := s.db.Exec(
		"INSERT INTO players (id, name, score, registered_at) VALUES (?, ?, 0, ?)",
		p.ID, p.Name, p.RegisteredAt,
	)
	if err != nil {
		return Player{}, err
	}
	return p, nil
}

// GetPlayer retrieves a player by id.
func (s *Store) GetPlayer(id string) (Player, error) {
	row := s.db.QueryRow("SELECT id, name, score, registered_at FROM players WHERE id = ?", id)
	var p Player
	if err := row.Scan(&p.ID, &p.Name, &p.Score, &p.RegisteredAt); err != nil {
		return Player{}, err
	}
	return p, nil
}

// ListPlayers returns all players in registration order.
func (s *Store) ListPlayers() ([]Player, error) {
	return s.queryPlayers("SELECT id, name, score, registered_at FROM players ORDER BY registered_at ASC, id ASC")
}

// Scoreboard returns all players ordered by descending score, ties broken
// by earliest registration.
func (s *Store) Scoreboard() ([]Player, error) {
	return s.queryPlayers("SELECT id, name, score, registered_at FROM players ORDER BY score DESC, registered_at ASC, id ASC")
}

func (s *Store) queryPlayers(query string) ([]Player, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Score, &p.RegisteredAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// AdjustScore adds delta (which may be negative) to the player's score.
func (s *Store) AdjustScore(id string, delta int) error {
	res, err := s.db.Exec("UPDATE players SET score = score + ? WHERE id = ?", delta, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetScore overwrites the player's score (admin override).
func (s *Store) SetScore(id string, score int) error {
	res, err := s.db.Exec("UPDATE players SET score = ? WHERE id = ?", score, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeletePlayer removes a player row.
func (s *Store) DeletePlayer(id string) error {
	res, err := s.db.Exec("DELETE FROM players WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CreateQuestion inserts a new catalog entry.
func (s *Store) CreateQuestion(category string, points int, clueText, answerText, submittedBy string) (Question, error) {
	q := Question{
		ID:          uuid.NewString(),
		Category:    category,
		Points:      points,
		ClueText:    clueText,
		AnswerText:  answerText,
		SubmittedBy: submittedBy,
		CreatedAt:   s.clock.Now().UTC(),
	}
	_, err := s.db.Exec(
		"INSERT INTO questions (id, category, points, clue_text, answer_text, submitted_by, selected, used, created_at) VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)",
		q.ID, q.Category, q.Points, q.ClueText, q.AnswerText, q.SubmittedBy, q.CreatedAt,
	)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

// GetQuestion retrieves a catalog entry by id.
func (s *Store) GetQuestion(id string) (Question, error) {
	row := s.db.QueryRow(questionColumns+" WHERE id = ?", id)
	return scanQuestion(row)
}

const questionColumns = "SELECT id, category, points, clue_text, answer_text, submitted_by, selected, used, created_at FROM questions"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	if err := row.Scan(&q.ID, &q.Category, &q.Points, &q.ClueText, &q.AnswerText, &q.SubmittedBy, &q.SelectedForGame, &q.UsedInGame, &q.CreatedAt); err != nil {
		return Question{}, err
	}
	return q, nil
}

// ListQuestions returns the full catalog in submission order.
func (s *Store) ListQuestions() ([]Question, error) {
	return s.queryQuestions(questionColumns + " ORDER BY created_at ASC, id ASC")
}

// ListSelectedQuestions returns the entries currently part of the game.
func (s *Store) ListSelectedQuestions() ([]Question, error) {
	return s.queryQuestions(questionColumns + " WHERE selected = 1 ORDER BY created_at ASC, id ASC")
}

// QuestionsForTile returns the selected entries at category+points, oldest
// first. Callers resolving a board tile prefer the first unused entry.
func (s *Store) QuestionsForTile(category string, points int) ([]Question, error) {
	return s.queryQuestions(questionColumns+" WHERE selected = 1 AND category = ? AND points = ? ORDER BY created_at ASC, id ASC", category, points)
}

func (s *Store) queryQuestions(query string, args ...any) ([]Question, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SetQuestionSelected flips a question's selected-for-game flag.
func (s *Store) SetQuestionSelected(id string, selected bool) error {
	res, err := s.db.Exec("UPDATE questions SET selected = ? WHERE id = ?", selected, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetQuestionUsed flips a question's used-in-game flag.
func (s *Store) SetQuestionUsed(id string, used bool) error {
	res, err := s.db.Exec("UPDATE questions SET used = ? WHERE id = ?", used, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ResetUsedFlags clears used-in-game on every catalog entry.
func (s *Store) ResetUsedFlags() error {
	_, err := s.db.Exec("UPDATE questions SET used = 0")
	return err
}

// CountSelectedQuestions reports how many entries are part of the game.
func (s *Store) CountSelectedQuestions() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM questions WHERE selected = 1").Scan(&n)
	return n, err
}

// SeedQuestions inserts the given pack entries as selected catalog rows.
func (s *Store) SeedQuestions(pack []DefaultQuestion) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.clock.Now().UTC()
	for _, d := range pack {
		_, err := tx.Exec(
			"INSERT INTO questions (id, category, points, clue_text, answer_text, submitted_by, selected, used, created_at) VALUES (?, ?, ?, ?, ?, '', 1, 0, ?)",
			uuid.NewString(), d.Category, d.Points, d.ClueText, d.AnswerText, now,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteQuestion removes a catalog entry.
func (s *Store) DeleteQuestion(id string) error {
	res, err := s.db.Exec("DELETE FROM questions WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
