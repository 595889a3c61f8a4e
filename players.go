package main

import (
	"strings"
)

// RegisterPlayer adds a new player to the roster.
func (g *Game) RegisterPlayer(name string) (Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, validationFault("name is required")
	}

	p, err := g.store.CreatePlayer(name)
	if err != nil {
		if isUniqueViolation(err) {
			return Player{}, conflictFault("that name is already taken")
		}
		return Player{}, err
	}

	g.broadcastPlayersLocked()

	return p, nil
}

// Players returns the roster in registration order.
func (g *Game) Players() ([]Player, error) {
	return g.store.ListPlayers()
}

// Scoreboard returns the roster ordered by descending score.
func (g *Game) Scoreboard() ([]Player, error) {
	return g.store.Scoreboard()
}

// SetPlayerScore overwrites a player's score (admin override, also used to
// zero scores between games).
func (g *Game) SetPlayerScore(playerID string, score int) (Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.playerLocked(playerID); err != nil {
		return Player{}, err
	}
	if err := g.store.SetScore(playerID, score); err != nil {
		return Player{}, err
	}

	g.broadcastPlayersLocked()

	return g.store.GetPlayer(playerID)
}

// RemovePlayer deletes a player mid-game. Any queue entry of theirs is
// dropped; if they held the buzzer lock it passes to the next queued player
// or is released; if it was their turn to pick, picking becomes
// unrestricted.
func (g *Game) RemovePlayer(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.playerLocked(playerID); err != nil {
		return err
	}
	if err := g.store.DeletePlayer(playerID); err != nil {
		return err
	}

	queueChanged := g.queue.remove(playerID)

	st := g.state.Read()
	stateChanged := false
	next := st

	if st.BuzzerLocked && st.LastBuzzPlayerID == playerID {
		next = g.advanceLockLocked()
		stateChanged = true
		queueChanged = true
	}
	if next.TurnPlayerID == playerID {
		next = g.state.Patch(statePatch{turnPlayer: ptrTo("")})
		stateChanged = true
	}

	if stateChanged {
		g.broadcastStateLocked(next)
	}
	if queueChanged {
		g.broadcastQueueLocked()
	}
	g.broadcastPlayersLocked()

	return nil
}
