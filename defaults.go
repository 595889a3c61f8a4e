/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed assets/defaults.json
var defaultPackJSON []byte

// DefaultQuestion is one entry of the static default pack. The pack seeds
// the catalog when a game starts with nothing selected, and supplies
// fallback text for board tiles with no submitted question.
type DefaultQuestion struct {
	Category   string `json:"category"`
	Points     int    `json:"points"`
	ClueText   string `json:"clue_text"`
	AnswerText string `json:"answer_text"`
}

func loadDefaultPack() ([]DefaultQuestion, error) {
	var pack []DefaultQuestion
	if err := json.Unmarshal(defaultPackJSON, &pack); err != nil {
		return nil, fmt.Errorf("parse default pack: %w", err)
	}
	return pack, nil
}

// defaultForTile returns the pack entry at category+points, if any.
func defaultForTile(pack []DefaultQuestion, category string, points int) (DefaultQuestion, bool) {
	for _, d := range pack {
		if d.Category == category && d.Points == points {
			return d, true
		}
	}
	return DefaultQuestion{}, false
}
