package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cricketpay/internal/core"
)

// RosterEntry is one player in a roster file.
type RosterEntry struct {
	ID        string  `yaml:"id"`
	FirstName string  `yaml:"firstName"`
	LastName  string  `yaml:"lastName"`
	Nickname  string  `yaml:"nickname"`
	Balance   float64 `yaml:"balance"`
	Regular   bool    `yaml:"regular"`
}

type rosterFile struct {
	Players []RosterEntry `yaml:"players"`
}

// ReadRoster loads the players listed in a YAML roster file.
func ReadRoster(path string) ([]core.Player, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(b)
}

// ParseRoster decodes a roster document such as
//
//	players:
//	  - firstName: Arjun
//	    lastName: Sharma
//	    regular: true
func ParseRoster(b []byte) ([]core.Player, error) {
	var f rosterFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	out := make([]core.Player, 0, len(f.Players))
	for i, e := range f.Players {
		p := core.Player{
			ID:        e.ID,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Nickname:  e.Nickname,
			Balance:   e.Balance,
			Regular:   e.Regular,
			Arrears:   e.Balance > 0,
			Advance:   e.Balance < 0,
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", i+1, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Seed adds every roster player to data.
func Seed(data core.AppData, players []core.Player) (core.AppData, error) {
	for _, p := range players {
		var err error
		if data, _, err = core.AddPlayer(data, p); err != nil {
			return data, fmt.Errorf("seed %s: %w", p.DisplayName(), err)
		}
	}
	return data, nil
}
