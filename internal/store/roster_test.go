package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cricketpay/internal/core"
)

const sampleRoster = `
players:
  - id: p1
    firstName: Arjun
    lastName: Sharma
    regular: true
  - firstName: Bilal
    nickname: Billu
    balance: 120
  - nickname: Chintu
    balance: -40
`

func TestParseRoster(t *testing.T) {
	players, err := ParseRoster([]byte(sampleRoster))
	if err != nil {
		t.Fatalf("ParseRoster: %v", err)
	}
	if len(players) != 3 {
		t.Fatalf("got %d players", len(players))
	}
	if players[0].ID != "p1" || !players[0].Regular || players[0].DisplayName() != "Arjun Sharma" {
		t.Errorf("player 0 = %+v", players[0])
	}
	if !players[1].Arrears || players[1].Balance != 120 {
		t.Errorf("player 1 = %+v", players[1])
	}
	if !players[2].Advance || players[2].DisplayName() != "Chintu" {
		t.Errorf("player 2 = %+v", players[2])
	}
}

func TestParseRosterRejectsNamelessEntry(t *testing.T) {
	_, err := ParseRoster([]byte("players:\n  - balance: 10\n"))
	if !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("err = %v, want ErrEmptyName", err)
	}
	if _, err := ParseRoster([]byte("players: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestReadRosterAndSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(sampleRoster), 0o644); err != nil {
		t.Fatal(err)
	}
	players, err := ReadRoster(path)
	if err != nil {
		t.Fatalf("ReadRoster: %v", err)
	}
	data, _ := core.NewAppData(core.NewDate(2025, 8, 30))
	data, err = Seed(data, players)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(data.Players) != 3 {
		t.Fatalf("seeded %d players", len(data.Players))
	}
	if s := core.Summarize(data, "p1"); s.Status != core.StatusPaid {
		t.Errorf("fresh player status = %s", s.Status)
	}

	if _, err := Seed(data, players[:1]); !errors.Is(err, core.ErrDuplicatePlayer) {
		t.Errorf("reseed err = %v", err)
	}
	if _, err := ReadRoster(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
