package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
arenas:
  - name: range-a
    game: target-practice
    duration: 90s
    point:
      plus: 2
      max-players-to-add: 3
    spawn:
      locations: ["world,0,64,0", "world,20,64,5"]
      interval: 500ms
      max: 4
    hologram:
      location: "world,0,70,0"
      lines: ["Time: {time_left}"]
    rewards:
      top: ["diamond", "gold"]
  - name: range-b
    hologram:
      - location: "world,1,70,1"
        lines: ["a"]
      - location: "broken"
        lines: ["b"]
planners:
  - name: main
    pick-chance:
      range-a: 3
      range-b: 1
`

func TestParseArenaTable(t *testing.T) {
	tab, err := ParseArenaTable([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tab.Count() != 2 {
		t.Fatalf("count = %d", tab.Count())
	}

	a, ok := tab.Arena("range-a")
	if !ok {
		t.Fatal("range-a missing")
	}
	if a.Duration != 90*time.Second || a.Spawn.Interval != 500*time.Millisecond || a.Spawn.Max != 4 {
		t.Fatalf("arena = %+v", a)
	}
	if a.Point.PlusOr(1) != 2 || a.Point.MinusOr(0) != 0 || a.Point.MaxPlayersToAddOr(-1) != 3 {
		t.Fatalf("point = %+v", a.Point)
	}
	if len(a.SpawnPoints) != 2 || a.SpawnPoints[1].X != 20 {
		t.Fatalf("spawn points = %v", a.SpawnPoints)
	}
	if len(a.Hologram) != 1 || a.Hologram[0].Lines[0] != "Time: {time_left}" {
		t.Fatalf("single hologram = %+v", a.Hologram)
	}

	b, _ := tab.Arena("range-b")
	if b.Game != "target-practice" || b.Duration != time.Minute || b.Spawn.Max != 5 {
		t.Fatalf("defaults not applied: %+v", b)
	}
	if len(b.Hologram) != 2 {
		t.Fatalf("hologram list = %+v", b.Hologram)
	}
	if b.Point.MaxPlayersToAddOr(-1) != -1 {
		t.Fatal("absent max-players-to-add lost its default")
	}

	ps := tab.Planners()
	if len(ps) != 1 || ps[0].PickChance["range-a"] != 3 || ps[0].Break != 5*time.Second {
		t.Fatalf("planners = %+v", ps)
	}
}

func TestParseArenaTableRejectsBadSpawn(t *testing.T) {
	_, err := ParseArenaTable([]byte(`
arenas:
  - name: x
    spawn:
      locations: ["world,1,2"]
`))
	if !errors.Is(err, ErrBadLocation) {
		t.Fatalf("err = %v, want ErrBadLocation", err)
	}
}

func TestParseArenaTableRejectsDuplicates(t *testing.T) {
	if _, err := ParseArenaTable([]byte("arenas:\n  - name: x\n  - name: x\n")); err == nil {
		t.Fatal("duplicate arena accepted")
	}
}

func TestLoadArenaTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arenas.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadArenaTable(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := LoadArenaTable(path + ".missing"); err == nil {
		t.Fatal("missing file accepted")
	}
}
