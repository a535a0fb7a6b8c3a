package presence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/friendsincode/grouptrip/internal/config"
	"github.com/friendsincode/grouptrip/internal/db"
)

func newStore(t *testing.T) *StoreSource {
	t.Helper()
	database, err := db.Open(config.DatabaseSQLite, ":memory:", false)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(database) })
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStoreSource(database)
}

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemorySource() },
		"store":  func(t *testing.T) Store { return newStore(t) },
	}
}

func names(l *Lobby) []string {
	out := make([]string, 0, len(l.Members))
	for _, m := range l.Members {
		out = append(out, m.Name)
	}
	return out
}

func TestSourceBehaviour(t *testing.T) {
	ctx := context.Background()
	for name, newSource := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newSource(t)
			if err := s.Seed(ctx, DemoLobbies()); err != nil {
				t.Fatalf("seed: %v", err)
			}

			l, err := s.Lobby(ctx, DemoLobbyID)
			if err != nil {
				t.Fatalf("Lobby: %v", err)
			}
			if got, want := names(l), []string{"You", "Alice", "Bob", "Charlie"}; !reflect.DeepEqual(got, want) {
				t.Fatalf("members = %v, want %v", got, want)
			}
			if !l.IsOwner("1") || l.IsOwner("2") {
				t.Fatalf("owner = %q, want 1", l.OwnerID)
			}
			if !CanStart(l) {
				t.Fatal("seeded lobby should be startable")
			}

			if _, err := s.Lobby(ctx, "NOPE"); !errors.Is(err, ErrLobbyNotFound) {
				t.Fatalf("Lobby(NOPE) err = %v, want ErrLobbyNotFound", err)
			}

			l, err = s.Join(ctx, DemoLobbyID, Member{ID: "5", Name: "Dana"})
			if err != nil {
				t.Fatalf("Join: %v", err)
			}
			if got := names(l); got[len(got)-1] != "Dana" {
				t.Fatalf("joined member not last: %v", got)
			}
			if CanStart(l) {
				t.Fatal("lobby with a new unready member should not start")
			}

			l, err = s.Join(ctx, DemoLobbyID, Member{ID: "5", Name: "Dana R"})
			if err != nil {
				t.Fatalf("rejoin: %v", err)
			}
			if len(l.Members) != 5 {
				t.Fatalf("rejoin duplicated member: %v", names(l))
			}

			l, err = s.SetReady(ctx, DemoLobbyID, "5", true)
			if err != nil {
				t.Fatalf("SetReady: %v", err)
			}
			if !CanStart(l) {
				t.Fatal("all members ready but lobby cannot start")
			}

			l, err = s.MarkFinished(ctx, DemoLobbyID, "2")
			if err != nil {
				t.Fatalf("MarkFinished: %v", err)
			}
			if got, want := StillSwiping(l.Members), []string{"Bob", "Dana R"}; !reflect.DeepEqual(got, want) {
				t.Fatalf("StillSwiping = %v, want %v", got, want)
			}

			if _, err := s.SetReady(ctx, DemoLobbyID, "99", true); !errors.Is(err, ErrMemberNotFound) {
				t.Fatalf("SetReady(unknown) err = %v, want ErrMemberNotFound", err)
			}

			start, end := 9, 13
			l, err = s.SetWindow(ctx, DemoLobbyID, &start, &end, "3/7/2026")
			if err != nil {
				t.Fatalf("SetWindow: %v", err)
			}
			if w := l.Window(); w.StartHour != 9 || w.EndHour != 13 || w.Date != "3/7/2026" {
				t.Fatalf("window = %+v", w)
			}

			l, err = s.SetWindow(ctx, DemoLobbyID, nil, nil, "")
			if err != nil {
				t.Fatalf("clear window: %v", err)
			}
			if l.StartHour != nil || l.EndHour != nil {
				t.Fatalf("window not cleared: %v %v", l.StartHour, l.EndHour)
			}

			bad := 30
			if _, err := s.SetWindow(ctx, DemoLobbyID, &bad, nil, ""); !errors.Is(err, ErrInvalidWindow) {
				t.Fatalf("SetWindow(30) err = %v, want ErrInvalidWindow", err)
			}
		})
	}
}

func TestJoinOwnerlessLobbyTakesOwnership(t *testing.T) {
	ctx := context.Background()
	for name, newSource := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newSource(t)
			if err := s.Seed(ctx, []Lobby{{ID: "EMPTY"}}); err != nil {
				t.Fatalf("seed: %v", err)
			}
			l, err := s.Join(ctx, "EMPTY", Member{ID: "u1", Name: "First"})
			if err != nil {
				t.Fatalf("Join: %v", err)
			}
			if !l.IsOwner("u1") {
				t.Fatalf("owner = %q, want u1", l.OwnerID)
			}
			if l.Code != "EMPTY" {
				t.Fatalf("code = %q, want lobby id", l.Code)
			}
		})
	}
}

func TestJoinKeepsArrivalOrder(t *testing.T) {
	ctx := context.Background()
	for name, newSource := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newSource(t)
			seed := []Lobby{{ID: "L", Members: []Member{
				{ID: "a", Name: "A"},
				{ID: "b", Name: "B"},
				{ID: "c", Name: "C"},
			}}}
			if err := s.Seed(ctx, seed); err != nil {
				t.Fatalf("seed: %v", err)
			}
			var l *Lobby
			var err error
			for _, m := range []Member{{ID: "d", Name: "D"}, {ID: "e", Name: "E"}, {ID: "f", Name: "F"}} {
				if l, err = s.Join(ctx, "L", m); err != nil {
					t.Fatalf("Join(%s): %v", m.ID, err)
				}
			}
			if got, want := names(l), []string{"A", "B", "C", "D", "E", "F"}; !reflect.DeepEqual(got, want) {
				t.Fatalf("members = %v, want %v", got, want)
			}
		})
	}
}

func TestSeedDefaultsCodeToLobbyID(t *testing.T) {
	ctx := context.Background()
	for name, newSource := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newSource(t)
			if err := s.Seed(ctx, []Lobby{{ID: "L"}, {ID: "M", Code: "WXYZ"}}); err != nil {
				t.Fatalf("seed: %v", err)
			}
			l, err := s.Lobby(ctx, "L")
			if err != nil {
				t.Fatalf("Lobby(L): %v", err)
			}
			if l.Code != "L" {
				t.Fatalf("code = %q, want L", l.Code)
			}
			m, err := s.Lobby(ctx, "M")
			if err != nil {
				t.Fatalf("Lobby(M): %v", err)
			}
			if m.Code != "WXYZ" {
				t.Fatalf("code = %q, want WXYZ", m.Code)
			}
		})
	}
}

func TestMemorySourceReturnsCopies(t *testing.T) {
	s := NewDemoSource()
	l, err := s.Lobby(context.Background(), DemoLobbyID)
	if err != nil {
		t.Fatalf("Lobby: %v", err)
	}
	l.Members[0].Name = "Mutated"

	again, _ := s.Lobby(context.Background(), DemoLobbyID)
	if again.Members[0].Name != "You" {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lobbies.yaml")
	content := `lobbies:
  - id: TRIP
    owner: u1
    start_hour: 10
    end_hour: 16
    date: 3/7/2026
    members:
      - id: u1
        name: Sam
        ready: true
      - id: u2
        name: Kim
        finished_swiping: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	lobbies, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if len(lobbies) != 1 {
		t.Fatalf("lobbies = %d, want 1", len(lobbies))
	}
	l := lobbies[0]
	if l.Code != "TRIP" || l.OwnerID != "u1" || *l.StartHour != 10 || *l.EndHour != 16 {
		t.Fatalf("unexpected lobby: %+v", l)
	}
	if l.Members[0].Ready != true || l.Members[1].FinishedSwiping != true {
		t.Fatalf("unexpected members: %+v", l.Members)
	}
}

func TestLoadSeedRejectsInvalidEntries(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"missing id": "lobbies:\n  - code: X\n",
		"bad window": "lobbies:\n  - id: X\n    start_hour: 40\n",
		"bad yaml":   "lobbies: [",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadSeed(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadSeed(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("missing file: expected error")
	}
}
