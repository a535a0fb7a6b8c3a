package presence

import (
	"testing"
	"time"

	"github.com/friendsincode/grouptrip/internal/events"
)

func receive(t *testing.T, sub events.Subscriber) events.Payload {
	t.Helper()
	select {
	case p := <-sub:
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestAnnounceReadyRaisesAllReady(t *testing.T) {
	bus := events.NewBus()
	ready := bus.Subscribe(events.EventLobbyReady)
	allReady := bus.Subscribe(events.EventLobbyAllReady)

	lobby := &Lobby{ID: "ABCD", Members: []Member{{ID: "1", Ready: true}, {ID: "2", Ready: true}}}
	Announce(bus, lobby, Update{Kind: UpdateReady, LobbyID: "ABCD", Member: Member{ID: "2"}})

	p := receive(t, ready)
	if p["member_id"] != "2" || p["all_ready"] != true {
		t.Fatalf("unexpected ready payload: %+v", p)
	}
	if p := receive(t, allReady); p["lobby_id"] != "ABCD" {
		t.Fatalf("unexpected all_ready payload: %+v", p)
	}
}

func TestAnnounceFinishedWaitsForEveryone(t *testing.T) {
	bus := events.NewBus()
	finished := bus.Subscribe(events.EventLobbyFinished)
	allFinished := bus.Subscribe(events.EventLobbyAllFinished)

	lobby := &Lobby{ID: "ABCD", Members: []Member{{ID: "1", FinishedSwiping: true}, {ID: "2"}}}
	Announce(bus, lobby, Update{Kind: UpdateFinished, Member: Member{ID: "1"}})

	receive(t, finished)
	select {
	case p := <-allFinished:
		t.Fatalf("all_finished raised too early: %+v", p)
	default:
	}

	lobby.Members[1].FinishedSwiping = true
	Announce(bus, lobby, Update{Kind: UpdateFinished, Member: Member{ID: "2"}})
	receive(t, finished)
	receive(t, allFinished)
}

func TestAnnounceWindowCarriesHours(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventLobbyWindow)

	start, end := 9, 17
	lobby := &Lobby{ID: "ABCD", StartHour: &start, EndHour: &end, Date: "3/15/2024"}
	Announce(bus, lobby, Update{Kind: UpdateWindow})

	p := receive(t, sub)
	if p["start_hour"] != 9 || p["end_hour"] != 17 || p["date"] != "3/15/2024" {
		t.Fatalf("unexpected window payload: %+v", p)
	}
}

func TestAnnounceNilPublisher(t *testing.T) {
	Announce(nil, &Lobby{ID: "ABCD"}, Update{Kind: UpdateJoin})
}
