package planner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/grouptrip/internal/events"
	"github.com/friendsincode/grouptrip/internal/itinerary"
	"github.com/friendsincode/grouptrip/internal/presence"
	"github.com/friendsincode/grouptrip/internal/resultapi"
)

type stubFetcher struct {
	activities []itinerary.Activity
	err        error
	calls      atomic.Int32
}

func (f *stubFetcher) GetItinerary(_ context.Context, _ string) ([]itinerary.Activity, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.activities, nil
}

func intPtr(v int) *int { return &v }

func threeActivities() []itinerary.Activity {
	return []itinerary.Activity{
		{ID: "a", Name: "Museum", Category: itinerary.CategoryArts, DurationHours: 2},
		{ID: "b", Name: "Lunch", Category: itinerary.CategoryFood},
		{ID: "c", Name: "Hike", Category: itinerary.CategoryNature, DurationHours: 3},
	}
}

func newTestService(t *testing.T, fetcher Fetcher, lobbies ...presence.Lobby) (*Service, *events.Bus, *presence.MemorySource) {
	t.Helper()
	src := presence.NewDemoSource()
	require.NoError(t, src.Seed(context.Background(), lobbies))
	bus := events.NewBus()
	return New(fetcher, src, bus, time.Hour, zerolog.Nop()), bus, src
}

func waitEvent(t *testing.T, sub events.Subscriber) events.Payload {
	t.Helper()
	select {
	case p := <-sub:
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func names(schedule []itinerary.ScheduledActivity) []string {
	out := make([]string, len(schedule))
	for i, s := range schedule {
		out[i] = s.Name
	}
	return out
}

func TestOpenSchedulesWithLobbyDefaults(t *testing.T) {
	fetcher := &stubFetcher{activities: threeActivities()}
	svc, bus, _ := newTestService(t, fetcher)
	loaded := bus.Subscribe(events.EventItineraryLoaded)

	view, err := svc.Open(context.Background(), presence.DemoLobbyID, "1")
	require.NoError(t, err)

	require.Len(t, view.Schedule, 3)
	assert.Equal(t, "12:00 PM", view.Schedule[0].DisplayTime)
	assert.Equal(t, "2:00 PM", view.Schedule[1].DisplayTime)
	assert.Equal(t, "3:00 PM", view.Schedule[2].DisplayTime)
	assert.True(t, view.IsOwner)
	assert.Equal(t, 6, view.Summary.Hours)
	assert.Equal(t, "12:00 PM - 6:00 PM (6 hours)", view.Summary.Timeframe)

	p := waitEvent(t, loaded)
	assert.Equal(t, presence.DemoLobbyID, p["lobby_id"])
	assert.Equal(t, 3, p["count"])

	other, err := svc.Open(context.Background(), presence.DemoLobbyID, "2")
	require.NoError(t, err)
	assert.False(t, other.IsOwner)
	assert.Equal(t, int32(1), fetcher.calls.Load(), "second open must reuse the session")
	assert.Equal(t, 1, svc.Sessions())
}

func TestOpenFetchFailureIsTerminalUntilDiscard(t *testing.T) {
	fetcher := &stubFetcher{err: &resultapi.RemoteError{Message: "Lobby has no results yet"}}
	svc, bus, _ := newTestService(t, fetcher)
	failed := bus.Subscribe(events.EventItineraryFailed)

	_, err := svc.Open(context.Background(), presence.DemoLobbyID, "1")
	require.ErrorIs(t, err, resultapi.ErrFetchFailure)
	assert.Equal(t, "Lobby has no results yet", waitEvent(t, failed)["message"])

	fetcher.err = nil
	fetcher.activities = threeActivities()
	_, err = svc.Open(context.Background(), presence.DemoLobbyID, "1")
	require.ErrorIs(t, err, resultapi.ErrFetchFailure)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	_, err = svc.Move(context.Background(), presence.DemoLobbyID, "1", 0, 1)
	require.ErrorIs(t, err, resultapi.ErrFetchFailure)

	require.True(t, svc.Discard(presence.DemoLobbyID))
	view, err := svc.Open(context.Background(), presence.DemoLobbyID, "1")
	require.NoError(t, err)
	assert.Len(t, view.Schedule, 3)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestOpenRejectsMissingAndUnknownLobby(t *testing.T) {
	fetcher := &stubFetcher{activities: threeActivities()}
	svc, _, _ := newTestService(t, fetcher)

	_, err := svc.Open(context.Background(), "  ", "1")
	require.ErrorIs(t, err, resultapi.ErrMissingLobbyIdentifier)

	_, err = svc.Open(context.Background(), "ZZZZ", "1")
	require.ErrorIs(t, err, presence.ErrLobbyNotFound)
	assert.Equal(t, 0, svc.Sessions())
	assert.Equal(t, int32(0), fetcher.calls.Load())
}

func TestMoveByOwnerCommits(t *testing.T) {
	svc, bus, _ := newTestService(t, &stubFetcher{activities: threeActivities()})
	reordered := bus.Subscribe(events.EventItineraryReordered)

	_, err := svc.Open(context.Background(), presence.DemoLobbyID, "1")
	require.NoError(t, err)

	res, err := svc.Move(context.Background(), presence.DemoLobbyID, "1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hike", "Museum", "Lunch"}, names(res.Schedule))
	assert.Equal(t, "12:00 PM", res.Schedule[0].DisplayTime)
	assert.Equal(t, "3:00 PM", res.Schedule[1].DisplayTime)
	assert.Equal(t, "5:00 PM", res.Schedule[2].DisplayTime)
	assert.Empty(t, res.Warnings)
	require.NotNil(t, res.Placement)
	assert.Equal(t, 12.0, res.Placement.Start)

	p := waitEvent(t, reordered)
	assert.Equal(t, "Hike", p["moved"])

	view, err := svc.Open(context.Background(), presence.DemoLobbyID, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hike", "Museum", "Lunch"}, names(view.Schedule))
}

func TestMoveByMemberIsRejected(t *testing.T) {
	svc, bus, _ := newTestService(t, &stubFetcher{activities: threeActivities()})
	rejected := bus.Subscribe(events.EventItineraryRejected)

	_, err := svc.Open(context.Background(), presence.DemoLobbyID, "2")
	require.NoError(t, err)

	res, err := svc.Move(context.Background(), presence.DemoLobbyID, "2", 0, 2)
	require.ErrorIs(t, err, itinerary.ErrInvalidReorderTarget)
	require.NotNil(t, res)
	assert.Equal(t, []string{"Museum", "Lunch", "Hike"}, names(res.Schedule))
	assert.Equal(t, "2", waitEvent(t, rejected)["user_id"])

	_, err = svc.Move(context.Background(), presence.DemoLobbyID, "1", 0, 5)
	require.ErrorIs(t, err, itinerary.ErrInvalidReorderTarget)
}

func TestMoveWarnsWhenPastWindowEnd(t *testing.T) {
	lobby := presence.Lobby{ID: "WIND", OwnerID: "o", StartHour: intPtr(12), EndHour: intPtr(14)}
	fetcher := &stubFetcher{activities: []itinerary.Activity{
		{Name: "Coffee", DurationHours: 1},
		{Name: "Tour", DurationHours: 3},
	}}
	svc, bus, _ := newTestService(t, fetcher, lobby)
	warnings := bus.Subscribe(events.EventItineraryWarning)

	_, err := svc.Open(context.Background(), "WIND", "o")
	require.NoError(t, err)

	res, err := svc.Move(context.Background(), "WIND", "o", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tour", "Coffee"}, names(res.Schedule))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, itinerary.WarningExceedsWindow, res.Warnings[0].Kind)
	assert.Equal(t, string(itinerary.WarningExceedsWindow), waitEvent(t, warnings)["kind"])
}

func TestApplyWindowRecomputes(t *testing.T) {
	svc, _, src := newTestService(t, &stubFetcher{activities: threeActivities()})

	_, ok := svc.ApplyWindow(&presence.Lobby{ID: presence.DemoLobbyID}, "1")
	assert.False(t, ok, "no session yet")

	_, err := svc.Open(context.Background(), presence.DemoLobbyID, "1")
	require.NoError(t, err)

	lobby, err := src.SetWindow(context.Background(), presence.DemoLobbyID, intPtr(9), intPtr(11), "")
	require.NoError(t, err)

	view, ok := svc.ApplyWindow(lobby, "1")
	require.True(t, ok)
	assert.True(t, view.IsOwner)
	assert.Equal(t, "9:00 AM", view.Schedule[0].DisplayTime)
	assert.Equal(t, itinerary.OverflowTime, view.Schedule[1].DisplayTime)
	assert.True(t, view.Schedule[2].Overflow)
}

func TestDoneClosesSession(t *testing.T) {
	svc, bus, _ := newTestService(t, &stubFetcher{activities: threeActivities()})
	done := bus.Subscribe(events.EventItineraryDone)

	_, err := svc.Done(context.Background(), presence.DemoLobbyID, "1")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Open(context.Background(), presence.DemoLobbyID, "1")
	require.NoError(t, err)

	view, err := svc.Done(context.Background(), presence.DemoLobbyID, "3")
	require.NoError(t, err)
	assert.True(t, view.Done)
	assert.Equal(t, "3", waitEvent(t, done)["user_id"])
	assert.Equal(t, 0, svc.Sessions())

	_, err = svc.Move(context.Background(), presence.DemoLobbyID, "1", 0, 1)
	require.True(t, errors.Is(err, ErrSessionNotFound))
	assert.False(t, svc.Discard(presence.DemoLobbyID))
}

func TestPruneDropsIdleSessions(t *testing.T) {
	svc, bus, _ := newTestService(t, &stubFetcher{activities: threeActivities()})
	discarded := bus.Subscribe(events.EventItineraryDiscarded)

	_, err := svc.Open(context.Background(), presence.DemoLobbyID, "1")
	require.NoError(t, err)

	svc.prune(time.Now().Add(-time.Minute))
	assert.Equal(t, 1, svc.Sessions())

	svc.prune(time.Now().Add(time.Minute))
	assert.Equal(t, 0, svc.Sessions())
	assert.Equal(t, "idle", waitEvent(t, discarded)["reason"])
}

func TestConcurrentOpensFetchOnce(t *testing.T) {
	fetcher := &stubFetcher{activities: threeActivities()}
	svc, _, _ := newTestService(t, fetcher)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Open(context.Background(), presence.DemoLobbyID, "2")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestRunStopsOnCancel(t *testing.T) {
	svc := New(&stubFetcher{}, presence.NewMemorySource(), nil, 0, zerolog.Nop())
	assert.Equal(t, DefaultIdleTimeout, svc.idleTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
}
