package resultapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/"}, zerolog.Nop()), &calls
}

func TestGetItineraryMapsActivities(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/results/ABCD/itinerary", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"activities":[
			{"id":"1","title":"Museum","type":"Sightseeing","duration":2,"time":"14:30:00"},
			{"option_id":"2","place_name":"Noodle Bar","opening_hours":{"open":11,"close":22,"days":[1,2,3]}}
		]}}`))
	})

	activities, err := client.GetItinerary(context.Background(), "ABCD")
	require.NoError(t, err)
	require.Len(t, activities, 2)
	require.Equal(t, int32(1), atomic.LoadInt32(calls))

	require.Equal(t, "Museum", activities[0].Name)
	require.Equal(t, "Sightseeing", activities[0].Category)
	require.Equal(t, 2.0, activities[0].DurationHours)
	require.Equal(t, "2:30 PM", activities[0].BackendTime)

	require.Equal(t, "2", activities[1].ID)
	require.Equal(t, "Noodle Bar", activities[1].Name)
	require.NotNil(t, activities[1].Hours)
	require.Equal(t, 11, *activities[1].Hours.Open)
	require.Equal(t, []int{1, 2, 3}, activities[1].Hours.Days)
}

func TestGetItineraryMissingLobbyMakesNoRequest(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.GetItinerary(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingLobbyIdentifier)
	require.Equal(t, "Lobby ID missing", UserMessage(err))
	require.Zero(t, atomic.LoadInt32(calls))
}

func TestGetItineraryRemoteErrorMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Lobby not found"}`))
	})

	_, err := client.GetItinerary(context.Background(), "ZZZZ")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	require.ErrorIs(t, err, ErrFetchFailure)
	require.Equal(t, "Lobby not found", UserMessage(err))
}

func TestGetItineraryFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"server error", http.StatusInternalServerError, `oops`, ErrFetchFailure, "Failed to load itinerary. Please try again."},
		{"malformed body", http.StatusOK, `{"data":`, ErrFetchFailure, "Failed to load itinerary. Please try again."},
		{"missing data", http.StatusOK, `{}`, ErrEmptyItinerary, "No activities found in itinerary"},
		{"missing activities", http.StatusOK, `{"data":{}}`, ErrEmptyItinerary, "No activities found in itinerary"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.GetItinerary(context.Background(), "ABCD")
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.wantMsg, UserMessage(err))
			require.Equal(t, int32(1), atomic.LoadInt32(calls), "failed fetches are not retried")
		})
	}
}

func TestGetItineraryEmptyListIsNotAnError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"activities":[]}}`))
	})

	activities, err := client.GetItinerary(context.Background(), "ABCD")
	require.NoError(t, err)
	require.Empty(t, activities)
}

func TestGetItineraryUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := New(Config{BaseURL: base}, zerolog.Nop())
	_, err := client.GetItinerary(context.Background(), "ABCD")
	require.ErrorIs(t, err, ErrFetchFailure)
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]map[string]any
}

func (m *memoryCache) GetItinerary(_ context.Context, lobbyID string) ([]map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[lobbyID]
	return raw, ok
}

func (m *memoryCache) SetItinerary(_ context.Context, lobbyID string, raw []map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string][]map[string]any)
	}
	m.items[lobbyID] = raw
	return nil
}

func TestGetItineraryReadsThroughCache(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"activities":[{"id":"1","name":"Park"}]}}`))
	})
	client.SetCache(&memoryCache{})

	for i := 0; i < 3; i++ {
		activities, err := client.GetItinerary(context.Background(), "ABCD")
		require.NoError(t, err)
		require.Len(t, activities, 1)
		require.Equal(t, "Park", activities[0].Name)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestUserMessageNil(t *testing.T) {
	require.Empty(t, UserMessage(nil))
	require.Equal(t, "Failed to load itinerary. Please try again.", UserMessage(errors.New("other")))
}
