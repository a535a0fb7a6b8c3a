package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/friendsincode/grouptrip/internal/resultapi"
)

func TestParseMove(t *testing.T) {
	from, to, err := parseMove("2:0")
	if err != nil || from != 2 || to != 0 {
		t.Fatalf("parseMove(2:0) = %d, %d, %v", from, to, err)
	}
	for _, bad := range []string{"2", "a:1", "1:b", ""} {
		if _, _, err := parseMove(bad); err == nil {
			t.Fatalf("parseMove(%q) should fail", bad)
		}
	}
}

func TestDecodeActivities(t *testing.T) {
	bare, err := decodeActivities([]byte(`[{"title":"Museum","duration":2}]`))
	if err != nil || len(bare) != 1 || bare[0].Name != "Museum" {
		t.Fatalf("bare array = %+v, %v", bare, err)
	}

	wrapped, err := decodeActivities([]byte(`{"data":{"activities":[{"name":"Park"}]}}`))
	if err != nil || len(wrapped) != 1 || wrapped[0].Name != "Park" {
		t.Fatalf("wrapped = %+v, %v", wrapped, err)
	}

	if _, err := decodeActivities([]byte(`{"data":{}}`)); !errors.Is(err, resultapi.ErrEmptyItinerary) {
		t.Fatalf("expected ErrEmptyItinerary, got %v", err)
	}
}

func TestPlanCommandPrintsScheduleAndWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.json")
	data := `[{"name":"Coffee","duration":1},{"name":"Tour","duration":3}]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"plan", path, "--start", "12", "--end", "14", "--move", "0:1"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		planMove = ""
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("plan: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"2 activities, 12:00 PM - 2:00 PM (2 hours)",
		"Tour",
		"N/A",
		"may exceed the end time (2:00 PM)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}
