package itinerary

import (
	"math"
	"testing"
	"time"
)

func venue(open, closing int, days []int) Activity {
	return Activity{Name: "Venue", Hours: &OpenHours{Open: intp(open), Close: intp(closing), Days: days}}
}

func TestIsOpenDuringMissingContextAssumesOpen(t *testing.T) {
	closed := venue(9, 10, []int{})

	if !IsOpenDuring(closed, math.NaN(), 14, time.Monday, true) {
		t.Fatal("missing start should assume open")
	}
	if !IsOpenDuring(closed, 13, math.NaN(), time.Monday, true) {
		t.Fatal("missing end should assume open")
	}
	if !IsOpenDuring(closed, 13, 14, 0, false) {
		t.Fatal("unknown day should assume open")
	}
}

func TestIsOpenDuringMissingMetadataAssumesOpen(t *testing.T) {
	if !IsOpenDuring(Activity{Name: "Park"}, 3, 4, time.Monday, true) {
		t.Fatal("no hours metadata should assume open")
	}
	partial := Activity{Hours: &OpenHours{Open: intp(9)}}
	if !IsOpenDuring(partial, 3, 4, time.Monday, true) {
		t.Fatal("hours without close should assume open")
	}
}

func TestIsOpenDuringDayRestriction(t *testing.T) {
	weekdays := venue(9, 17, []int{1, 2, 3, 4, 5})
	if IsOpenDuring(weekdays, 10, 11, time.Sunday, true) {
		t.Fatal("venue closed on Sunday reported open")
	}
	if !IsOpenDuring(weekdays, 10, 11, time.Wednesday, true) {
		t.Fatal("venue open on Wednesday reported closed")
	}
	if IsOpenDuring(venue(9, 17, []int{}), 10, 11, time.Wednesday, true) {
		t.Fatal("empty day list should mean closed every day")
	}
}

func TestIsOpenDuringNormalHours(t *testing.T) {
	cafe := venue(9, 17, nil)
	cases := []struct {
		start, end float64
		want       bool
	}{
		{10, 11, true},
		{8, 10, true},
		{16, 18, true},
		{17, 18, false},
		{7, 9, false},
		{20, 22, false},
	}
	for _, tc := range cases {
		if got := IsOpenDuring(cafe, tc.start, tc.end, time.Monday, true); got != tc.want {
			t.Fatalf("IsOpenDuring(9-17, %v-%v) = %v, want %v", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestIsOpenDuringOvernightHours(t *testing.T) {
	bar := venue(18, 2, nil)
	cases := []struct {
		name       string
		start, end float64
		want       bool
	}{
		{"late evening", 23, 24, true},
		{"evening start", 18, 19, true},
		{"early morning end", 0, 1, true},
		{"midday", 10, 11, false},
		{"afternoon into evening", 16, 19, true},
		// Neither period check matches but start < close passes on its own.
		{"start before close only", 1, 5, true},
	}
	for _, tc := range cases {
		if got := IsOpenDuring(bar, tc.start, tc.end, time.Friday, true); got != tc.want {
			t.Fatalf("%s: IsOpenDuring(18-2, %v-%v) = %v, want %v", tc.name, tc.start, tc.end, got, tc.want)
		}
	}
}
