/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package resultapi

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/friendsincode/grouptrip/internal/itinerary"
)

// Field fallback chains. The first key holding a truthy value wins.
var (
	idKeys       = []string{"id", "option_id"}
	nameKeys     = []string{"name", "title", "place_name"}
	categoryKeys = []string{"category", "type"}
	hoursKeys    = []string{"hours", "opening_hours", "business_hours"}
	addressKeys  = []string{"address", "formatted_address", "location_address", "vicinity"}
	imageKeys    = []string{"image_url", "image"}
)

const (
	defaultName     = "Unknown Activity"
	defaultCategory = itinerary.CategoryUncategorized
)

// locationCandidates are tried in order; each returns ok=false to defer to the next.
var locationCandidates = []func(raw map[string]any) (*itinerary.LatLng, bool){
	func(raw map[string]any) (*itinerary.LatLng, bool) {
		obj, ok := raw["location"].(map[string]any)
		if !ok {
			return nil, false
		}
		if ll, ok := latLngFrom(obj, "latitude", "longitude"); ok {
			return ll, true
		}
		return latLngFrom(obj, "lat", "lng")
	},
	func(raw map[string]any) (*itinerary.LatLng, bool) {
		return latLngFrom(raw, "lat", "lng")
	},
	func(raw map[string]any) (*itinerary.LatLng, bool) {
		return latLngFrom(raw, "latitude", "longitude")
	},
}

// MapActivities converts raw backend activity objects into activities,
// tolerating any subset of fields.
func MapActivities(raw []map[string]any) []itinerary.Activity {
	out := make([]itinerary.Activity, 0, len(raw))
	for _, r := range raw {
		out = append(out, MapActivity(r))
	}
	return out
}

// MapActivity converts one raw backend activity.
func MapActivity(raw map[string]any) itinerary.Activity {
	a := itinerary.Activity{
		ID:          firstString(raw, idKeys),
		Name:        firstString(raw, nameKeys),
		Category:    firstString(raw, categoryKeys),
		Address:     firstString(raw, addressKeys),
		Image:       firstString(raw, imageKeys),
		BackendTime: itinerary.NormalizeTimeString(stringValue(raw["time"])),
	}
	if a.Name == "" {
		a.Name = defaultName
	}
	if a.Category == "" {
		a.Category = defaultCategory
	}

	a.DurationHours = 1
	if d, ok := number(raw["duration"]); ok && d != 0 {
		a.DurationHours = d
	}

	if v, ok := first(raw, hoursKeys); ok {
		a.Hours = openHours(v)
	}

	for _, candidate := range locationCandidates {
		if ll, ok := candidate(raw); ok {
			a.Location = ll
			break
		}
	}

	if n, ok := number(raw["round_number"]); ok {
		round := int(n)
		a.RoundNumber = &round
	}

	return a
}

func first(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && truthy(v) {
			return v, true
		}
	}
	return nil, false
}

func firstString(raw map[string]any, keys []string) string {
	v, ok := first(raw, keys)
	if !ok {
		return ""
	}
	return stringValue(v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case int:
		return t != 0
	default:
		return true
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func latLngFrom(obj map[string]any, latKey, lngKey string) (*itinerary.LatLng, bool) {
	if !truthy(obj[latKey]) || !truthy(obj[lngKey]) {
		return nil, false
	}
	lat, ok := number(obj[latKey])
	if !ok {
		return nil, false
	}
	lng, ok := number(obj[lngKey])
	if !ok {
		return nil, false
	}
	return &itinerary.LatLng{Latitude: lat, Longitude: lng}, true
}

// openHours reads {open, close, days}. Unusable values are left nil so the
// hours check treats them permissively.
func openHours(v any) *itinerary.OpenHours {
	obj, ok := v.(map[string]any)
	if !ok {
		return &itinerary.OpenHours{}
	}

	h := &itinerary.OpenHours{}
	if n, ok := number(obj["open"]); ok {
		open := int(n)
		h.Open = &open
	}
	if n, ok := number(obj["close"]); ok {
		closing := int(n)
		h.Close = &closing
	}
	if days, ok := obj["days"].([]any); ok {
		h.Days = make([]int, 0, len(days))
		for _, d := range days {
			if n, ok := number(d); ok {
				h.Days = append(h.Days, int(n))
			}
		}
	}
	return h
}
