/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package resultapi

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingLobbyIdentifier is returned before any request when no lobby id is given.
	ErrMissingLobbyIdentifier = errors.New("lobby id missing")
	// ErrFetchFailure covers transport, status and decoding failures.
	ErrFetchFailure = errors.New("itinerary fetch failed")
	// ErrEmptyItinerary is returned when the response carries no activity list.
	ErrEmptyItinerary = errors.New("no activities in itinerary")
)

// RemoteError is an error message reported by the results backend itself.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("results backend: %s", e.Message)
}

// Unwrap lets errors.Is match ErrFetchFailure.
func (e *RemoteError) Unwrap() error {
	return ErrFetchFailure
}

// UserMessage returns the single line shown to a user for a fetch error.
func UserMessage(err error) string {
	var remote *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingLobbyIdentifier):
		return "Lobby ID missing"
	case errors.As(err, &remote):
		return remote.Message
	case errors.Is(err, ErrEmptyItinerary):
		return "No activities found in itinerary"
	default:
		return "Failed to load itinerary. Please try again."
	}
}
