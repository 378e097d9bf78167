// Package testutils provides deterministic id and time generators for chatbox.
// In test mode ids and timestamps are predictable while keeping their production format.
package testutils

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// Thread-safe counter for deterministic ID generation
	idCounter uint64
	idMutex   sync.Mutex

	// Thread-safe counter for deterministic timestamp generation
	timeCounter int64
	timeMutex   sync.Mutex
)

// GenerateID returns a message id that is deterministic in test mode.
// In test mode ids look like 00000001-0000-7000-8000-000000000001 and sort by creation order.
// In production mode it returns a UUIDv7, which is time-ordered as well.
func GenerateID(testMode bool) string {
	if testMode {
		return getDeterministicID()
	}
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does
		return uuid.New().String()
	}
	return id.String()
}

// GetCurrentTime returns the current time, deterministic in test mode but real in production.
// In test mode, returns incrementing time starting from 2025-01-01T00:00:01Z
func GetCurrentTime(testMode bool) time.Time {
	if testMode {
		return getDeterministicTime()
	}
	return time.Now()
}

// IDSource returns a generator bound to the given mode.
func IDSource(testMode bool) func() string {
	return func() string { return GenerateID(testMode) }
}

// Clock returns a time source bound to the given mode.
func Clock(testMode bool) func() time.Time {
	return func() time.Time { return GetCurrentTime(testMode) }
}

// FixedClock returns a time source that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// getDeterministicID keeps the UUIDv7 layout: version nibble 7, variant 8.
func getDeterministicID() string {
	idMutex.Lock()
	defer idMutex.Unlock()

	idCounter++
	return fmt.Sprintf("%08x-0000-7000-8000-%012x", idCounter, idCounter)
}

// getDeterministicTime returns 2025-01-01T00:00:00Z plus one second per call.
func getDeterministicTime() time.Time {
	timeMutex.Lock()
	defer timeMutex.Unlock()

	timeCounter++
	baseTime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return baseTime.Add(time.Duration(timeCounter) * time.Second)
}

// ResetTestCounters resets the deterministic counters for testing.
// This should only be called from test code to ensure consistent test runs.
func ResetTestCounters() {
	idMutex.Lock()
	timeMutex.Lock()
	defer idMutex.Unlock()
	defer timeMutex.Unlock()

	idCounter = 0
	timeCounter = 0
}
