package service

import (
	"time"
)

// raceLocation is the timezone race days and deadlines are published in
var raceLocation = time.FixedZone("JST", 9*60*60)

// RaceDayOf returns the race calendar day a moment falls on, as midnight UTC of that date
func RaceDayOf(t time.Time) time.Time {
	local := t.In(raceLocation)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
