// Package system supplies the wall clock used for run timestamps.
package system

import "time"

// Clock reads the system time. It satisfies validator.Clock.
type Clock struct{}

// New returns a Clock.
func New() Clock {
	return Clock{}
}

// Now reports the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
