package services

import "time"

// Clock supplies the current time. Injectable so billing math and the sweep
// hour gate can be tested against fixed instants.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
