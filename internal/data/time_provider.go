package data

import "time"

// TimeProvider supplies the timestamps repositories write when the caller gives none.
// testutil.Clock satisfies it in tests.
type TimeProvider interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
