package service

import "time"

// Clock returns the current time. Tests substitute a fixed or stepping clock.
type Clock func() time.Time

func (c Clock) nowMs() int64 {
	if c == nil {
		return time.Now().UnixMilli()
	}
	return c().UnixMilli()
}

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
