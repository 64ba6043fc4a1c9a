package model

import "time"

// Presence is the last advertised activity of a user (`presence` table).
// GroupID is nil when the user is not in a study group.
type Presence struct {
	UID         string
	Status      Status
	GroupID     *string
	LastUpdated int64
	IsTyping    bool
}

// Stale reports whether the record has not been refreshed within
// staleAfter of nowMs. A non-positive staleAfter disables the check.
func (p Presence) Stale(nowMs int64, staleAfter time.Duration) bool {
	if staleAfter <= 0 {
		return false
	}
	return nowMs-p.LastUpdated > staleAfter.Milliseconds()
}

// EffectiveStatus is the status readers should display: offline once the
// record went stale, the stored status otherwise.
func (p Presence) EffectiveStatus(nowMs int64, staleAfter time.Duration) Status {
	if p.Stale(nowMs, staleAfter) {
		return StatusOffline
	}
	return p.Status
}
