package model

import "strings"

// Status is the coarse activity state a user advertises to friends.
type Status string

const (
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
	StatusStudying Status = "studying"
	StatusIdle     Status = "idle"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusStudying, StatusIdle:
		return true
	}
	return false
}

// ParseStatus lower-cases and validates a client supplied status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Stats holds the study counters shown on a profile. Values are
// non-negative; study times are in seconds.
type Stats struct {
	TotalStudyTime int64 `json:"totalStudyTime"`
	TodayStudyTime int64 `json:"todayStudyTime"`
	WeekStudyTime  int64 `json:"weekStudyTime"`
	Streak         int64 `json:"streak"`
	CompletedTodos int64 `json:"completedTodos"`
}

// StatsPatch is a partial stats update. Nil fields keep their stored value.
type StatsPatch struct {
	TotalStudyTime *int64 `json:"totalStudyTime,omitempty"`
	TodayStudyTime *int64 `json:"todayStudyTime,omitempty"`
	WeekStudyTime  *int64 `json:"weekStudyTime,omitempty"`
	Streak         *int64 `json:"streak,omitempty"`
	CompletedTodos *int64 `json:"completedTodos,omitempty"`
}

func (p StatsPatch) fields() []*int64 {
	return []*int64{p.TotalStudyTime, p.TodayStudyTime, p.WeekStudyTime, p.Streak, p.CompletedTodos}
}

// Empty reports whether the patch carries no fields at all.
func (p StatsPatch) Empty() bool {
	for _, f := range p.fields() {
		if f != nil {
			return false
		}
	}
	return true
}

// HasNegative reports whether any supplied field is below zero.
func (p StatsPatch) HasNegative() bool {
	for _, f := range p.fields() {
		if f != nil && *f < 0 {
			return true
		}
	}
	return false
}

// Apply returns s with every supplied field of p overwritten.
func (p StatsPatch) Apply(s Stats) Stats {
	set := func(dst *int64, v *int64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.TotalStudyTime, p.TotalStudyTime)
	set(&s.TodayStudyTime, p.TodayStudyTime)
	set(&s.WeekStudyTime, p.WeekStudyTime)
	set(&s.Streak, p.Streak)
	set(&s.CompletedTodos, p.CompletedTodos)
	return s
}

// User mirrors a row of the `users` table. Timestamps are Unix
// milliseconds. Handlers expose a separate response type that never
// carries Email or PasswordDigest.
//
// Fields:
//
//	UID            – opaque unique id, never changes.
//	DisplayName    – user chosen name, 1..32 runes, no '#'.
//	Discriminator  – four digit string in [1000, 9999].
//	FullTag        – "DisplayName#Discriminator", globally unique.
//	Email          – lower-cased, globally unique.
//	PasswordDigest – "salt:base64(key)" PBKDF2 digest.
type User struct {
	UID            string
	DisplayName    string
	Discriminator  string
	FullTag        string
	Email          string
	PasswordDigest string
	Status         Status
	CreatedAt      int64
	LastSeen       int64
	Stats          Stats
}
