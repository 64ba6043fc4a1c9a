package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// env reads variables through get and collects every malformed value so
// LoadFrom can report them together.
type env struct {
	get  func(string) string
	errs []error
}

func (e *env) err() error { return errors.Join(e.errs...) }

func (e *env) str(k, d string) string {
	if v := strings.TrimSpace(e.get(k)); v != "" {
		return v
	}
	return d
}

// first returns the first non-empty variable among keys, else d.
func (e *env) first(d string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(e.get(k)); v != "" {
			return v
		}
	}
	return d
}

func (e *env) boolean(k string, d bool) bool {
	v := strings.TrimSpace(e.get(k))
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	e.errs = append(e.errs, fmt.Errorf("invalid bool for %s: %q", k, v))
	return d
}

func (e *env) integer(k string, d int) int {
	v := strings.TrimSpace(e.get(k))
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid int for %s: %q", k, v))
		return d
	}
	return n
}

func (e *env) dur(k string, d time.Duration) time.Duration {
	v := strings.TrimSpace(e.get(k))
	if v == "" {
		return d
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid duration for %s: %q", k, v))
		return d
	}
	return dur
}

// require records an error when k is unset and returns its value.
func (e *env) require(k string) string {
	v := strings.TrimSpace(e.get(k))
	if v == "" {
		e.errs = append(e.errs, fmt.Errorf("missing required env var: %s", k))
	}
	return v
}
