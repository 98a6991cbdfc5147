// Package timespec parses free-form time-of-day input.
//
// Accepted shapes, tried in order against the trimmed token:
//
//	"14:30"  hour:minute
//	"14.30"  hour.minute
//	"14"     bare hour, minute 0
//
// A case-insensitive "cancel" token is a normal control-flow outcome, not an
// error, and is recognized before any numeric parsing.
package timespec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidFormat means the token could not be parsed as a time of day.
	ErrInvalidFormat = errors.New("timespec: invalid format")
	// ErrOutsideWindow means the time parsed fine but falls outside the
	// allowed-hours policy window.
	ErrOutsideWindow = errors.New("timespec: outside allowed window")
)

// Result is a normalized time of day.
type Result struct {
	Hour   int // 0..23
	Minute int // 0..59

	// Cancelled is set when the user typed the cancel token. Hour and Minute
	// are meaningless in that case.
	Cancelled bool
}

// HHMM renders the result as a normalized "HH:MM" string.
func (r Result) HHMM() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// MinuteOfDay returns minutes since midnight.
func (r Result) MinuteOfDay() int { return r.Hour*60 + r.Minute }

// CancelToken is the literal that aborts time entry.
const CancelToken = "cancel"

// Parse normalizes raw into a Result or fails with ErrInvalidFormat.
// The allowed-hours policy is a separate step; see Window.Check.
func Parse(raw string) (Result, error) {
	token := strings.TrimSpace(raw)
	if strings.EqualFold(token, CancelToken) {
		return Result{Cancelled: true}, nil
	}

	var hourPart, minutePart string
	switch {
	case strings.Contains(token, ":"):
		hourPart, minutePart, _ = strings.Cut(token, ":")
	case strings.Contains(token, "."):
		hourPart, minutePart, _ = strings.Cut(token, ".")
	default:
		hourPart = token
	}

	hour, err := parseComponent(hourPart)
	if err != nil {
		return Result{}, err
	}
	minute := 0
	if minutePart != "" {
		minute, err = parseComponent(minutePart)
		if err != nil {
			return Result{}, err
		}
	}

	if hour > 23 || minute > 59 {
		return Result{}, ErrInvalidFormat
	}
	return Result{Hour: hour, Minute: minute}, nil
}

func parseComponent(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidFormat
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, ErrInvalidFormat
	}
	return n, nil
}

// Window is an allowed-hours policy: hours in [From, To) pass.
// The zero value disables the check.
type Window struct {
	From int // inclusive hour
	To   int // exclusive hour
}

// Enabled reports whether the window restricts anything.
func (w Window) Enabled() bool { return w.From != 0 || w.To != 0 }

// Check validates r against the window. Cancelled results always pass.
func (w Window) Check(r Result) error {
	if !w.Enabled() || r.Cancelled {
		return nil
	}
	if r.Hour < w.From || r.Hour >= w.To {
		return ErrOutsideWindow
	}
	return nil
}
