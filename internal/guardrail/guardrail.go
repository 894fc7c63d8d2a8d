// Package guardrail restricts unattended runs to a short daily window.
package guardrail

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// WindowLength is the fixed length of the allowed window.
const WindowLength = 10 * time.Minute

const minutesPerDay = 24 * 60

// Exit codes returned by Enforce.
const (
	ExitAllowed     = 0
	ExitConfigError = 1
	ExitBlocked     = 2
)

// ErrMalformedStart is wrapped by ParseWindow for any start value that is not
// a valid HH:MM clock time.
var ErrMalformedStart = errors.New("malformed window start")

// Window is a daily time-of-day range of WindowLength starting at Start
// minutes past midnight. The range may wrap past midnight.
type Window struct {
	Start int
}

// ParseWindow parses a start time in H:MM or HH:MM form.
func ParseWindow(start string) (Window, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(start), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return Window{}, fmt.Errorf("%w: %q (want HH:MM)", ErrMalformedStart, start)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return Window{}, fmt.Errorf("%w: hour in %q must be 0-23", ErrMalformedStart, start)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return Window{}, fmt.Errorf("%w: minute in %q must be 0-59", ErrMalformedStart, start)
	}
	return Window{Start: h*60 + m}, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// End returns the last allowed minute past midnight.
func (w Window) End() int {
	return (w.Start + int(WindowLength/time.Minute)) % minutesPerDay
}

// Contains reports whether now falls inside the window. Both ends are
// inclusive and seconds are ignored.
func (w Window) Contains(now time.Time) bool {
	cur := now.Hour()*60 + now.Minute()
	end := w.End()
	if end < w.Start {
		return cur >= w.Start || cur <= end
	}
	return cur >= w.Start && cur <= end
}

// String formats the window as "HH:MM-HH:MM".
func (w Window) String() string {
	return clock(w.Start) + "-" + clock(w.End())
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Allowed reports whether a run may proceed at now. A malformed start always
// denies.
func Allowed(now time.Time, start string, bypass bool) bool {
	if bypass {
		return true
	}
	w, err := ParseWindow(start)
	if err != nil {
		return false
	}
	return w.Contains(now)
}

// Enforce checks the window and returns the process exit code to use:
// ExitAllowed, ExitBlocked, or ExitConfigError for a malformed start.
func Enforce(log *zap.Logger, now time.Time, start string, bypass bool) int {
	if bypass {
		log.Info("Time guardrail bypassed with --run-anyway flag")
		return ExitAllowed
	}

	w, err := ParseWindow(start)
	if err != nil {
		log.Error("Invalid TIME_WINDOW_START, refusing to run", zap.Error(err))
		return ExitConfigError
	}

	if w.Contains(now) {
		log.Info("Time window check passed",
			zap.String("window", w.String()),
			zap.String("now", now.Format("15:04:05")),
		)
		return ExitAllowed
	}

	log.Warn("Execution blocked: outside allowed time window",
		zap.String("now", now.Format("2006-01-02 15:04:05")),
		zap.String("window", w.String()),
	)
	log.Info("Use --run-anyway flag to bypass time restrictions")
	return ExitBlocked
}
