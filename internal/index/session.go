package index

import (
	"fmt"
	"time"
)

// Session describes the official trading window in the reference timezone.
// Open and Close are offsets from local midnight.
type Session struct {
	Location      *time.Location
	Open          time.Duration
	Close         time.Duration
	OpeningWindow time.Duration
}

// NewSession builds a session from "HH:MM" clock strings.
func NewSession(loc *time.Location, open, close string, openingWindow time.Duration) (Session, error) {
	if loc == nil {
		return Session{}, fmt.Errorf("session location is required")
	}
	o, err := ParseClock(open)
	if err != nil {
		return Session{}, fmt.Errorf("parse session open: %w", err)
	}
	c, err := ParseClock(close)
	if err != nil {
		return Session{}, fmt.Errorf("parse session close: %w", err)
	}
	if c <= o {
		return Session{}, fmt.Errorf("session close %s must be after open %s", close, open)
	}
	if openingWindow <= 0 {
		return Session{}, fmt.Errorf("opening window must be positive")
	}
	return Session{Location: loc, Open: o, Close: c, OpeningWindow: openingWindow}, nil
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return clockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid clock %q", s)
}

// Local converts t into the session timezone.
func (s Session) Local(t time.Time) time.Time {
	return t.In(s.Location)
}

// Contains reports whether t falls inside [Open, Close] on its local day.
func (s Session) Contains(t time.Time) bool {
	c := clockOf(s.Local(t))
	return c >= s.Open && c <= s.Close
}

// Day returns local midnight of the session day containing t.
func (s Session) Day(t time.Time) time.Time {
	l := s.Local(t)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, s.Location)
}

// OpenAt returns the session open on the local day of t.
func (s Session) OpenAt(t time.Time) time.Time {
	return s.Day(t).Add(s.Open)
}

// InOpeningWindow reports whether t lies in [open, open+OpeningWindow).
func (s Session) InOpeningWindow(t time.Time) bool {
	open := s.OpenAt(t)
	return !t.Before(open) && t.Before(open.Add(s.OpeningWindow))
}

func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}
