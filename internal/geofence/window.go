package geofence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidWindow is returned for effective-time text that cannot be parsed
var ErrInvalidWindow = errors.New("invalid effective time window")

// TimeOfDay is a wall-clock time without a date
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) seconds() int {
	return t.Hour*3600 + t.Minute*60
}

// String formats t as HH:MM
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TimeWindow is a daily recurring interval. Start > End wraps past midnight.
type TimeWindow struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseTimeWindow parses "H[.mm]-H[.mm]". A colon may stand in for the dot.
//
//	"5.00-23.00"  05:00 to 23:00
//	"22-6"        22:00 to 06:00 the next morning
func ParseTimeWindow(text string) (TimeWindow, error) {
	startText, endText, ok := strings.Cut(strings.TrimSpace(text), "-")
	if !ok {
		return TimeWindow{}, fmt.Errorf("%w: %q has no separator", ErrInvalidWindow, text)
	}

	start, err := parseTimeOfDay(startText)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: start of %q: %v", ErrInvalidWindow, text, err)
	}
	end, err := parseTimeOfDay(endText)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: end of %q: %v", ErrInvalidWindow, text, err)
	}

	return TimeWindow{Start: start, End: end}, nil
}

func parseTimeOfDay(text string) (TimeOfDay, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ".", ":")
	hourText, minuteText, hasMinute := strings.Cut(text, ":")

	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return TimeOfDay{}, err
	}
	minute := 0
	if hasMinute {
		if minute, err = strconv.Atoi(minuteText); err != nil {
			return TimeOfDay{}, err
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%02d:%02d out of range", hour, minute)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// Contains reports whether the wall-clock time of now falls inside w.
// Both ends are inclusive; seconds count, so 17:00:30 is past a 17:00 end.
func (w TimeWindow) Contains(now time.Time) bool {
	clock := now.Hour()*3600 + now.Minute()*60 + now.Second()
	start, end := w.Start.seconds(), w.End.seconds()

	if start <= end {
		return start <= clock && clock <= end
	}
	// 跨午夜
	return clock >= start || clock <= end
}

// String formats w as HH:MM-HH:MM
func (w TimeWindow) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// IsActiveAt reports whether an effective-time text is active at now.
//
// An empty or unparsable window is always active; the parse error is returned
// alongside true so callers can log it.
func IsActiveAt(text string, now time.Time) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return true, nil
	}

	w, err := ParseTimeWindow(text)
	if err != nil {
		return true, err
	}
	return w.Contains(now), nil
}
