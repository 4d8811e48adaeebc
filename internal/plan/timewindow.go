package plan

import (
	"strconv"
	"strings"
)

// parseClock converts a time-of-day label to minutes since midnight.
// Supported forms: "14:00", "7AM", "7PM", "7:30AM". Returns false for
// anything it cannot parse.
func parseClock(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	pm := false
	ampm := false
	switch {
	case strings.HasSuffix(s, "AM"):
		ampm = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "AM"))
	case strings.HasSuffix(s, "PM"):
		ampm = true
		pm = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "PM"))
	}
	hh, mm := s, "0"
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hh, mm = s[:i], s[i+1:]
	}
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil {
		return 0, false
	}
	if ampm {
		if h < 1 || h > 12 {
			return 0, false
		}
		h %= 12
		if pm {
			h += 12
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// windowUnrestricted reports whether a delivery-window string imposes no
// constraint.
func windowUnrestricted(w string) bool {
	w = strings.TrimSpace(w)
	return w == "" || strings.EqualFold(w, "N/A")
}

// parseWindow splits "HH:MM-HH:MM" into start/end minutes. Windows may
// wrap past midnight (end < start).
func parseWindow(w string) (start, end int, ok bool) {
	parts := strings.SplitN(w, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, ok = parseClock(parts[0])
	if !ok {
		return 0, 0, false
	}
	end, ok = parseClock(parts[1])
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// inWindow reports whether a departure minute falls inside a window,
// honoring wraparound for windows that cross midnight.
func inWindow(minute, start, end int) bool {
	if start <= end {
		return minute >= start && minute <= end
	}
	return minute >= start || minute <= end
}

// slotFitsWindow checks a route's slot label against a store window.
// Unparseable slot labels cannot be compared and do not reject; the
// window itself must parse or the window is ignored.
func slotFitsWindow(slotLabel, window string) bool {
	if windowUnrestricted(window) {
		return true
	}
	minute, ok := parseClock(slotLabel)
	if !ok {
		return true
	}
	start, end, ok := parseWindow(window)
	if !ok {
		return true
	}
	return inWindow(minute, start, end)
}
