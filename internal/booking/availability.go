package booking

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	openMinute  = 9 * 60
	closeMinute = 18 * 60
	slotStep    = 30
)

// Availability returns the free start times ("HH:MM") on a 30-minute grid
// between 09:00 and 18:00 for a service of the given duration, skipping any
// slot that would overlap an occupied appointment.
func Availability(durationMinutes int, busy []Slot) []string {
	if durationMinutes <= 0 {
		durationMinutes = 60
	}

	type span struct{ start, end int }
	occupied := make([]span, 0, len(busy))
	for _, b := range busy {
		start, ok := parseClock(b.Time)
		if !ok {
			continue
		}
		d := b.DurationMinutes
		if d <= 0 {
			d = 60
		}
		occupied = append(occupied, span{start, start + d})
	}

	var free []string
	for start := openMinute; start < closeMinute; start += slotStep {
		end := start + durationMinutes
		if end > closeMinute {
			continue
		}
		clash := false
		for _, o := range occupied {
			if start < o.end && end > o.start {
				clash = true
				break
			}
		}
		if !clash {
			free = append(free, fmt.Sprintf("%02d:%02d", start/60, start%60))
		}
	}
	return free
}

func parseClock(hhmm string) (int, bool) {
	parts := strings.SplitN(hhmm, ":", 3)
	if len(parts) < 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
