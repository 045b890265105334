// Package timeclock normalizes free-form clock input into canonical HH:MM values.
package timeclock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ClockTime is a zero-padded 24-hour "HH:MM" time of day. The empty value means no time entered.
type ClockTime string

// None is the empty ClockTime.
const None ClockTime = ""

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
	halfDay        = 12 * minutesPerHour
)

var (
	hourOnly   = regexp.MustCompile(`^\d{1,2}$`)
	hourMinute = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	storage    = regexp.MustCompile(`^(\d{2}):(\d{2})(:\d{2})?$`)
)

// Normalize converts "7", "19", "7:30" or "07:30" into "HH:MM".
// Any other form or an out-of-range value returns None.
func Normalize(raw string) ClockTime {
	s := strings.TrimSpace(raw)
	if s == "" {
		return None
	}

	if hourOnly.MatchString(s) {
		h, _ := strconv.Atoi(s)
		return build(h, 0)
	}

	if m := hourMinute.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return build(h, mm)
	}

	return None
}

// FromStorage accepts the "HH:MM:SS" form SQL time columns are scanned as.
func FromStorage(s string) ClockTime {
	m := storage.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return None
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return build(h, mm)
}

// FromMinutes renders minutes since midnight. Values outside a single day return None.
func FromMinutes(total int) ClockTime {
	if total < 0 || total >= minutesPerDay {
		return None
	}
	return build(total/minutesPerHour, total%minutesPerHour)
}

func build(h, m int) ClockTime {
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return None
	}
	return ClockTime(fmt.Sprintf("%02d:%02d", h, m))
}

// IsZero reports whether no time was entered.
func (c ClockTime) IsZero() bool {
	return c == None
}

// Minutes returns minutes since midnight, or -1 for None.
func (c ClockTime) Minutes() int {
	if c.IsZero() || len(c) != 5 {
		return -1
	}
	h, err := strconv.Atoi(string(c[:2]))
	if err != nil {
		return -1
	}
	m, err := strconv.Atoi(string(c[3:]))
	if err != nil {
		return -1
	}
	return h*minutesPerHour + m
}

func (c ClockTime) String() string {
	return string(c)
}

// RelaxEnd reads an end time earlier than the start as a PM entry when adding
// twelve hours keeps it on the same day and at or after the start.
// Otherwise end is returned unchanged.
func RelaxEnd(start, end ClockTime) ClockTime {
	if start.IsZero() || end.IsZero() {
		return end
	}

	startMin, endMin := start.Minutes(), end.Minutes()
	if endMin >= startMin {
		return end
	}

	shifted := endMin + halfDay
	if shifted >= startMin && shifted < minutesPerDay {
		return FromMinutes(shifted)
	}
	return end
}

// FormatMinutes renders a duration in minutes as "H:MM", e.g. 480 -> "8:00".
func FormatMinutes(total int) string {
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	return fmt.Sprintf("%s%d:%02d", sign, total/minutesPerHour, total%minutesPerHour)
}
