package pkg

import (
	"strconv"
	"strings"
	"time"
)

// durUnit pairs a compact suffix with the span of one unit.
type durUnit struct {
	suffix string
	value  time.Duration
}

var durUnits = []durUnit{
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
}

// FormatDuration renders a duration compactly for log output: sub-second
// values pick the largest sensible unit, longer ones show at most the two
// largest units (e.g. "1m12s").
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "0"
	}
	if d < time.Second {
		switch {
		case d >= time.Millisecond:
			return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
		case d >= time.Microsecond:
			return strconv.FormatInt(d.Microseconds(), 10) + "μs"
		default:
			return strconv.FormatInt(d.Nanoseconds(), 10) + "ns"
		}
	}

	var b strings.Builder
	remaining := d
	parts := 0
	for _, u := range durUnits {
		if remaining < u.value {
			continue
		}
		b.WriteString(strconv.FormatInt(int64(remaining/u.value), 10))
		b.WriteString(u.suffix)
		remaining %= u.value
		if parts++; parts == 2 || remaining == 0 {
			break
		}
	}
	return b.String()
}
