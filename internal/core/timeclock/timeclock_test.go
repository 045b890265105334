package timeclock

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]ClockTime{
		"7":        "07:00",
		"19":       "19:00",
		"0":        "00:00",
		"7:30":     "07:30",
		"07:30":    "07:30",
		" 9:05 ":   "09:05",
		"23:59":    "23:59",
		"25":       None,
		"24":       None,
		"7:60":     None,
		"abc":      None,
		"":         None,
		"7:5":      None,
		"123":      None,
		"07:30:00": None,
		"-1":       None,
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for h := 0; h < 24; h++ {
		for _, m := range []int{0, 1, 30, 59} {
			for _, raw := range []string{
				fmt.Sprintf("%d:%02d", h, m),
				fmt.Sprintf("%02d:%02d", h, m),
			} {
				once := Normalize(raw)
				assert.False(t, once.IsZero(), raw)
				assert.Equal(t, once, Normalize(string(once)), raw)
			}
		}
		bare := Normalize(fmt.Sprint(h))
		assert.Equal(t, bare, Normalize(string(bare)))
	}
}

func TestFromStorage(t *testing.T) {
	assert.Equal(t, ClockTime("11:00"), FromStorage("11:00:00"))
	assert.Equal(t, ClockTime("08:15"), FromStorage("08:15"))
	assert.Equal(t, None, FromStorage("8:15"))
	assert.Equal(t, None, FromStorage(""))
}

func TestMinutes(t *testing.T) {
	assert.Equal(t, 0, ClockTime("00:00").Minutes())
	assert.Equal(t, 570, ClockTime("09:30").Minutes())
	assert.Equal(t, 1439, ClockTime("23:59").Minutes())
	assert.Equal(t, -1, None.Minutes())
}

func TestRelaxEnd(t *testing.T) {
	assert.Equal(t, ClockTime("20:00"), RelaxEnd("09:00", "08:00"))
	assert.Equal(t, ClockTime("10:00"), RelaxEnd("09:00", "10:00"))
	assert.Equal(t, ClockTime("21:30"), RelaxEnd("09:00", "21:30"))
	assert.Equal(t, ClockTime("17:00"), RelaxEnd("09:00", "05:00"))

	// night shift: 22:00 -> 06:00 would be 18:00, which is before the start
	assert.Equal(t, ClockTime("06:00"), RelaxEnd("22:00", "06:00"))
	// 13:00 -> 12:30 + 12h = 24:30 is past midnight
	assert.Equal(t, ClockTime("12:30"), RelaxEnd("13:00", "12:30"))

	assert.Equal(t, ClockTime("08:00"), RelaxEnd(None, "08:00"))
	assert.Equal(t, None, RelaxEnd("09:00", None))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "8:00", FormatMinutes(480))
	assert.Equal(t, "0:05", FormatMinutes(5))
	assert.Equal(t, "41:30", FormatMinutes(2490))
	assert.Equal(t, "-1:15", FormatMinutes(-75))
}
