package transcript

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MalformedTimestampError reports a timestamp token that cannot be parsed.
type MalformedTimestampError struct {
	Token string
	Err   error
}

func (e *MalformedTimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcript: malformed timestamp %q: %v", e.Token, e.Err)
	}
	return fmt.Sprintf("transcript: malformed timestamp %q", e.Token)
}

func (e *MalformedTimestampError) Unwrap() error { return e.Err }

// ParseTimestamp converts HH:MM:SS.mmm, MM:SS.mmm or bare seconds into
// seconds. Either '.' or ',' may separate the fractional part.
func ParseTimestamp(token string) (float64, error) {
	ts := strings.ReplaceAll(strings.TrimSpace(token), ",", ".")
	if ts == "" {
		return 0, &MalformedTimestampError{Token: token}
	}
	parts := strings.Split(ts, ":")
	if len(parts) > 3 {
		return 0, &MalformedTimestampError{Token: token, Err: fmt.Errorf("too many fields")}
	}

	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return 0, &MalformedTimestampError{Token: token, Err: err}
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, &MalformedTimestampError{Token: token, Err: fmt.Errorf("not a finite number")}
	}
	if secs < 0 {
		return 0, &MalformedTimestampError{Token: token, Err: fmt.Errorf("negative seconds")}
	}
	total := secs
	mult := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, &MalformedTimestampError{Token: token, Err: err}
		}
		if n < 0 {
			return 0, &MalformedTimestampError{Token: token, Err: fmt.Errorf("negative field")}
		}
		total += float64(n) * mult
		mult *= 60
	}
	return total, nil
}

// FormatOffset renders seconds as M:SS.mmm, the format used in evidence text.
func FormatOffset(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	mins := ms / 60000
	rem := ms % 60000
	return fmt.Sprintf("%d:%02d.%03d", mins, rem/1000, rem%1000)
}

// FormatClock renders seconds as H:MM:SS.mmm, the format used in timing
// reports.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms%1000)
}
