package feedback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Entry is one survey response as returned by GET /feedback.
type Entry struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	WantsMobileApp bool   `json:"wantsMobileApp"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
}

// MessageOrDash returns the comment, or "-" when the respondent left none.
func (e Entry) MessageOrDash() string {
	if e.Message == "" {
		return "-"
	}
	return e.Message
}

// Answer renders the wants-app flag as "Yes" or "No".
func (e Entry) Answer() string {
	if e.WantsMobileApp {
		return "Yes"
	}
	return "No"
}

// DisplayDate formats the timestamp as a short date in loc. Unparseable
// timestamps render as "Invalid Date", absent ones as "".
func (e Entry) DisplayDate(loc *time.Location) string {
	if e.Timestamp == "" {
		return ""
	}
	ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return "Invalid Date"
	}
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).Format("1/2/2006")
}

// Stats is the aggregate returned by GET /feedback/stats.
type Stats struct {
	Total             int     `json:"total"`
	WantApp           int     `json:"wantApp"`
	DontWantApp       int     `json:"dontWantApp"`
	WantAppPercentage Percent `json:"wantAppPercentage"`
}

// Percent is a percentage that also decodes from a numeric string.
// null, "" and non-numeric strings decode as 0.
type Percent float64

// UnmarshalJSON accepts 66.67, "66.67" and null.
func (p *Percent) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		*p = Percent(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("wantAppPercentage: %w", err)
	}
	*p = Percent(f)
	return nil
}

// WantPercent is WantAppPercentage rounded to a whole number, or 0 when unset.
func (s Stats) WantPercent() int {
	if s.WantAppPercentage == 0 {
		return 0
	}
	return int(math.Round(float64(s.WantAppPercentage)))
}

// DontWantPercent is the rounded complement of WantAppPercentage, or 0 when unset.
// The complement is taken before rounding so the two labels may not sum to 100.
func (s Stats) DontWantPercent() int {
	if s.WantAppPercentage == 0 {
		return 0
	}
	return int(math.Round(100 - float64(s.WantAppPercentage)))
}

// WantLabel renders WantPercent as "NN%".
func (s Stats) WantLabel() string {
	return fmt.Sprintf("%d%%", s.WantPercent())
}

// DontWantLabel renders DontWantPercent as "NN%".
func (s Stats) DontWantLabel() string {
	return fmt.Sprintf("%d%%", s.DontWantPercent())
}
